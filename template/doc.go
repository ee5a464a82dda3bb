/*
Package template documents the way user-defined output templates are
meant to be used.

User-defined templates use Go's text/template package, so you might
want to check its documentation first. A template is executed once
per phase.
There are a bunch of helper methods available inside a template
besides those described in aforementioned documentation, namely:
  - WithLatencies()
    Tells whether --latencies flag were activated.
  - FormatBinary(numberOfBytes float64) string
    Converts bytes to kilo-, mega-, giga-, etc.- bytes, and
    appends appropriate suffix "KB", "MB", "GB", etc.
  - FormatTimeUs(us float64) string
    Converts microseconds to milliseconds, seconds, minutes or
    hours and appends appropriate suffix.
  - FormatTimeUsUint64(us uint64) string
    Same as above, but for uint64, since type conversions are
    not available in templates.
  - FormatMs(d time.Duration) string
    Renders a duration as milliseconds with two decimals.
  - FloatsToArray(ps ...float64) []float64
    Converts a bunch of floats into array, since, again,
    type conversions are not available in templates.
  - Multiply(num, coeff float64) float64
    Arithmetics are not available inside of templates either.
  - StringToBytes(s string) []byte
    Convenience function to convert string to []byte.
  - UUIDV1() UUID
    Generates UUID Version 1, based on timestamp and
    MAC address (RFC 4122)
  - UUIDV2(domain byte) UUID
    Generates UUID Version 2, based on timestamp, MAC address
    and POSIX UID/GID (DCE 1.1)
  - UUIDV3(ns UUID, name string) UUID
    Generates UUID Version 3, based on MD5 hashing (RFC 4122)
  - UUIDV4() UUID
    Generates UUID Version 4, based on random numbers (RFC 4122)
  - UUIDV5(ns UUID, name string) UUID
    Generates UUID Version 5, based on SHA-1 hashing (RFC 4122)

The structure that gets passed to the template is PhaseInfo from
the package github.com/codesenberg/pulse/internal. Its Spec field
describes the phase (run id, phase name, host, target, method,
connections, duration, auth method, headers, body, rate, etc.) and
its Result field holds what the phase produced (requests, responses,
failures, status classes, errors, latency samples and histograms,
bytes read/written, time taken). RequestsPerSecond is defined on
PhaseInfo itself, LatencyStats, LatenciesStats and RequestsStats on
Result.

A minimal template printing one line per phase:

	{{ .Spec.Name }}: {{ .Result.TotalRequests }} requests, {{ printf "%.2f" .RequestsPerSecond }} req/s

Examples of complete templates can be found in templates.go of the
pulse command.
*/
package template
