package main

import (
	"errors"
	"sort"
	"time"
)

const (
	decBase = 10

	rateLimitInterval = 10 * time.Millisecond
	oneSecond         = 1 * time.Second

	slowResponseThreshold = 500 * time.Millisecond

	certFileName = "certificate.crt"
	keyFileName  = "private-key.pem"

	exitFailure = 1
)

var (
	version = "unspecified"

	emptyConf = config{}
	parser    = newKingpinParser()

	defaultPort           = uint16(443)
	defaultHTTPVersion    = uint(11)
	defaultNumberOfConns  = uint64(1)
	defaultTimeout        = 30 * time.Second
	defaultMetricsPath    = "/tmp/benchmark/"
	defaultName           = "pulse"
	defaultMethod         = "GET"
	defaultConnectionMode = keepAliveMode
	defaultFailurePolicy  = abortOnFailure
	defaultLogLevel       = "info"

	httpMethods = []string{
		"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS",
		"PATCH",
	}
	cantHaveBody = []string{"HEAD"}

	errEmptyHost            = errors.New("host can't be empty")
	errUnsupportedScheme    = errors.New("unsupported scheme(only https is allowed)")
	errEmptyTarget          = errors.New("target can't be empty")
	errTargetNotAbsolute    = errors.New("target must start with '/'")
	errInvalidPort          = errors.New("invalid port(must be in 1..65535)")
	errInvalidHTTPVersion   = errors.New("invalid HTTP version(must be 10 or 11)")
	errInvalidNumberOfConns = errors.New(
		"invalid number of connections(must be > 0)")
	errInvalidRuntime = errors.New(
		"invalid runtime(must be >= 1s)")
	errNegativeTimeout = errors.New(
		"timeout can't be negative")
	errBodyNotAllowed = errors.New(
		"HEAD requests cannot have body")
	errZeroRate = errors.New(
		"rate can't be less than 1")
	errEmptyPhases = errors.New("phases file lists no phases")
	errPhaseName   = errors.New("every phase needs a name")

	errInvalidHeaderFormat = errors.New("invalid header format")
	errEmptyPrintSpec      = errors.New(
		"empty print spec is not a valid print spec")

	errNotConnected     = errors.New("session is not connected")
	errRequestInFlight  = errors.New("session already has a request in flight")
	errReactorStopped   = errors.New("reactor is stopped")
	errNoResponse       = errors.New("connection closed before response")
	errMissingCertFiles = errors.New("client certificate material not found")
)

func init() {
	sort.Strings(httpMethods)
	sort.Strings(cantHaveBody)
}
