/*
Command line utility pulse is an HTTPS load generator and API
correctness tester. It keeps one TLS connection per session open
against a server, replays a request over every connection for a
number of seconds (or once, as a smoke test) and reports latency,
status classes and requests/sec for every phase.

Installation with Go 1.21+:

	go install github.com/codesenberg/pulse@latest

Usage:

	pulse --host=HOST --target=TARGET [<flags>]

Flags:

	    --help                  Show context-sensitive help (also try --help-long
	                            and --help-man).
	    --version               Show application version.
	    --host=HOST             Server host, optionally with an https:// scheme
	                            and a port
	    --target=TARGET         Request target, e.g. /ufmRest/app/ufm_version
	    --port=443              Server port
	    --http-version=11       HTTP version: 10 or 11
	-c, --num-connections=1     Number of concurrent connections
	-s, --runtime-seconds=[<pos. int.>]
	                            Duration of every phase in seconds (omitting it
	                            forces a dry run)
	    --dry-run               Send a single request per connection and exit
	-u, --user=USER             Basic authentication credentials as
	                            <name>:<password>
	-T, --token=TOKEN           Bearer token
	    --cert-path=CERT-PATH   Directory holding certificate.crt and
	                            private-key.pem for mutual TLS
	-b, --body=BODY             Request body
	    --metrics-path=/tmp/benchmark/
	                            Directory of the CSV report
	-n, --name=pulse            Run name, used for the CSV file and the default
	                            phase
	-m, --method=GET            Request method
	-H, --header="K: V" ...     HTTP headers to use(can be repeated)
	-t, --timeout=30s           Connect, handshake and per-request timeout
	-r, --rate=[<pos. int.>]    Rate limit in requests per second
	-k, --insecure              Controls whether a client verifies the server's
	                            certificate chain and host name
	    --connection-mode=keep-alive
	                            keep-alive reuses connections, new reconnects
	                            before every request
	    --on-failure=abort      What a connection does after a failed request:
	                            abort or retry
	    --async                 Drive connections through the non-blocking API
	    --phases=PHASES         YAML file listing the phases to run
	-l, --latencies             Print latency distribution
	-p, --print=<spec>          Specifies what to output. Comma-separated list of
	                            values 'intro' (short: 'i'), 'progress' (short:
	                            'p'), 'result' (short: 'r').
	-q, --no-print              Don't output anything
	-o, --format=<spec>         Which format to use to output the result.
	                            plain-text (short: pt), json (short: j) or
	                            path:<template file>
	    --log-level=info        Log level: debug, info, warn or error

Exactly one of --user, --token and --cert-path is expected. When more
are given, the certificate wins over the user, which wins over the
token. Basic authentication skips server certificate verification.

Phases file:

	phases:
	  - name: version
	    target: /ufmRest/app/ufm_version
	  - name: create
	    method: POST
	    target: /ufmRest/resources/pkeys
	    body: '{"pkey":"0x7fff"}'
	    headers: ["X-Trace: on"]
	    runtime_seconds: 30

Every phase inherits whatever it does not set from the command line.
After each phase a row is appended to {metrics-path}/{name}.csv:

	API,Threads,Connections,Latency (ms),Requests/sec

For detailed documentation on user-defined templates see
documentation for package github.com/codesenberg/pulse/template.
*/
package main
