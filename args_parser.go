package main

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin"
)

type argsParser interface {
	parse([]string) (config, error)
}

type kingpinParser struct {
	app *kingpin.Application

	host        string
	port        uint16
	target      string
	httpVersion uint

	numConns uint64
	runtime  *nullableUint64
	dryRun   bool
	rate     *nullableUint64
	timeout  time.Duration

	method  string
	body    *nullableString
	headers *headersList

	user     string
	token    string
	certPath string
	insecure bool

	metricsPath string
	name        string
	phasesPath  string

	connectionMode string
	onFailure      string
	async          bool

	latencies  bool
	printSpec  *nullableString
	noPrint    bool
	formatSpec string
	logLevel   string
}

func newKingpinParser() argsParser {
	kparser := &kingpinParser{
		port:           defaultPort,
		httpVersion:    defaultHTTPVersion,
		numConns:       defaultNumberOfConns,
		runtime:        new(nullableUint64),
		rate:           new(nullableUint64),
		timeout:        defaultTimeout,
		method:         defaultMethod,
		body:           new(nullableString),
		headers:        new(headersList),
		metricsPath:    defaultMetricsPath,
		name:           defaultName,
		connectionMode: string(defaultConnectionMode),
		onFailure:      string(defaultFailurePolicy),
		printSpec:      new(nullableString),
		formatSpec:     "plain-text",
		logLevel:       defaultLogLevel,
	}

	app := kingpin.New("", "HTTPS load generator and API correctness tester").
		Version("pulse version " + version + " " + runtime.GOOS + "/" +
			runtime.GOARCH)
	app.Flag("host", "Server host, optionally with an https:// scheme and a port").
		Required().
		StringVar(&kparser.host)
	app.Flag("target", "Request target, e.g. /ufmRest/app/ufm_version").
		Required().
		StringVar(&kparser.target)
	app.Flag("port", "Server port").
		PlaceHolder(strconv.FormatUint(uint64(defaultPort), decBase)).
		Uint16Var(&kparser.port)
	app.Flag("http-version", "HTTP version: 10 or 11").
		PlaceHolder(strconv.FormatUint(uint64(defaultHTTPVersion), decBase)).
		UintVar(&kparser.httpVersion)
	app.Flag("num-connections", "Number of concurrent connections").
		Short('c').
		PlaceHolder(strconv.FormatUint(defaultNumberOfConns, decBase)).
		Uint64Var(&kparser.numConns)
	app.Flag("runtime-seconds", "Duration of every phase in seconds "+
		"(omitting it forces a dry run)").
		PlaceHolder("[<pos. int.>]").
		Short('s').
		SetValue(kparser.runtime)
	app.Flag("dry-run", "Send a single request per connection and exit").
		BoolVar(&kparser.dryRun)
	app.Flag("user", "Basic authentication credentials as <name>:<password>").
		Short('u').
		StringVar(&kparser.user)
	app.Flag("token", "Bearer token").
		Short('T').
		StringVar(&kparser.token)
	app.Flag("cert-path", "Directory holding "+certFileName+" and "+
		keyFileName+" for mutual TLS").
		StringVar(&kparser.certPath)
	app.Flag("body", "Request body").
		Short('b').
		SetValue(kparser.body)
	app.Flag("metrics-path", "Directory of the CSV report").
		PlaceHolder(defaultMetricsPath).
		StringVar(&kparser.metricsPath)
	app.Flag("name", "Run name, used for the CSV file and the default phase").
		Short('n').
		PlaceHolder(defaultName).
		StringVar(&kparser.name)
	app.Flag("method", "Request method").
		PlaceHolder(defaultMethod).
		Short('m').
		StringVar(&kparser.method)
	app.Flag("header", "HTTP headers to use(can be repeated)").
		PlaceHolder("\"K: V\"").
		Short('H').
		SetValue(kparser.headers)
	app.Flag("timeout", "Connect, handshake and per-request timeout").
		PlaceHolder(defaultTimeout.String()).
		Short('t').
		DurationVar(&kparser.timeout)
	app.Flag("rate", "Rate limit in requests per second").
		PlaceHolder("[<pos. int.>]").
		Short('r').
		SetValue(kparser.rate)
	app.Flag("insecure",
		"Controls whether a client verifies the server's certificate"+
			" chain and host name").
		Short('k').
		BoolVar(&kparser.insecure)
	app.Flag("connection-mode", "keep-alive reuses connections, new "+
		"reconnects before every request").
		PlaceHolder(string(defaultConnectionMode)).
		EnumVar(&kparser.connectionMode,
			string(keepAliveMode), string(newConnectionMode))
	app.Flag("on-failure", "What a connection does after a failed request: "+
		"abort or retry").
		PlaceHolder(string(defaultFailurePolicy)).
		EnumVar(&kparser.onFailure,
			string(abortOnFailure), string(retryOnFailure))
	app.Flag("async", "Drive connections through the non-blocking API").
		BoolVar(&kparser.async)
	app.Flag("phases", "YAML file listing the phases to run").
		StringVar(&kparser.phasesPath)
	app.Flag("latencies", "Print latency distribution").
		Short('l').
		BoolVar(&kparser.latencies)
	app.Flag("print", "Specifies what to output. Comma-separated list of "+
		"values 'intro' (short: 'i'), 'progress' (short: 'p'), "+
		"'result' (short: 'r').").
		PlaceHolder("<spec>").
		Short('p').
		SetValue(kparser.printSpec)
	app.Flag("no-print", "Don't output anything").
		Short('q').
		BoolVar(&kparser.noPrint)
	app.Flag("format", "Which format to use to output the result. "+
		"plain-text (short: pt), json (short: j) or "+
		"path:<template file>").
		PlaceHolder("<spec>").
		Short('o').
		StringVar(&kparser.formatSpec)
	app.Flag("log-level", "Log level: debug, info, warn or error").
		PlaceHolder(defaultLogLevel).
		StringVar(&kparser.logLevel)

	kparser.app = app
	return argsParser(kparser)
}

func (k *kingpinParser) parse(args []string) (config, error) {
	k.app.Name = args[0]
	_, err := k.app.Parse(args[1:])
	if err != nil {
		return emptyConf, err
	}
	pi, pp, pr := true, true, true
	if k.printSpec.val != nil {
		pi, pp, pr, err = parsePrintSpec(*k.printSpec.val)
		if err != nil {
			return emptyConf, err
		}
	}
	if k.noPrint {
		pi, pp, pr = false, false, false
	}
	format := formatFromString(k.formatSpec)
	if format == nil {
		return emptyConf, fmt.Errorf(
			"unknown format or invalid format spec %q", k.formatSpec,
		)
	}
	return config{
		host:           k.host,
		port:           k.port,
		target:         k.target,
		httpVersion:    k.httpVersion,
		numConns:       k.numConns,
		runtime:        k.runtime.val,
		dryRun:         k.dryRun,
		rate:           k.rate.val,
		timeout:        k.timeout,
		method:         k.method,
		body:           k.body.val,
		headers:        k.headers,
		user:           k.user,
		token:          k.token,
		certPath:       k.certPath,
		insecure:       k.insecure,
		metricsPath:    k.metricsPath,
		name:           k.name,
		phasesPath:     k.phasesPath,
		connectionMode: connectionMode(k.connectionMode),
		onFailure:      failurePolicy(k.onFailure),
		async:          k.async,
		printLatencies: k.latencies,
		printIntro:     pi,
		printProgress:  pp,
		printResult:    pr,
		format:         format,
		logLevel:       k.logLevel,
	}, nil
}

func parsePrintSpec(spec string) (bool, bool, bool, error) {
	pi, pp, pr := false, false, false
	if spec == "" {
		return false, false, false, errEmptyPrintSpec
	}
	parts := strings.Split(spec, ",")
	partsCount := 0
	for _, p := range parts {
		switch p {
		case "i", "intro":
			pi = true
		case "p", "progress":
			pp = true
		case "r", "result":
			pr = true
		default:
			return false, false, false,
				fmt.Errorf("%q is not a valid part of print spec", p)
		}
		partsCount++
	}
	if partsCount < 1 || partsCount > 3 {
		return false, false, false,
			fmt.Errorf(
				"spec %q has too many parts, at most 3 are allowed", spec,
			)
	}
	return pi, pp, pr, nil
}
