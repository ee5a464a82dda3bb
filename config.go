package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goware/urlx"
)

type connectionMode string

const (
	keepAliveMode     connectionMode = "keep-alive"
	newConnectionMode connectionMode = "new"
)

type failurePolicy string

const (
	abortOnFailure failurePolicy = "abort"
	retryOnFailure failurePolicy = "retry"
)

type config struct {
	host        string
	port        uint16
	target      string
	httpVersion uint

	numConns uint64
	runtime  *uint64
	dryRun   bool
	rate     *uint64
	timeout  time.Duration

	method  string
	body    *string
	headers *headersList

	user, token, certPath string
	insecure              bool

	metricsPath, name string
	phasesPath        string
	phases            []phaseSpec

	connectionMode connectionMode
	onFailure      failurePolicy
	async          bool

	printLatencies                        bool
	printIntro, printProgress, printResult bool
	format                                format
	logLevel                              string
}

type invalidHTTPMethodError struct {
	method string
}

func (i *invalidHTTPMethodError) Error() string {
	return fmt.Sprintf("unknown HTTP method: %v", i.method)
}

// checkArgs validates the configuration and fills in everything derived
// from it: host and port split, dry-run forcing and the phase list.
func (c *config) checkArgs() error {
	if err := c.checkHost(); err != nil {
		return err
	}
	if err := checkTarget(c.target); err != nil {
		return err
	}
	if c.port == 0 {
		return errInvalidPort
	}
	if c.httpVersion != 10 && c.httpVersion != 11 {
		return errInvalidHTTPVersion
	}
	if c.numConns < uint64(1) {
		return errInvalidNumberOfConns
	}
	if c.runtime != nil && *c.runtime < 1 && !c.dryRun {
		return errInvalidRuntime
	}
	if c.timeout < 0 {
		return errNegativeTimeout
	}
	if c.rate != nil && *c.rate < 1 {
		return errZeroRate
	}
	if err := checkMethodAndBody(c.method, c.body); err != nil {
		return err
	}
	if c.connectionMode == "" {
		c.connectionMode = defaultConnectionMode
	}
	if c.onFailure == "" {
		c.onFailure = defaultFailurePolicy
	}
	if c.format == nil {
		c.format = knownFormat("plain-text")
	}
	if err := c.loadPhases(); err != nil {
		return err
	}
	if c.runtime == nil && !c.anyPhaseRuntime() {
		c.dryRun = true
	}
	return nil
}

// anyPhaseRuntime reports whether the phases file gave some phase its
// own runtime.
func (c *config) anyPhaseRuntime() bool {
	for _, p := range c.phases {
		if p.runtime != nil {
			return true
		}
	}
	return false
}

// checkHost accepts a bare host, host:port or an https URL. A port
// embedded in the host wins over --port.
func (c *config) checkHost() error {
	if strings.TrimSpace(c.host) == "" {
		return errEmptyHost
	}
	u, err := urlx.Parse(c.host)
	if err != nil {
		return err
	}
	if strings.Contains(c.host, "://") && u.Scheme != "https" {
		return errUnsupportedScheme
	}
	host, port, err := urlx.SplitHostPort(u)
	if err != nil {
		return err
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return errEmptyHost
	}
	c.host = host
	if port != "" {
		p, err := strconv.ParseUint(port, decBase, 16)
		if err != nil || p == 0 {
			return errInvalidPort
		}
		c.port = uint16(p)
	}
	return nil
}

func checkTarget(target string) error {
	if target == "" {
		return errEmptyTarget
	}
	if !strings.HasPrefix(target, "/") {
		return errTargetNotAbsolute
	}
	return nil
}

func checkMethodAndBody(method string, body *string) error {
	if !allowedHTTPMethod(method) {
		return &invalidHTTPMethodError{method: method}
	}
	if !canHaveBody(method) && body != nil && len(*body) > 0 {
		return errBodyNotAllowed
	}
	return nil
}

func (c *config) authMethod() authMethod {
	return resolveAuthMethod(c.certPath, c.user, c.token)
}

// phaseDuration is how long a phase runs. Zero means one iteration per
// session, which is also what a phase without any runtime gets.
func (c *config) phaseDuration(p phaseSpec) time.Duration {
	if c.dryRun {
		return 0
	}
	return c.configuredDuration(p)
}

func (c *config) configuredDuration(p phaseSpec) time.Duration {
	switch {
	case p.runtime != nil:
		return time.Duration(*p.runtime) * time.Second
	case c.runtime != nil:
		return time.Duration(*c.runtime) * time.Second
	}
	return 0
}

// reportDuration is the denominator of requests/sec for a phase.
func (c *config) reportDuration(p phaseSpec) time.Duration {
	if d := c.configuredDuration(p); d > 0 {
		return d
	}
	return oneSecond
}

func (c *config) requestSpec(p phaseSpec) requestSpec {
	return requestSpec{
		method:       p.method,
		target:       p.target,
		host:         c.host,
		httpVersion:  c.httpVersion,
		auth:         c.authMethod(),
		user:         c.user,
		token:        c.token,
		extraHeaders: p.headers,
		body:         p.body,
	}
}

func allowedHTTPMethod(method string) bool {
	i := sort.SearchStrings(httpMethods, method)
	return i < len(httpMethods) && httpMethods[i] == method
}

func canHaveBody(method string) bool {
	i := sort.SearchStrings(cantHaveBody, method)
	return !(i < len(cantHaveBody) && cantHaveBody[i] == method)
}
