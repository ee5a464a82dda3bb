package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/codesenberg/pulse/internal"

	"github.com/cenkalti/backoff/v4"
	"github.com/cheggaaa/pb"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// dispatcher runs every configured phase against one target and owns
// everything the phases share: the reactor, the TLS context, the
// collector and the report.
type dispatcher struct {
	conf      config
	runID     string
	metrics   *metrics
	reactor   *reactor
	tlsConfig *tls.Config
	dialer    *dialer
	report    *csvReport
	logger    *log.Entry

	nextSessionID uint64

	bmu         sync.Mutex
	barrier     completionBarrier
	interrupted bool

	out      io.Writer
	template *template.Template
}

func newDispatcher(c config) (*dispatcher, error) {
	if err := c.checkArgs(); err != nil {
		return nil, err
	}
	d := new(dispatcher)
	d.conf = c
	d.runID = uuid.NewV4().String()
	d.logger = log.WithField("run", d.runID)
	d.metrics = newMetrics()
	d.dialer = newDialer(&d.metrics.bytesRead, &d.metrics.bytesWritten)
	d.out = os.Stdout

	method := c.authMethod()
	if method == authBasic && !validCredentials(c.user) {
		d.logger.WithField("user", c.user).
			Warn("basic credentials should look like <name>:<password>")
	}
	d.tlsConfig = generateTLSConfig(c)

	var err error
	d.template, err = d.prepareTemplate()
	if err != nil {
		return nil, err
	}

	d.report, err = newCSVReport(c.metricsPath, c.name)
	if err != nil {
		d.logger.WithError(err).WithField("path", c.metricsPath).
			Error("can't create the CSV report, rows will be skipped")
		d.report = nil
	}

	d.reactor = newReactor(int(c.numConns))
	d.logger.WithFields(log.Fields{
		"auth":        method,
		"connections": c.numConns,
		"phases":      len(c.phases),
	}).Debug("dispatcher ready")
	return d, nil
}

func (d *dispatcher) prepareTemplate() (*template.Template, error) {
	var (
		templateBytes []byte
		err           error
	)
	switch f := d.conf.format.(type) {
	case knownFormat:
		templateBytes = f.template()
	case userDefinedTemplate:
		templateBytes, err = os.ReadFile(string(f))
		if err != nil {
			return nil, err
		}
	default:
		panic("format can't be nil at this point, this is a bug")
	}
	return template.New("output-template").
		Funcs(template.FuncMap{
			"WithLatencies": func() bool {
				return d.conf.printLatencies
			},
			"FormatBinary": formatBinary,
			"FormatTimeUs": formatTimeUs,
			"FormatTimeUsUint64": func(us uint64) string {
				return formatTimeUs(float64(us))
			},
			"FormatMs": formatMs,
			"FloatsToArray": func(ps ...float64) []float64 {
				return ps
			},
			"Multiply": func(num, coeff float64) float64 {
				return num * coeff
			},
			"StringToBytes": func(s string) []byte {
				return []byte(s)
			},
			"UUIDV1": uuid.NewV1,
			"UUIDV2": uuid.NewV2,
			"UUIDV3": uuid.NewV3,
			"UUIDV4": uuid.NewV4,
			"UUIDV5": uuid.NewV5,
		}).Parse(string(templateBytes))
}

// run executes the phases in order and shuts the reactor down.
func (d *dispatcher) run(ctx context.Context) {
	defer d.shutdown()
	for _, p := range d.conf.phases {
		if d.isInterrupted() {
			d.logger.Info("interrupted, skipping remaining phases")
			break
		}
		d.emit(d.runPhase(ctx, p))
		d.metrics.clear()
	}
}

func (d *dispatcher) shutdown() {
	d.reactor.release()
	d.reactor.stop()
}

// interrupt ends the running phase after in-flight requests complete
// and keeps later phases from starting.
func (d *dispatcher) interrupt() {
	d.bmu.Lock()
	defer d.bmu.Unlock()
	d.interrupted = true
	if d.barrier != nil {
		d.barrier.cancel()
	}
}

func (d *dispatcher) isInterrupted() bool {
	d.bmu.Lock()
	defer d.bmu.Unlock()
	return d.interrupted
}

func (d *dispatcher) setBarrier(b completionBarrier) {
	d.bmu.Lock()
	defer d.bmu.Unlock()
	d.barrier = b
	if d.interrupted {
		b.cancel()
	}
}

func (d *dispatcher) newSessions() []*session {
	sessions := make([]*session, d.conf.numConns)
	for i := range sessions {
		sessions[i] = newSession(sessionOpts{
			id:        atomic.AddUint64(&d.nextSessionID, 1),
			host:      d.conf.host,
			port:      d.conf.port,
			timeout:   d.conf.timeout,
			tlsConfig: d.tlsConfig,
			dialer:    d.dialer,
			reactor:   d.reactor,
		})
	}
	return sessions
}

func (d *dispatcher) newBarrier(duration time.Duration) completionBarrier {
	if duration > 0 {
		return newTimedCompletionBarrier(duration)
	}
	return newCountingCompletionBarrier(d.conf.numConns)
}

func (d *dispatcher) newBar(duration time.Duration) *pb.ProgressBar {
	var bar *pb.ProgressBar
	if duration > 0 {
		bar = pb.New64(duration.Nanoseconds() / 1e9)
		bar.ShowCounters = false
		bar.ShowPercent = false
	} else {
		bar = pb.New64(int64(d.conf.numConns))
		bar.ShowSpeed = true
	}
	bar.ManualUpdate = true
	bar.Output = d.out
	if !d.conf.printProgress {
		bar.Output = io.Discard
		bar.NotPrint = true
	}
	return bar
}

// runPhase drives every session of one phase until the barrier closes
// and returns what the collector saw.
func (d *dispatcher) runPhase(ctx context.Context, p phaseSpec) internal.PhaseInfo {
	req := newRequest(d.conf.requestSpec(p))
	logger := d.logger.WithField("phase", p.name)
	duration := d.conf.phaseDuration(p)
	sessions := d.newSessions()
	lim := newLimiter(d.conf.rate)

	if d.conf.printIntro {
		d.printIntro(p, duration)
	}
	bar := d.newBar(duration)
	barrier := d.newBarrier(duration)
	d.setBarrier(barrier)

	bar.Start()
	phaseBegin := time.Now()
	d.metrics.restartInterval()

	stopMeter := make(chan struct{})
	var helpers sync.WaitGroup
	helpers.Add(2)
	go func() {
		defer helpers.Done()
		d.rateMeter(stopMeter)
	}()
	go func() {
		defer helpers.Done()
		d.barUpdater(bar, barrier)
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		s := s
		eg.Go(func() error {
			d.loop(egCtx, s, req, barrier, lim, logger)
			return nil
		})
	}
	_ = eg.Wait()
	timeTaken := time.Since(phaseBegin)

	barrier.cancel()
	close(stopMeter)
	helpers.Wait()
	d.metrics.recordRps()

	for _, s := range sessions {
		s.disconnect()
	}
	logger.WithField("took", timeTaken).Debug("phase finished")

	info := internal.PhaseInfo{
		Spec:   d.phaseSpecInfo(p),
		Result: d.metrics.snapshot(),
	}
	info.Result.TimeTaken = timeTaken
	return info
}

// loop is one session's request loop.
func (d *dispatcher) loop(
	ctx context.Context, s *session, req *request,
	barrier completionBarrier, lim limiter, logger *log.Entry,
) {
	logger = logger.WithField("session", s.id)
	done := barrier.done()
	var retry backoff.BackOff
	for barrier.tryGrabWork() {
		if lim.pace(done) == brk {
			break
		}
		ok := d.exchange(ctx, s, req, logger)
		barrier.jobDone()
		if d.conf.dryRun {
			return
		}
		if ok {
			if retry != nil {
				retry.Reset()
			}
			continue
		}
		if d.conf.onFailure == abortOnFailure {
			logger.Warn("request failed, ending the loop of this session")
			return
		}
		if retry == nil {
			retry = d.newRetryBackOff()
		}
		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			logger.Warn("giving up retrying")
			return
		}
		select {
		case <-time.After(wait):
		case <-done:
			return
		}
	}
}

func (d *dispatcher) newRetryBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// exchange performs one iteration: reconnect if needed, send, record.
// It reports whether a response was obtained.
func (d *dispatcher) exchange(
	ctx context.Context, s *session, req *request, logger *log.Entry,
) bool {
	if d.conf.connectionMode == newConnectionMode || !s.isConnected() {
		if err := d.connect(ctx, s); err != nil {
			logger.WithError(err).Warn("reconnect failed")
			d.metrics.recordRequest()
			d.metrics.recordFail(err)
			return false
		}
	}
	d.metrics.recordRequest()
	res, err := d.send(ctx, s, req)
	if err != nil {
		d.metrics.recordFail(err)
		return false
	}
	d.metrics.recordResponse(res.latency, res.status)
	if res.latency > slowResponseThreshold {
		logger.WithFields(log.Fields{
			"latency": res.latency,
			"status":  res.status,
		}).Info("slow response")
	}
	return true
}

func (d *dispatcher) connect(ctx context.Context, s *session) error {
	if d.conf.async {
		_, err := s.connectAsync(ctx).wait(ctx)
		return err
	}
	return s.reconnect(ctx)
}

func (d *dispatcher) send(ctx context.Context, s *session, req *request) (result, error) {
	if d.conf.async {
		return s.sendAsync(req).wait(ctx)
	}
	return s.send(req)
}

func (d *dispatcher) barUpdater(bar *pb.ProgressBar, barrier completionBarrier) {
	done := barrier.done()
	for {
		select {
		case <-done:
			bar.Set64(bar.Total)
			bar.Update()
			bar.Finish()
			if d.conf.printProgress {
				fmt.Fprintln(d.out, "Done!")
			}
			return
		default:
			current := int64(barrier.completed() * float64(bar.Total))
			bar.Set64(current)
			bar.Update()
			time.Sleep(bar.RefreshRate)
		}
	}
}

func (d *dispatcher) rateMeter(stop <-chan struct{}) {
	requestsInterval := 10 * time.Millisecond
	if d.conf.rate != nil {
		requestsInterval, _ = estimate(*d.conf.rate, rateLimitInterval)
	}
	requestsInterval += 10 * time.Millisecond
	ticker := time.NewTicker(requestsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.metrics.recordRps()
		case <-stop:
			return
		}
	}
}

func (d *dispatcher) printIntro(p phaseSpec, duration time.Duration) {
	url := "https://" + d.conf.host + p.target
	if duration > 0 {
		fmt.Fprintf(d.out,
			"Phase %q: %v %v for %v using %v connection(s)\n",
			p.name, p.method, url, duration, d.conf.numConns)
		return
	}
	fmt.Fprintf(d.out,
		"Phase %q: dry run of %v %v using %v connection(s)\n",
		p.name, p.method, url, d.conf.numConns)
}

func (d *dispatcher) phaseSpecInfo(p phaseSpec) internal.Spec {
	s := internal.Spec{
		RunID: d.runID,
		Name:  p.name,

		Host:        d.conf.host,
		Port:        d.conf.port,
		Target:      p.target,
		Method:      p.method,
		HTTPVersion: d.conf.httpVersion,

		NumberOfConnections: d.conf.numConns,
		Duration:            d.conf.reportDuration(p),
		DryRun:              d.conf.dryRun,
		Async:               d.conf.async,

		ConnectionMode: string(d.conf.connectionMode),
		OnFailure:      string(d.conf.onFailure),
		AuthMethod:     d.conf.authMethod().String(),

		CertPath: d.conf.certPath,
		Timeout:  d.conf.timeout,
		Rate:     d.conf.rate,
	}
	if p.body != nil {
		s.Body = *p.body
	}
	if p.headers != nil {
		for _, h := range *p.headers {
			s.Headers = append(s.Headers, internal.Header{
				Key:   h.key,
				Value: h.value,
			})
		}
	}
	return s
}

// emit prints the phase summary and appends its CSV row. Neither
// failure stops the run.
func (d *dispatcher) emit(info internal.PhaseInfo) {
	if d.conf.printResult {
		if err := d.template.Execute(d.out, info); err != nil {
			d.logger.WithError(err).Error("can't print the phase summary")
		}
	}
	if d.report == nil {
		return
	}
	if err := d.report.append(info); err != nil {
		d.logger.WithError(err).WithField("path", d.report.path).
			Error("can't append to the CSV report")
	}
}

func (d *dispatcher) redirectOutputTo(out io.Writer) {
	d.out = out
}

func (d *dispatcher) disableOutput() {
	d.redirectOutputTo(io.Discard)
	d.conf.printProgress = false
}

func configureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return nil
}

func main() {
	cfg, err := parser.parse(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(exitFailure)
	}
	if err := configureLogging(cfg.logLevel); err != nil {
		fmt.Println(err)
		os.Exit(exitFailure)
	}
	d, err := newDispatcher(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(exitFailure)
	}
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		d.interrupt()
	}()
	d.run(context.Background())
}
