package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTarget struct {
	*httptest.Server
	handled  uint64
	accepted uint64
}

// newTestTarget serves h over TLS and counts handled requests and
// accepted connections.
func newTestTarget(t *testing.T, h http.HandlerFunc) *testTarget {
	t.Helper()
	tt := new(testTarget)
	tt.Server = httptest.NewUnstartedServer(http.HandlerFunc(
		func(rw http.ResponseWriter, r *http.Request) {
			atomic.AddUint64(&tt.handled, 1)
			h(rw, r)
		}))
	tt.Config.ConnState = func(_ net.Conn, cs http.ConnState) {
		if cs == http.StateNew {
			atomic.AddUint64(&tt.accepted, 1)
		}
	}
	tt.StartTLS()
	t.Cleanup(tt.Close)
	return tt
}

func okHandler(rw http.ResponseWriter, r *http.Request) {
	_, _ = rw.Write([]byte("ok"))
}

func runtimeOf(seconds uint64) *uint64 {
	return &seconds
}

func targetConfig(t *testing.T, tt *testTarget) config {
	t.Helper()
	host, port := splitServerAddr(t, tt.Listener.Addr().String())
	return config{
		host:          host,
		port:          port,
		target:        "/ok",
		httpVersion:   11,
		numConns:      1,
		timeout:       2 * time.Second,
		method:        "GET",
		headers:       new(headersList),
		token:         "secret",
		insecure:      true,
		metricsPath:   t.TempDir(),
		name:          "scenario",
		format:        knownFormat("plain-text"),
		printResult:   true,
		printProgress: false,
	}
}

func newTestDispatcher(t *testing.T, c config) (*dispatcher, *bytes.Buffer) {
	t.Helper()
	d, err := newDispatcher(c)
	require.NoError(t, err)
	out := new(bytes.Buffer)
	d.disableOutput()
	d.redirectOutputTo(out)
	return d, out
}

func TestDispatcherDryRunSendsOneRequest(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	d, out := newTestDispatcher(t, c)
	require.True(t, d.conf.dryRun)

	defer d.shutdown()
	info := d.runPhase(context.Background(), d.conf.phases[0])
	d.emit(info)

	r := info.Result
	assert.EqualValues(t, 1, r.TotalRequests)
	assert.EqualValues(t, 1, r.TotalResponses)
	assert.EqualValues(t, 1, r.Success)
	assert.EqualValues(t, 0, r.Failed)
	assert.Len(t, r.Samples, 1)
	assert.Equal(t, time.Second, info.Spec.Duration)
	assert.InDelta(t, 1.0, info.RequestsPerSecond(), 1e-9)
	assert.EqualValues(t, 1, atomic.LoadUint64(&tt.handled))

	assert.Contains(t, out.String(), "Total Requests: 1")
	assert.Contains(t, out.String(), "Total Responses: 1")

	data, err := os.ReadFile(filepath.Join(c.metricsPath, "scenario.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "API,Threads,Connections,Latency (ms),Requests/sec", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "/ok,1,1,"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ",1.00"), lines[1])
}

func TestDispatcherReconnectsAfterConnectionClose(t *testing.T) {
	tt := newTestTarget(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Connection", "close")
		okHandler(rw, r)
	})
	c := targetConfig(t, tt)
	c.runtime = runtimeOf(1)
	d, _ := newTestDispatcher(t, c)
	defer d.shutdown()

	info := d.runPhase(context.Background(), d.conf.phases[0])
	r := info.Result
	require.True(t, r.TotalRequests > 0)
	assert.EqualValues(t, 0, r.Failed)
	assert.Equal(t, r.TotalRequests, r.Success)
	assert.Equal(t, r.TotalRequests, atomic.LoadUint64(&tt.accepted))
}

func TestDispatcherConcurrentSessionsKeepTally(t *testing.T) {
	for _, async := range []bool{false, true} {
		tt := newTestTarget(t, okHandler)
		c := targetConfig(t, tt)
		c.numConns = 3
		c.runtime = runtimeOf(1)
		c.async = async
		d, _ := newTestDispatcher(t, c)

		info := d.runPhase(context.Background(), d.conf.phases[0])
		d.shutdown()

		r := info.Result
		require.True(t, r.TotalRequests > 0, "async=%v", async)
		assert.Equal(t, atomic.LoadUint64(&tt.handled), r.TotalRequests)
		assert.Equal(t, r.TotalRequests, r.TotalResponses)
		assert.Equal(t, r.TotalResponses, uint64(len(r.Samples)))
		assert.EqualValues(t, 3, atomic.LoadUint64(&tt.accepted))
	}
}

func TestDispatcherAbortsSessionOnFailure(t *testing.T) {
	tt := newTestTarget(t, func(rw http.ResponseWriter, r *http.Request) {
		c, _, err := rw.(http.Hijacker).Hijack()
		if err == nil {
			c.Close()
		}
	})
	c := targetConfig(t, tt)
	c.numConns = 2
	c.runtime = runtimeOf(10)
	d, _ := newTestDispatcher(t, c)
	defer d.shutdown()

	info := d.runPhase(context.Background(), d.conf.phases[0])
	r := info.Result
	assert.EqualValues(t, 2, r.TotalRequests)
	assert.EqualValues(t, 2, r.Failed)
	assert.EqualValues(t, 0, r.TotalResponses)
	assert.True(t, info.Result.TimeTaken < 5*time.Second)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, errNoResponse.Error(), r.Errors[0].Error)
	assert.Nil(t, r.LatencyStats())
}

func TestDispatcherRetriesOnFailure(t *testing.T) {
	var calls uint64
	tt := newTestTarget(t, func(rw http.ResponseWriter, r *http.Request) {
		if atomic.AddUint64(&calls, 1) == 1 {
			c, _, err := rw.(http.Hijacker).Hijack()
			if err == nil {
				c.Close()
			}
			return
		}
		okHandler(rw, r)
	})
	c := targetConfig(t, tt)
	c.runtime = runtimeOf(1)
	c.onFailure = retryOnFailure
	d, _ := newTestDispatcher(t, c)
	defer d.shutdown()

	r := d.runPhase(context.Background(), d.conf.phases[0]).Result
	assert.EqualValues(t, 1, r.Failed)
	assert.True(t, r.Success > 0)
	assert.Equal(t, r.TotalRequests, r.Failed+r.Success)
}

func TestDispatcherCountsConnectFailures(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := splitServerAddr(t, l.Addr().String())
	l.Close()

	c := config{
		host: host, port: port, target: "/", httpVersion: 11, numConns: 1,
		timeout: time.Second, method: "GET", metricsPath: t.TempDir(),
		name: "refused", format: knownFormat("plain-text"), printResult: true,
	}
	d, out := newTestDispatcher(t, c)
	defer d.shutdown()

	info := d.runPhase(context.Background(), d.conf.phases[0])
	d.emit(info)
	assert.EqualValues(t, 1, info.Result.TotalRequests)
	assert.EqualValues(t, 1, info.Result.Failed)
	require.Len(t, info.Result.Errors, 1)
	assert.Contains(t, info.Result.Errors[0].Error, "connect")
	assert.Contains(t, out.String(), "No responses received.")
}

func TestDispatcherClassifiesStatuses(t *testing.T) {
	tt := newTestTarget(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNotFound)
	})
	c := targetConfig(t, tt)
	c.numConns = 2
	d, _ := newTestDispatcher(t, c)
	defer d.shutdown()

	r := d.runPhase(context.Background(), d.conf.phases[0]).Result
	assert.EqualValues(t, 2, r.TotalResponses)
	assert.EqualValues(t, 2, r.ClientErrors)
	assert.EqualValues(t, 0, r.Failed)
	require.Len(t, r.Statuses, 1)
	assert.Equal(t, statusNotFound.String(), r.Statuses[0].Status)
}

func TestDispatcherNewConnectionMode(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	c.runtime = runtimeOf(1)
	c.connectionMode = newConnectionMode
	d, _ := newTestDispatcher(t, c)
	defer d.shutdown()

	r := d.runPhase(context.Background(), d.conf.phases[0]).Result
	require.True(t, r.TotalRequests > 1)
	assert.Equal(t, r.TotalRequests, r.Success)
	assert.Equal(t, r.TotalRequests, atomic.LoadUint64(&tt.accepted))
}

func TestDispatcherHonoursRate(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	c.numConns = 2
	c.runtime = runtimeOf(1)
	rate := uint64(10)
	c.rate = &rate
	d, _ := newTestDispatcher(t, c)
	defer d.shutdown()

	r := d.runPhase(context.Background(), d.conf.phases[0]).Result
	assert.True(t, r.TotalRequests >= 5, r.TotalRequests)
	assert.True(t, r.TotalRequests <= 15, r.TotalRequests)
}

func TestDispatcherRunsEveryPhase(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	dir := t.TempDir()
	phases := filepath.Join(dir, "phases.yaml")
	require.NoError(t, os.WriteFile(phases, []byte(`phases:
  - name: version
    target: /version
  - name: create
    method: POST
    target: /items
    body: '{"a":1}'
`), 0o644))
	c := targetConfig(t, tt)
	c.phasesPath = phases
	d, out := newTestDispatcher(t, c)

	d.run(context.Background())

	assert.EqualValues(t, 2, atomic.LoadUint64(&tt.handled))
	assert.Contains(t, out.String(), `Phase version`)
	assert.Contains(t, out.String(), `Phase create`)

	data, err := os.ReadFile(filepath.Join(c.metricsPath, "scenario.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "/version,"))
	assert.True(t, strings.HasPrefix(lines[2], "/items,"))
}

func TestDispatcherPhaseRuntimeWithoutGlobalRuntime(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	c.phasesPath = writePhases(t, `phases:
  - name: soak
    runtime_seconds: 1
  - name: smoke
`)
	d, _ := newTestDispatcher(t, c)
	require.False(t, d.conf.dryRun)
	defer d.shutdown()

	soak := d.runPhase(context.Background(), d.conf.phases[0])
	assert.True(t, soak.Result.TimeTaken >= 900*time.Millisecond, soak.Result.TimeTaken)
	assert.Equal(t, time.Second, soak.Spec.Duration)
	assert.True(t, soak.Result.TotalRequests > 1, soak.Result.TotalRequests)
	assert.InDelta(t, float64(soak.Result.TotalRequests), soak.RequestsPerSecond(), 1e-9)
	d.metrics.clear()

	smoke := d.runPhase(context.Background(), d.conf.phases[1])
	assert.EqualValues(t, 1, smoke.Result.TotalRequests)
	assert.Equal(t, time.Second, smoke.Spec.Duration)
}

func TestDispatcherInterrupt(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	c.runtime = runtimeOf(30)
	d, _ := newTestDispatcher(t, c)

	time.AfterFunc(200*time.Millisecond, d.interrupt)
	start := time.Now()
	d.run(context.Background())
	assert.True(t, time.Since(start) < 10*time.Second)
	assert.True(t, d.isInterrupted())
}

func TestDispatcherJSONOutput(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	c.format = knownFormat("json")
	c.printLatencies = true
	d, out := newTestDispatcher(t, c)

	d.run(context.Background())

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &parsed), out.String())
	result, ok := parsed["result"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, result["totalRequests"])
	assert.EqualValues(t, 1, result["rps"])
}

func TestDispatcherSurvivesUnwritableMetricsPath(t *testing.T) {
	tt := newTestTarget(t, okHandler)
	c := targetConfig(t, tt)
	blocker := filepath.Join(c.metricsPath, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	c.metricsPath = filepath.Join(blocker, "sub")
	d, out := newTestDispatcher(t, c)
	assert.Nil(t, d.report)

	d.run(context.Background())
	assert.Contains(t, out.String(), "Total Requests: 1")
}

func TestNewDispatcherRejectsInvalidConfig(t *testing.T) {
	_, err := newDispatcher(config{host: "example.com", target: "/"})
	assert.Equal(t, errInvalidPort, err)
}

func TestConfigureLogging(t *testing.T) {
	assert.NoError(t, configureLogging("debug"))
	assert.Error(t, configureLogging("chatty"))
	assert.NoError(t, configureLogging(defaultLogLevel))
}
