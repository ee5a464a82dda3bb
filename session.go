package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// result is the outcome of one completed exchange.
type result struct {
	status  status
	code    int
	payload []byte
	latency time.Duration
}

type sessionOpts struct {
	id        uint64
	host      string
	port      uint16
	timeout   time.Duration
	tlsConfig *tls.Config
	dialer    *dialer
	reactor   *reactor
}

// session owns one logical TLS connection. At most one request is in
// flight at a time, whichever API started it.
type session struct {
	id        uint64
	host      string
	port      uint16
	timeout   time.Duration
	tlsConfig *tls.Config
	dialer    *dialer
	strand    *strand
	logger    *log.Entry

	mu       sync.Mutex
	state    streamState
	conn     *tls.Conn
	br       *bufio.Reader
	bw       *bufio.Writer
	inFlight bool
	pending  *future[result]
}

func newSession(opts sessionOpts) *session {
	tc := opts.tlsConfig.Clone()
	if tc.ServerName == "" {
		tc.ServerName = opts.host
	}
	return &session{
		id:        opts.id,
		host:      opts.host,
		port:      opts.port,
		timeout:   opts.timeout,
		tlsConfig: tc,
		dialer:    opts.dialer,
		strand:    newStrand(opts.reactor),
		logger: log.WithFields(log.Fields{
			"session": opts.id,
			"host":    opts.host,
			"port":    opts.port,
		}),
		state: stateClosed,
	}
}

func (s *session) streamState() streamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateConnected && s.conn != nil
}

// apply runs the state machine for ev and performs its effect on the
// transport. Must be called with s.mu held.
func (s *session) apply(ev streamEvent) {
	var eff effect
	s.state, eff = transition(s.state, ev)
	if s.conn == nil || eff == effectNone {
		return
	}
	conn := s.conn
	s.conn, s.br, s.bw = nil, nil, nil
	var err error
	switch eff {
	case effectShutdown:
		err = conn.Close()
	case effectDiscard:
		err = conn.NetConn().Close()
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.WithError(err).Debug("closing transport")
	}
}

func (s *session) connect(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.mu.Lock()
	if s.conn != nil {
		s.apply(eventReconnect)
	}
	s.mu.Unlock()

	raw, err := s.dialer.dial(ctx, s.host, s.port)
	if err != nil {
		s.connectFailed(err)
		return err
	}
	conn := tls.Client(raw, s.tlsConfig)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		err = fmt.Errorf("handshake: %w", err)
		s.connectFailed(err)
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.br = bufio.NewReader(conn)
	s.bw = bufio.NewWriter(conn)
	s.apply(eventHandshakeDone)
	s.mu.Unlock()
	s.logger.Debug("connected")
	return nil
}

func (s *session) connectFailed(err error) {
	s.mu.Lock()
	s.apply(eventConnectFailed)
	s.mu.Unlock()
	s.logger.WithError(err).Warn("connect failed")
}

// reconnect drops whatever transport the session holds and connects
// again with fresh buffers.
func (s *session) reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.apply(eventReconnect)
	s.mu.Unlock()
	return s.connect(ctx)
}

// connectAsync runs connect on the session's strand.
func (s *session) connectAsync(ctx context.Context) *future[struct{}] {
	f := newFuture[struct{}]()
	stopped := func() { f.reject(errReactorStopped) }
	posted := s.strand.submit(func() {
		if err := s.connect(ctx); err != nil {
			f.reject(err)
			return
		}
		f.resolve(struct{}{})
	}, stopped)
	if !posted {
		stopped()
	}
	return f
}

// begin claims the in-flight slot and hands out the transport.
func (s *session) begin(f *future[result]) (*tls.Conn, *bufio.Reader, *bufio.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return nil, nil, nil, errRequestInFlight
	}
	if s.state != stateConnected || s.conn == nil {
		return nil, nil, nil, errNotConnected
	}
	s.inFlight = true
	s.pending = f
	return s.conn, s.br, s.bw, nil
}

// finish releases the in-flight slot. Sync and async exchanges both end
// here, so state handling is identical for the two paths.
func (s *session) finish(res result, ev streamEvent, err error) {
	s.mu.Lock()
	s.apply(ev)
	f := s.pending
	s.pending = nil
	s.inFlight = false
	state := s.state
	s.mu.Unlock()

	if err != nil {
		entry := s.logger.WithError(err).WithField("state", state)
		if ev == eventEndOfStream {
			entry.Debug("peer closed the stream")
		} else {
			entry.Warn("request failed")
		}
	}
	if f == nil {
		return
	}
	if err != nil {
		f.reject(err)
		return
	}
	f.resolve(res)
}

// send performs a blocking exchange.
func (s *session) send(req *request) (result, error) {
	conn, br, bw, err := s.begin(nil)
	if err != nil {
		return result{}, err
	}
	start := s.armDeadline(conn)
	if err := writeRequest(bw, req); err != nil {
		s.finish(result{}, eventTransportError, err)
		return result{}, err
	}
	res, ev, err := readResponse(br, req, start)
	s.finish(res, ev, err)
	return res, err
}

// sendAsync starts an exchange on the strand and returns its slot. The
// write and the read run as separate strand callbacks. The read
// continuation blocks its reactor worker until the response arrives or
// the deadline fires; that is fine since the reactor has one worker per
// session and a session has at most one request in flight.
func (s *session) sendAsync(req *request) *future[result] {
	f := newFuture[result]()
	conn, br, bw, err := s.begin(f)
	if err != nil {
		f.reject(err)
		return f
	}
	stopped := func() { s.finish(result{}, eventTransportError, errReactorStopped) }
	posted := s.strand.submit(func() {
		start := s.armDeadline(conn)
		if err := writeRequest(bw, req); err != nil {
			s.finish(result{}, eventTransportError, err)
			return
		}
		posted := s.strand.submit(func() {
			res, ev, err := readResponse(br, req, start)
			s.finish(res, ev, err)
		}, stopped)
		if !posted {
			stopped()
		}
	}, stopped)
	if !posted {
		stopped()
	}
	return f
}

// armDeadline bounds the coming exchange and returns its start time.
func (s *session) armDeadline(conn *tls.Conn) time.Time {
	now := time.Now()
	if s.timeout > 0 {
		_ = conn.SetDeadline(now.Add(s.timeout))
	}
	return now
}

// disconnect closes the transport on a best-effort basis.
func (s *session) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		s.state = stateClosed
		return
	}
	s.apply(eventDisconnect)
}

func writeRequest(bw *bufio.Writer, req *request) error {
	if _, err := bw.Write(req.raw()); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// readResponse reads one complete response with no limit on the body
// size. The returned event tells the state machine how the exchange
// ended.
func readResponse(br *bufio.Reader, req *request, start time.Time) (result, streamEvent, error) {
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	if req.method == fasthttp.MethodHead {
		resp.SkipBody = true
	}
	if err := resp.Read(br); err != nil {
		if errors.Is(err, io.EOF) {
			return result{}, eventEndOfStream, errNoResponse
		}
		return result{}, eventTransportError, fmt.Errorf("read: %w", err)
	}
	code := resp.StatusCode()
	res := result{
		status:  classifyStatus(code),
		code:    code,
		payload: append([]byte(nil), resp.Body()...),
		latency: time.Since(start),
	}
	if resp.ConnectionClose() {
		return res, eventConnectionClose, nil
	}
	return res, eventResponse, nil
}
