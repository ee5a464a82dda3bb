package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
)

type countingConn struct {
	net.Conn
	bytesRead, bytesWritten *int64
}

func (cc *countingConn) Read(b []byte) (n int, err error) {
	n, err = cc.Conn.Read(b)

	if n > 0 {
		atomic.AddInt64(cc.bytesRead, int64(n))
	}

	return
}

func (cc *countingConn) Write(b []byte) (n int, err error) {
	n, err = cc.Conn.Write(b)

	if n > 0 {
		atomic.AddInt64(cc.bytesWritten, int64(n))
	}

	return
}

// resolver is satisfied by *net.Resolver.
type resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type dialer struct {
	resolver resolver
	dialer   net.Dialer

	bytesRead, bytesWritten *int64
}

func newDialer(bytesRead, bytesWritten *int64) *dialer {
	return &dialer{
		resolver:     net.DefaultResolver,
		bytesRead:    bytesRead,
		bytesWritten: bytesWritten,
	}
}

// dial resolves host and tries each address in turn, returning the
// first TCP connection that succeeds.
func (d *dialer) dial(ctx context.Context, host string, port uint16) (net.Conn, error) {
	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	var lastErr error
	for _, addr := range addrs {
		conn, err := d.dialer.DialContext(ctx, "tcp",
			net.JoinHostPort(addr, strconv.Itoa(int(port))))
		if err != nil {
			lastErr = err
			continue
		}
		return &countingConn{
			Conn:         conn,
			bytesRead:    d.bytesRead,
			bytesWritten: d.bytesWritten,
		}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses for %s", host)
	}
	return nil, fmt.Errorf("connect: %w", lastErr)
}
