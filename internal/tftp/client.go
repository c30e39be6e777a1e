// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package tftp is a minimal RFC 1350 client moving whole images to and
// from a device in octet mode.  A transfer either completes or fails;
// partial data is never returned.
package tftp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPort    = 69
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 10

	// errUnknownTID is the RFC 1350 error code for a stray packet.
	errUnknownTID = 5
)

var (
	ErrRetriesExhausted = errors.New("tftp: too many retransmissions, giving up")
	ErrBadPacket        = errors.New("tftp: malformed packet")
)

// RemoteError is an ERROR packet sent by the server.
type RemoteError struct {
	Code    uint16
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("tftp: server error %d: %s", e.Code, e.Message)
}

// ProgressFunc is called after every block with the bytes moved so far.
// total is -1 when the size is not known in advance.
type ProgressFunc func(name string, done, total int)

// Option configures a Client.
type Option func(*Client)

func WithPort(port int) Option {
	return func(c *Client) {
		c.port = port
	}
}

// WithTimeout sets how long to wait for each reply before retransmitting.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries bounds consecutive retransmissions of a single packet.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

type Client struct {
	port     int
	timeout  time.Duration
	retries  int
	logger   *zap.Logger
	progress ProgressFunc
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		port:    DefaultPort,
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) report(name string, done, total int) {
	if c.progress != nil {
		c.progress(name, done, total)
	}
}

// Fetch reads the named file from host.
func (c *Client) Fetch(ctx context.Context, host, name string) ([]byte, error) {
	s, err := c.open(ctx, host)
	if err != nil {
		return nil, err
	}
	defer s.close()

	result := make([]byte, 0, BlockSize)
	send := requestPacket(opRRQ, name)
	for block := uint16(1); ; block++ {
		p, err := s.exchange(ctx, send, func(p packet) bool {
			return p.op == opDATA && p.block == block
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s from %s: %w", name, host, err)
		}
		result = append(result, p.payload...)
		c.report(name, len(result), -1)

		send = ackPacket(block)
		if len(p.payload) < BlockSize {
			// the server retransmits its last block if this ACK is lost;
			// the data is complete either way
			if err := s.send(send); err != nil {
				c.logger.Debug("final ACK not sent", zap.Error(err))
			}
			c.logger.Debug("fetched", zap.String("host", host), zap.String("name", name), zap.Int("bytes", len(result)))
			return result, nil
		}
	}
}

// Deliver writes data to the named file on host, returning once the
// server has acknowledged the final block.
func (c *Client) Deliver(ctx context.Context, host, name string, data []byte) error {
	s, err := c.open(ctx, host)
	if err != nil {
		return err
	}
	defer s.close()

	send := requestPacket(opWRQ, name)
	off := 0
	last := false
	for block := uint16(0); ; block++ {
		if _, err := s.exchange(ctx, send, func(p packet) bool {
			return p.op == opACK && p.block == block
		}); err != nil {
			return fmt.Errorf("deliver %s to %s: %w", name, host, err)
		}
		if block > 0 {
			c.report(name, off, len(data))
		}
		if last {
			c.logger.Debug("delivered", zap.String("host", host), zap.String("name", name), zap.Int("bytes", len(data)))
			return nil
		}
		end := min(off+BlockSize, len(data))
		send = dataPacket(block+1, data[off:end])
		last = end-off < BlockSize
		off = end
	}
}

// session is one transfer.  The server answers from a fresh port (its
// transfer ID); after the first reply only that address is accepted.
type session struct {
	c      *Client
	conn   *net.UDPConn
	server *net.UDPAddr
	peer   *net.UDPAddr
	buf    []byte
	stop   func() bool
}

func (c *Client) open(ctx context.Context, host string) (*session, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(c.port)))
	if err != nil {
		return nil, fmt.Errorf("net.ResolveUDPAddr(%s): %w", host, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("net.ListenUDP: %w", err)
	}
	s := &session{
		c:      c,
		conn:   conn,
		server: addr,
		buf:    make([]byte, headerLen+BlockSize+1),
	}
	// wake up a blocked read as soon as the context ends
	s.stop = context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	return s, nil
}

func (s *session) close() {
	s.stop()
	_ = s.conn.Close()
}

func (s *session) send(b []byte) error {
	dst := s.peer
	if dst == nil {
		dst = s.server
	}
	if _, err := s.conn.WriteToUDP(b, dst); err != nil {
		return fmt.Errorf("conn.WriteToUDP: %w", err)
	}
	return nil
}

// exchange sends pkt and waits for a reply accepted by want, resending pkt
// each time the timeout elapses.
func (s *session) exchange(ctx context.Context, pkt []byte, want func(packet) bool) (packet, error) {
	for attempt := 0; ; attempt++ {
		if attempt > s.c.retries {
			return packet{}, ErrRetriesExhausted
		}
		if attempt > 0 {
			s.c.logger.Debug("retransmitting", zap.Int("attempt", attempt))
		}
		if err := s.send(pkt); err != nil {
			return packet{}, err
		}

		p, err := s.await(ctx, want)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			return packet{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return packet{}, ctxErr
		}
	}
}

// await reads until a wanted packet arrives or the per-packet timeout
// passes.  Stale duplicates are skipped.
func (s *session) await(ctx context.Context, want func(packet) bool) (packet, error) {
	deadline := time.Now().Add(s.c.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return packet{}, err
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return packet{}, fmt.Errorf("conn.SetReadDeadline: %w", err)
		}
		// a cancel that fired before the deadline was set had its
		// immediate deadline overwritten
		if err := ctx.Err(); err != nil {
			return packet{}, err
		}
		n, from, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			return packet{}, err
		}

		if !s.accept(from) {
			s.c.logger.Debug("packet from unknown transfer ID", zap.Stringer("from", from))
			_, _ = s.conn.WriteToUDP(errorPacket(errUnknownTID, "unknown transfer ID"), from)
			continue
		}
		p, err := parsePacket(s.buf[:n])
		if err != nil {
			return packet{}, err
		}
		if p.op == opERROR {
			return packet{}, &RemoteError{Code: p.block, Message: string(p.payload)}
		}
		if want(p) {
			return p, nil
		}
		s.c.logger.Debug("ignoring unexpected packet", zap.Stringer("packet", p))
	}
}

func (s *session) accept(from *net.UDPAddr) bool {
	if s.peer != nil {
		return from.IP.Equal(s.peer.IP) && from.Port == s.peer.Port
	}
	if !from.IP.Equal(s.server.IP) {
		return false
	}
	s.peer = from
	return true
}
