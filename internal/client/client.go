// Package client implements the overlay peer: registration against
// the rendezvous server, bidirectional frame relay between the local
// TAP device and the server, and keepalive-driven re-registration.
package client

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l2vpn/l2vpn/internal/tapdev"
	"github.com/l2vpn/l2vpn/internal/wire"
	"github.com/l2vpn/l2vpn/internal/wireerr"
)

const (
	defaultRegisterTotal     = 15 * time.Second
	defaultRegisterAttempt   = 5 * time.Second
	defaultKeepaliveInterval = 5 * time.Second
)

// Client drives one overlay peer: a connected UDP socket to the
// rendezvous server and the local TAP device it relays frames to and
// from.
type Client struct {
	conn net.Conn
	tap  tapdev.Device
	mac  wire.MAC

	logger *slog.Logger

	registerTotal     time.Duration
	registerAttempt   time.Duration
	keepaliveInterval time.Duration

	registerCh chan wire.Message
	pongCh     chan struct{}
}

// New builds a Client around an already-connected UDP socket and an
// already-opened TAP device. mac is read from tap once and cached,
// since the register procedure and the TAP-reader both need it on
// every pass.
func New(conn net.Conn, tap tapdev.Device, opts ...Option) (*Client, error) {
	hwAddr, err := tap.MAC()
	if err != nil {
		return nil, &wireerr.NetworkError{Op: "read TAP MAC", Err: err}
	}
	mac := wire.MACFromSlice(hwAddr)

	c := &Client{
		conn:              conn,
		tap:               tap,
		mac:               mac,
		logger:            slog.Default(),
		registerTotal:     defaultRegisterTotal,
		registerAttempt:   defaultRegisterAttempt,
		keepaliveInterval: defaultKeepaliveInterval,
		registerCh:        make(chan wire.Message, 1),
		pongCh:            make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run starts the inbound worker, performs the initial registration
// (whose result that worker delivers), brings the TAP interface up
// and configured, then blocks running the three steady-state workers
// until ctx is cancelled or one of them hits an unrecoverable error.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.inboundLoop(ctx) })

	if err := c.registerWithRetry(ctx); err != nil {
		return err
	}

	if err := c.tap.Up(); err != nil {
		return &wireerr.NetworkError{Op: "bring TAP up", Err: err}
	}

	g.Go(func() error { return c.tapReaderLoop(ctx) })
	g.Go(func() error { return c.keepaliveLoop(ctx) })
	return g.Wait()
}

// registerWithRetry runs the bounded register procedure: up to
// registerTotal spent retrying, each attempt waiting registerAttempt
// for a result before looping. An explicit RegisterFail is never
// retried. Results arrive on registerCh, which only inboundLoop feeds,
// so inboundLoop must be running.
func (c *Client) registerWithRetry(ctx context.Context) error {
	deadline := time.Now().Add(c.registerTotal)

	for {
		if !time.Now().Before(deadline) {
			return &wireerr.TimeoutError{Op: "register"}
		}

		if err := wire.Send(c.conn, wire.Register(c.mac)); err != nil {
			return err
		}
		drain(c.registerCh)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.registerCh:
			switch msg.Kind {
			case wire.KindRegisterSuccess:
				if err := c.tap.SetIP(msg.IP, msg.SubnetMask); err != nil {
					return &wireerr.NetworkError{Op: "set TAP ip", Err: err}
				}
				c.logger.Info("registered", "ip", msg.IP, "mask", msg.SubnetMask)
				return nil
			case wire.KindRegisterFail:
				return &wireerr.RegisterRefused{Reason: msg.Reason}
			}
		case <-time.After(c.registerAttempt):
			// No result within this attempt's window; loop and retry.
		}
	}
}

// inboundLoop demultiplexes datagrams from the server: Data frames go
// to the TAP, RegisterSuccess/RegisterFail feed the register
// coordinator, Pong feeds the keepalive coordinator.
func (c *Client) inboundLoop(ctx context.Context) error {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &wireerr.NetworkError{Op: "receive", Err: err}
		}
		msg, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}

		switch msg.Kind {
		case wire.KindData:
			if _, err := c.tap.Write(msg.EthernetFrame); err != nil {
				c.logger.Warn("TAP write failed", "err", err)
			}
		case wire.KindRegisterSuccess, wire.KindRegisterFail:
			drain(c.registerCh)
			c.registerCh <- msg
		case wire.KindPong:
			drain(c.pongCh)
			c.pongCh <- struct{}{}
		}
	}
}

// tapReaderLoop reads frames off the TAP device and relays them to
// the server as Data messages, discarding anything too short to
// route and anything whose source MAC isn't this peer's own.
func (c *Client) tapReaderLoop(ctx context.Context) error {
	buf := make([]byte, tapdev.MTUOrDefault(c.tap))
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := c.tap.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &wireerr.NetworkError{Op: "TAP read", Err: err}
		}
		frame := buf[:n]
		if !shouldRelay(frame, c.mac) {
			continue
		}
		if err := wire.Send(c.conn, wire.DataMsg(frame)); err != nil {
			c.logger.Warn("relay send failed", "err", err)
		}
	}
}

// minRelayFrame mirrors the server forwarder's routing floor.
const minRelayFrame = 12

// shouldRelay reports whether a frame read off the TAP should be sent
// to the server: long enough to carry a source MAC, and sourced from
// this peer's own interface.
func shouldRelay(frame []byte, ownMAC wire.MAC) bool {
	if len(frame) < minRelayFrame {
		return false
	}
	src := wire.MACFromSlice(frame[6:12])
	return src == ownMAC
}

// keepaliveLoop sends a Ping every keepaliveInterval and waits up to
// registerAttempt for a Pong, retrying. If no Pong arrives within the bounded
// retry window, the server is presumed lost and re-registration is
// attempted; failure to re-register is fatal.
func (c *Client) keepaliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.awaitPong(ctx); err != nil {
				c.logger.Warn("keepalive lost, re-registering", "err", err)
				if err := c.registerWithRetry(ctx); err != nil {
					return err
				}
			}
		}
	}
}

// awaitPong sends Ping/waits for Pong within the bounded retry window
// used by the register procedure, reusing the same total/per-attempt
// timeouts.
func (c *Client) awaitPong(ctx context.Context) error {
	deadline := time.Now().Add(c.registerTotal)

	for {
		if !time.Now().Before(deadline) {
			return &wireerr.TimeoutError{Op: "keepalive"}
		}

		if err := wire.Send(c.conn, wire.PingMsg()); err != nil {
			return err
		}
		drain(c.pongCh)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.pongCh:
			return nil
		case <-time.After(c.registerAttempt):
			// No pong within this attempt's window; retry.
		}
	}
}

func drain[T any](ch chan T) {
	select {
	case <-ch:
	default:
	}
}
