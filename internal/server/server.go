// Package server implements the rendezvous server: the UDP-facing
// loop that accepts registrations, answers keepalives, and forwards
// Ethernet frames between registered peers.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l2vpn/l2vpn/internal/forward"
	"github.com/l2vpn/l2vpn/internal/session"
	"github.com/l2vpn/l2vpn/internal/wire"
)

const (
	defaultLeaseTTL      = 200 * time.Second
	defaultPurgeInterval = 100 * time.Second
)

// Server owns one bound UDP socket, the connection table it registers
// peers into, and the forwarding logic that routes Data frames between
// them.
type Server struct {
	conn   net.PacketConn
	table  *session.Table
	logger *slog.Logger

	leaseTTL      time.Duration
	purgeInterval time.Duration
}

// New builds a Server bound to conn, leasing addresses out of
// subnet/mask. conn is typically a dual-stack UDP socket constructed
// by the caller (see cmd/l2vpn-server), so Server itself stays
// transport-agnostic beyond the net.PacketConn interface.
func New(conn net.PacketConn, subnet net.IP, mask net.IPMask, opts ...Option) (*Server, error) {
	table, err := session.NewTable(subnet, mask)
	if err != nil {
		return nil, err
	}

	s := &Server{
		conn:          conn,
		table:         table,
		logger:        slog.Default(),
		leaseTTL:      defaultLeaseTTL,
		purgeInterval: defaultPurgeInterval,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run drives the server until ctx is cancelled or an unrecoverable
// transport error occurs: one goroutine dispatching inbound
// datagrams, one goroutine sweeping expired leases.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.receiveLoop(ctx)
	})
	g.Go(func() error {
		s.purgeLoop(ctx)
		return nil
	})

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	return g.Wait()
}

func (s *Server) receiveLoop(ctx context.Context) error {
	for {
		received, err := wire.ReceiveUntilSuccess(s.conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.dispatch(received.Message, received.SourceAddr)
	}
}

func (s *Server) dispatch(msg wire.Message, addr net.Addr) {
	switch msg.Kind {
	case wire.KindRegister:
		s.handleRegister(msg, addr)
	case wire.KindPing:
		s.handlePing(addr)
	case wire.KindData:
		s.handleData(msg)
	default:
		s.logger.Warn("unexpected message kind from peer", "kind", msg.Kind, "addr", addr)
	}
}

func (s *Server) handleRegister(msg wire.Message, addr net.Addr) {
	result := s.table.Register(msg.MAC, addr)
	if !result.Ok {
		s.logger.Warn("register refused", "mac", msg.MAC, "addr", addr, "reason", result.Reason)
		s.send(wire.RegisterFailMsg(result.Reason), addr)
		return
	}

	s.logger.Info("registered", "mac", msg.MAC, "ip", result.IP, "addr", addr, "renewed", result.Renewed)
	s.send(wire.RegisterSuccessMsg(result.IP, s.table.Mask()), addr)
}

func (s *Server) handlePing(addr net.Addr) {
	if !s.table.Ping(addr) {
		s.logger.Debug("ping from unregistered peer ignored", "addr", addr)
		return
	}
	s.send(wire.PongMsg(), addr)
}

func (s *Server) handleData(msg wire.Message) {
	decision := forward.Route(msg.EthernetFrame, s.table.Snapshot())
	if len(decision.Dest) == 0 {
		s.logger.Debug("data frame dropped", "len", len(msg.EthernetFrame))
	}
	for _, dest := range decision.Dest {
		s.send(wire.DataMsg(msg.EthernetFrame), dest)
	}
}

func (s *Server) send(msg wire.Message, addr net.Addr) {
	if err := wire.SendTo(s.conn, msg, addr); err != nil {
		s.logger.Warn("send failed", "addr", addr, "err", err)
	}
}

func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.table.Purge(s.leaseTTL)
			for _, mac := range removed {
				s.logger.Info("lease expired", "mac", mac)
			}
		}
	}
}
