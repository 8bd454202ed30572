// Package netutil provides the server's dual-stack UDP bind: listen
// on the IPv6 unspecified address with IPv4-mapped addresses enabled,
// falling back to plain IPv4 if the platform or network stack
// doesn't support it.
package netutil

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenDualStackUDP binds port on the IPv6 unspecified address with
// IPV6_V6ONLY disabled, so IPv4 peers reach it via IPv4-mapped
// addresses on the same socket. If that bind fails — no IPv6 support,
// sandboxed network namespace, and so on — it falls back to binding
// the IPv4 unspecified address instead.
func ListenDualStackUDP(ctx context.Context, port int) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var controlErr error
			err := c.Control(func(fd uintptr) {
				controlErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
			})
			if err != nil {
				return err
			}
			return controlErr
		},
	}

	addr := fmt.Sprintf("[::]:%d", port)
	conn, err := lc.ListenPacket(ctx, "udp6", addr)
	if err == nil {
		return conn, nil
	}

	fallbackAddr := fmt.Sprintf("0.0.0.0:%d", port)
	conn, fallbackErr := net.ListenPacket("udp4", fallbackAddr)
	if fallbackErr != nil {
		return nil, fmt.Errorf("netutil: bind dual-stack (%w) and IPv4 fallback (%v) both failed", err, fallbackErr)
	}
	return conn, nil
}
