package netutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// ResolveServerAddr resolves hostport (the client's positional
// <host:port> argument) to a UDP address, preferring an IPv4 result
// when both families are available and accepting IPv6 when that is
// all that resolves.
func ResolveServerAddr(ctx context.Context, hostport string) (*net.UDPAddr, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("netutil: invalid server address %q: %w", hostport, err)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("netutil: resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("netutil: %q resolved to no addresses", host)
	}

	chosen := addrs[0]
	for _, a := range addrs {
		if a.IP.To4() != nil {
			chosen = a
			break
		}
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("netutil: invalid port %q: %w", port, err)
	}
	return &net.UDPAddr{IP: chosen.IP, Port: portNum, Zone: chosen.Zone}, nil
}
