// Package forward implements the server's layer-2 forwarding plane:
// parsing a Data frame's Ethernet header and deciding which
// connections it is routed to.
package forward

import (
	"net"

	"github.com/l2vpn/l2vpn/internal/session"
	"github.com/l2vpn/l2vpn/internal/wire"
)

// minRoutableFrame is the minimum byte length a frame must have for
// its destination/source MAC to be extracted: 6 bytes destination + 6
// bytes source. The true Ethernet minimum is 14 bytes including
// EtherType, but routing only ever reads the first 12.
const minRoutableFrame = 12

// Decision is the outcome of routing one Data frame: either drop it,
// or deliver it to the listed destinations (one for unicast, many for
// multicast/broadcast fan-out).
type Decision struct {
	Dest []net.Addr
}

// Route decides which connections a Data frame is delivered to, given
// a snapshot of the current connection table. A frame shorter than
// minRoutableFrame yields a Decision with no destinations. A multicast
// (LSB-set) destination fans out to every connection except the one
// whose MAC equals the frame's source (split horizon). A unicast
// destination is delivered only to the connection whose MAC matches
// it, if registered.
func Route(frame []byte, conns []session.Connection) Decision {
	if len(frame) < minRoutableFrame {
		return Decision{}
	}

	dst := wire.MACFromSlice(frame[0:6])
	src := wire.MACFromSlice(frame[6:12])

	if dst.IsMulticast() {
		var dest []net.Addr
		for _, c := range conns {
			if c.MAC != src {
				dest = append(dest, c.SocketAddr)
			}
		}
		return Decision{Dest: dest}
	}

	for _, c := range conns {
		if c.MAC == dst {
			return Decision{Dest: []net.Addr{c.SocketAddr}}
		}
	}
	return Decision{}
}
