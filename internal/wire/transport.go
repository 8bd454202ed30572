package wire

import (
	"net"
	"sync"

	"github.com/l2vpn/l2vpn/internal/wireerr"
)

// bufPool hands out MaxDatagramSize-sized buffers for ReceiveUntilSuccess calls,
// following the same buffer-pooling discipline as GetBuffer/PutBuffer
// in the mDNS responder this package is descended from.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, MaxDatagramSize)
		return &b
	},
}

// Send writes one encoded message to a connected socket in a single
// UDP datagram. UDP send is all-or-nothing in practice, but Send
// retries a short write until the full payload is delivered, per the
// transport contract.
func Send(conn net.Conn, m Message) error {
	payload, err := Encode(m)
	if err != nil {
		return err
	}
	return writeAll(func(b []byte) (int, error) { return conn.Write(b) }, payload)
}

// SendTo writes one encoded message to a specific peer address over an
// unconnected socket. Used by the server, which fans a single bound
// socket out to many peers.
func SendTo(conn net.PacketConn, m Message, addr net.Addr) error {
	payload, err := Encode(m)
	if err != nil {
		return err
	}
	return writeAll(func(b []byte) (int, error) { return conn.WriteTo(b, addr) }, payload)
}

func writeAll(write func([]byte) (int, error), payload []byte) error {
	for written := 0; written < len(payload); {
		n, err := write(payload[written:])
		if err != nil {
			return &wireerr.NetworkError{Op: "send", Err: err}
		}
		written += n
	}
	return nil
}

// Received pairs a successfully decoded Message with the UDP address
// it arrived from. The server uses SourceAddr to address replies and
// to record each peer's socket address in its MAC-keyed connection
// table; the client ignores it (its socket is connected).
type Received struct {
	Message    Message
	SourceAddr net.Addr
}

// ReceiveUntilSuccess blocks reading datagrams from conn, silently
// discarding any that fail to decode, and returns the first one that
// decodes successfully along with its source address. A hard socket
// error (not a decode failure) is returned immediately.
func ReceiveUntilSuccess(conn net.PacketConn) (Received, error) {
	bufPtr := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufPtr)
	buf := *bufPtr

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return Received{}, &wireerr.NetworkError{Op: "receive", Err: err}
		}
		m, err := Decode(buf[:n])
		if err != nil {
			// Malformed datagram: discard and keep listening.
			continue
		}
		return Received{Message: m, SourceAddr: addr}, nil
	}
}
