package wire

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/l2vpn/l2vpn/internal/wireerr"
)

// Kind tags which variant of the Message union a datagram carries.
type Kind uint8

const (
	KindRegister Kind = iota
	KindRegisterSuccess
	KindRegisterFail
	KindPing
	KindPong
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "Register"
	case KindRegisterSuccess:
		return "RegisterSuccess"
	case KindRegisterFail:
		return "RegisterFail"
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindData:
		return "Data"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MaxDatagramSize is the largest UDP payload either side will ever
// send or accept. It bounds the receive buffer and rejects oversized
// Data frames at encode time.
const MaxDatagramSize = 10000

// Message is the tagged union carried over the wire. Exactly one of
// the per-variant fields is meaningful, selected by Kind; callers
// should switch on Kind rather than inspect fields directly.
type Message struct {
	Kind Kind

	// KindRegister
	MAC MAC

	// KindRegisterSuccess
	IP         net.IP     // 4-byte form
	SubnetMask net.IPMask // 4-byte form

	// KindRegisterFail
	Reason string

	// KindData
	EthernetFrame []byte
}

// Register builds a Register message.
func Register(mac MAC) Message { return Message{Kind: KindRegister, MAC: mac} }

// RegisterSuccessMsg builds a RegisterSuccess message.
func RegisterSuccessMsg(ip net.IP, mask net.IPMask) Message {
	return Message{Kind: KindRegisterSuccess, IP: ip.To4(), SubnetMask: mask}
}

// RegisterFailMsg builds a RegisterFail message.
func RegisterFailMsg(reason string) Message {
	return Message{Kind: KindRegisterFail, Reason: reason}
}

// PingMsg builds a Ping message.
func PingMsg() Message { return Message{Kind: KindPing} }

// PongMsg builds a Pong message.
func PongMsg() Message { return Message{Kind: KindPong} }

// DataMsg builds a Data message carrying an opaque Ethernet frame. The
// byte slice is not copied; callers must not mutate it afterward.
func DataMsg(frame []byte) Message { return Message{Kind: KindData, EthernetFrame: frame} }

// Encode renders m in the wire format. Encode is a total function: it
// never fails for a validly-constructed Message, except for a Data
// frame that would exceed MaxDatagramSize.
func Encode(m Message) ([]byte, error) {
	switch m.Kind {
	case KindRegister:
		buf := make([]byte, 1+MACLen)
		buf[0] = byte(KindRegister)
		copy(buf[1:], m.MAC[:])
		return buf, nil

	case KindRegisterSuccess:
		buf := make([]byte, 1+4+4)
		buf[0] = byte(KindRegisterSuccess)
		ip4 := m.IP.To4()
		if ip4 == nil {
			return nil, &wireerr.ProtocolError{Op: "encode RegisterSuccess", Err: fmt.Errorf("ip %v is not IPv4", m.IP)}
		}
		copy(buf[1:5], ip4)
		mask4 := []byte(m.SubnetMask)
		if len(mask4) != 4 {
			return nil, &wireerr.ProtocolError{Op: "encode RegisterSuccess", Err: fmt.Errorf("mask %v is not 4 bytes", m.SubnetMask)}
		}
		copy(buf[5:9], mask4)
		return buf, nil

	case KindRegisterFail:
		reason := []byte(m.Reason)
		if len(reason) > 1<<16-1 {
			return nil, &wireerr.ProtocolError{Op: "encode RegisterFail", Err: fmt.Errorf("reason too long: %d bytes", len(reason))}
		}
		buf := make([]byte, 1+2+len(reason))
		buf[0] = byte(KindRegisterFail)
		binary.BigEndian.PutUint16(buf[1:3], uint16(len(reason)))
		copy(buf[3:], reason)
		return buf, nil

	case KindPing:
		return []byte{byte(KindPing)}, nil

	case KindPong:
		return []byte{byte(KindPong)}, nil

	case KindData:
		if len(m.EthernetFrame) > 1<<16-1 {
			return nil, &wireerr.ProtocolError{Op: "encode Data", Err: fmt.Errorf("frame too long: %d bytes", len(m.EthernetFrame))}
		}
		buf := make([]byte, 1+2+len(m.EthernetFrame))
		buf[0] = byte(KindData)
		binary.BigEndian.PutUint16(buf[1:3], uint16(len(m.EthernetFrame)))
		copy(buf[3:], m.EthernetFrame)
		if len(buf) > MaxDatagramSize {
			return nil, &wireerr.ProtocolError{Op: "encode Data", Err: fmt.Errorf("datagram would be %d bytes, max %d", len(buf), MaxDatagramSize)}
		}
		return buf, nil

	default:
		return nil, &wireerr.ProtocolError{Op: "encode", Err: fmt.Errorf("unknown kind %v", m.Kind)}
	}
}

// Decode parses b into a Message. It returns a *wireerr.ProtocolError
// for any byte sequence that doesn't match one of the six variants
// exactly: unknown tag, truncated fixed fields, or a length prefix
// that doesn't match the remaining bytes.
func Decode(b []byte) (Message, error) {
	if len(b) < 1 {
		return Message{}, &wireerr.ProtocolError{Op: "decode", Err: fmt.Errorf("empty datagram")}
	}
	kind := Kind(b[0])
	body := b[1:]

	switch kind {
	case KindRegister:
		if len(body) != MACLen {
			return Message{}, &wireerr.ProtocolError{Op: "decode Register", Err: fmt.Errorf("want %d body bytes, got %d", MACLen, len(body))}
		}
		return Register(MACFromSlice(body)), nil

	case KindRegisterSuccess:
		if len(body) != 8 {
			return Message{}, &wireerr.ProtocolError{Op: "decode RegisterSuccess", Err: fmt.Errorf("want 8 body bytes, got %d", len(body))}
		}
		ip := net.IPv4(body[0], body[1], body[2], body[3])
		mask := net.IPv4Mask(body[4], body[5], body[6], body[7])
		return RegisterSuccessMsg(ip, mask), nil

	case KindRegisterFail:
		if len(body) < 2 {
			return Message{}, &wireerr.ProtocolError{Op: "decode RegisterFail", Err: fmt.Errorf("missing length prefix")}
		}
		n := binary.BigEndian.Uint16(body[:2])
		if len(body)-2 != int(n) {
			return Message{}, &wireerr.ProtocolError{Op: "decode RegisterFail", Err: fmt.Errorf("length prefix %d does not match remaining %d bytes", n, len(body)-2)}
		}
		return RegisterFailMsg(string(body[2:])), nil

	case KindPing:
		if len(body) != 0 {
			return Message{}, &wireerr.ProtocolError{Op: "decode Ping", Err: fmt.Errorf("want 0 body bytes, got %d", len(body))}
		}
		return PingMsg(), nil

	case KindPong:
		if len(body) != 0 {
			return Message{}, &wireerr.ProtocolError{Op: "decode Pong", Err: fmt.Errorf("want 0 body bytes, got %d", len(body))}
		}
		return PongMsg(), nil

	case KindData:
		if len(body) < 2 {
			return Message{}, &wireerr.ProtocolError{Op: "decode Data", Err: fmt.Errorf("missing length prefix")}
		}
		n := binary.BigEndian.Uint16(body[:2])
		if len(body)-2 != int(n) {
			return Message{}, &wireerr.ProtocolError{Op: "decode Data", Err: fmt.Errorf("length prefix %d does not match remaining %d bytes", n, len(body)-2)}
		}
		frame := make([]byte, n)
		copy(frame, body[2:])
		return DataMsg(frame), nil

	default:
		return Message{}, &wireerr.ProtocolError{Op: "decode", Err: fmt.Errorf("unknown kind tag %d", b[0])}
	}
}
