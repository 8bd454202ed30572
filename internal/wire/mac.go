// Package wire implements the UDP wire protocol shared by the overlay
// client and server: the MAC address type, the tagged Message union,
// and the binary codec between them.
package wire

import "fmt"

// MACLen is the byte length of an Ethernet hardware address.
const MACLen = 6

// MAC is a fixed 6-byte layer-2 address. Equality and hashing are
// byte-wise, so MAC is safe to use directly as a map key.
type MAC [MACLen]byte

// Broadcast is the all-ones Ethernet broadcast address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// IsMulticast reports whether m is a multicast address: the
// least-significant bit of the first byte is set. This subsumes
// Broadcast, which has every bit set.
func (m MAC) IsMulticast() bool {
	return m[0]&0x01 == 1
}

// String renders m in standard colon-separated hex form.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// MACFromSlice copies the first MACLen bytes of b into a MAC. The
// caller must ensure len(b) >= MACLen.
func MACFromSlice(b []byte) MAC {
	var m MAC
	copy(m[:], b[:MACLen])
	return m
}
