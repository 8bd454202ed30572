package session

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/l2vpn/l2vpn/internal/wire"
)

func macN(n byte) wire.MAC {
	return wire.MAC{0xaa, 0x00, 0x00, 0x00, 0x00, n}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	subnet, mask := testSubnet()
	tbl, err := NewTable(subnet, mask)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return tbl
}

func TestTableRegisterNewMAC(t *testing.T) {
	tbl := newTestTable(t)
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}

	result := tbl.Register(macN(1), addr)
	if !result.Ok {
		t.Fatalf("Register() Ok = false, want true")
	}
	if result.Renewed {
		t.Error("Register() Renewed = true on first registration, want false")
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
	if tbl.PoolAvailable() != tbl.PoolSize()-1 {
		t.Errorf("PoolAvailable() = %d, want %d", tbl.PoolAvailable(), tbl.PoolSize()-1)
	}
}

func TestTableRegisterStickyLease(t *testing.T) {
	tbl := newTestTable(t)
	mac := macN(1)
	addr1 := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}
	addr2 := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9001}

	first := tbl.Register(mac, addr1)
	if !first.Ok {
		t.Fatalf("first Register() Ok = false")
	}

	second := tbl.Register(mac, addr2)
	if !second.Ok {
		t.Fatalf("second Register() Ok = false")
	}
	if !second.Renewed {
		t.Error("second Register() Renewed = false, want true")
	}
	if !second.IP.Equal(first.IP) {
		t.Errorf("second Register() IP = %v, want sticky %v", second.IP, first.IP)
	}
	if tbl.PoolAvailable() != tbl.PoolSize()-1 {
		t.Errorf("PoolAvailable() after reconnect = %d, want %d (unchanged)", tbl.PoolAvailable(), tbl.PoolSize()-1)
	}

	conn, ok := tbl.Lookup(mac)
	if !ok {
		t.Fatal("Lookup() ok = false after reconnect")
	}
	if conn.SocketAddr.String() != addr2.String() {
		t.Errorf("SocketAddr = %v, want updated %v", conn.SocketAddr, addr2)
	}
}

func TestTablePoolExhaustion(t *testing.T) {
	subnet, mask := net.IPv4(10, 123, 123, 0), net.IPv4Mask(255, 255, 255, 255)
	tbl, err := NewTable(subnet, mask)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	first := tbl.Register(macN(1), &net.UDPAddr{Port: 1})
	if !first.Ok {
		t.Fatalf("first Register() Ok = false, want true")
	}

	second := tbl.Register(macN(2), &net.UDPAddr{Port: 2})
	if second.Ok {
		t.Fatal("second Register() Ok = true, want false (pool exhausted)")
	}
	if second.Reason != "No available ip left" {
		t.Errorf("Reason = %q, want %q", second.Reason, "No available ip left")
	}
}

func TestTablePingUnknownSourceIsNoop(t *testing.T) {
	tbl := newTestTable(t)
	ok := tbl.Ping(&net.UDPAddr{Port: 4242})
	if ok {
		t.Error("Ping() from unregistered addr = true, want false")
	}
}

func TestTablePingRefreshesLastSeen(t *testing.T) {
	tbl := newTestTable(t)
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}
	tbl.Register(macN(1), addr)

	fixed := time.Now()
	tbl.now = func() time.Time { return fixed.Add(time.Hour) }

	if ok := tbl.Ping(addr); !ok {
		t.Fatal("Ping() ok = false, want true")
	}
	conn, _ := tbl.Lookup(macN(1))
	if !conn.LastSeen.Equal(fixed.Add(time.Hour)) {
		t.Errorf("LastSeen = %v, want %v", conn.LastSeen, fixed.Add(time.Hour))
	}
}

func TestTablePurgeRespectsTTL(t *testing.T) {
	tbl := newTestTable(t)
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}
	base := time.Now()
	tbl.now = func() time.Time { return base }
	tbl.Register(macN(1), addr)

	// Elapsed just under TTL: no purge.
	tbl.now = func() time.Time { return base.Add(199 * time.Second) }
	if removed := tbl.Purge(200 * time.Second); len(removed) != 0 {
		t.Errorf("Purge() before TTL removed = %v, want none", removed)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() after early purge = %d, want 1", tbl.Len())
	}

	// Elapsed at/over TTL: purged, IP returned.
	tbl.now = func() time.Time { return base.Add(200 * time.Second) }
	removed := tbl.Purge(200 * time.Second)
	if len(removed) != 1 || removed[0] != macN(1) {
		t.Errorf("Purge() removed = %v, want [%v]", removed, macN(1))
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() after purge = %d, want 0", tbl.Len())
	}
	if tbl.PoolAvailable() != tbl.PoolSize() {
		t.Errorf("PoolAvailable() after purge = %d, want full pool %d", tbl.PoolAvailable(), tbl.PoolSize())
	}
}

func TestTablePurgeThenReRegisterGetsFreedIP(t *testing.T) {
	subnet, mask := net.IPv4(10, 123, 123, 0), net.IPv4Mask(255, 255, 255, 255)
	tbl, err := NewTable(subnet, mask)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	base := time.Now()
	tbl.now = func() time.Time { return base }

	a := tbl.Register(macN(1), &net.UDPAddr{Port: 1})
	if !a.Ok {
		t.Fatalf("Register(A) Ok = false")
	}

	tbl.now = func() time.Time { return base.Add(200 * time.Second) }
	tbl.Purge(200 * time.Second)

	d := tbl.Register(macN(2), &net.UDPAddr{Port: 2})
	if !d.Ok {
		t.Fatalf("Register(D) after purge Ok = false, want true")
	}
	if !d.IP.Equal(a.IP) {
		t.Errorf("Register(D) IP = %v, want freed %v", d.IP, a.IP)
	}
}

// TestTableConcurrentRegister: many goroutines registering distinct
// MACs concurrently must never corrupt the pool/table pairing.
func TestTableConcurrentRegister(t *testing.T) {
	tbl := newTestTable(t)
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tbl.Register(macN(byte(id)), &net.UDPAddr{Port: id})
		}(i)
	}
	wg.Wait()

	if tbl.Len() != n {
		t.Errorf("Len() = %d, want %d", tbl.Len(), n)
	}
	if tbl.PoolAvailable()+tbl.Len() != tbl.PoolSize() {
		t.Errorf("PoolAvailable()+Len() = %d, want PoolSize() %d", tbl.PoolAvailable()+tbl.Len(), tbl.PoolSize())
	}

	seenIPs := make(map[string]bool)
	for _, conn := range tbl.Snapshot() {
		if seenIPs[conn.IP.String()] {
			t.Errorf("duplicate IP %v leased to two connections", conn.IP)
		}
		seenIPs[conn.IP.String()] = true
	}
}
