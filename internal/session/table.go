// Package session implements the server's registration/session manager:
// the MAC-keyed connection table and the IPv4 lease pool it draws
// from, kept consistent under a single combined critical section.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/l2vpn/l2vpn/internal/wire"
)

// Connection is one registered peer: its leased IP, its MAC (primary
// key), its last observed UDP source address, and when it was last
// heard from.
type Connection struct {
	IP         net.IP
	MAC        wire.MAC
	SocketAddr net.Addr
	LastSeen   time.Time
}

// Table is the MAC-keyed connection registry plus the IP pool it
// leases from. A single mutex guards both, so register/purge can never
// observe an IP simultaneously in the pool and held by a connection.
// The teacher's registry used the same single-RWMutex discipline for
// its name-keyed service map; here both the map and the pool it
// exchanges addresses with share one lock rather than two, since every
// operation that touches one also touches the other.
type Table struct {
	mu    sync.Mutex
	pool  *Pool
	byMAC map[wire.MAC]*Connection

	mask net.IPMask
	now  func() time.Time
}

// NewTable builds an empty table backed by a freshly enumerated pool
// for subnet/mask.
func NewTable(subnet net.IP, mask net.IPMask) (*Table, error) {
	pool, err := NewPool(subnet, mask)
	if err != nil {
		return nil, err
	}
	return &Table{
		pool:  pool,
		byMAC: make(map[wire.MAC]*Connection),
		mask:  mask,
		now:   time.Now,
	}, nil
}

// Mask returns the subnet mask new leases are issued with.
func (t *Table) Mask() net.IPMask { return t.mask }

// RegisterResult reports the outcome of Register.
type RegisterResult struct {
	IP      net.IP
	Ok      bool
	Reason  string
	Renewed bool // true if mac already held a lease (sticky reuse)
}

// Register looks up or creates the lease for mac. A MAC that already
// holds a lease keeps its IP and only has SocketAddr/LastSeen
// refreshed (sticky lease). A new MAC draws from the pool atomically
// with respect to concurrent Register/Purge calls.
func (t *Table) Register(mac wire.MAC, addr net.Addr) RegisterResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conn, ok := t.byMAC[mac]; ok {
		conn.SocketAddr = addr
		conn.LastSeen = t.now()
		return RegisterResult{IP: conn.IP, Ok: true, Renewed: true}
	}

	ip, ok := t.pool.Take()
	if !ok {
		return RegisterResult{Ok: false, Reason: "No available ip left"}
	}

	t.byMAC[mac] = &Connection{
		IP:         ip,
		MAC:        mac,
		SocketAddr: addr,
		LastSeen:   t.now(),
	}
	return RegisterResult{IP: ip, Ok: true}
}

// Ping finds the connection whose SocketAddr equals addr and refreshes
// its LastSeen. Returns false if no
// connection matches, in which case the caller drops the ping
// silently rather than replying.
func (t *Table) Ping(addr net.Addr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	addrStr := addr.String()
	for _, conn := range t.byMAC {
		if conn.SocketAddr.String() == addrStr {
			conn.LastSeen = t.now()
			return true
		}
	}
	return false
}

// Purge removes every connection whose last activity is at least ttl
// in the past and returns their IPs to the pool. Returns the MACs
// removed, for logging.
func (t *Table) Purge(ttl time.Duration) []wire.MAC {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var removed []wire.MAC
	for mac, conn := range t.byMAC {
		if now.Sub(conn.LastSeen) >= ttl {
			t.pool.Return(conn.IP)
			delete(t.byMAC, mac)
			removed = append(removed, mac)
		}
	}
	return removed
}

// Lookup returns the connection registered for mac, if any. The
// returned *Connection must be treated as read-only by the caller; it
// is a live pointer into the table.
func (t *Table) Lookup(mac wire.MAC) (*Connection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.byMAC[mac]
	return conn, ok
}

// Snapshot returns a shallow copy of every live connection, safe to
// range over without holding the table's lock. Used by the server to
// route every Data frame, unicast and multicast alike.
func (t *Table) Snapshot() []Connection {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Connection, 0, len(t.byMAC))
	for _, conn := range t.byMAC {
		out = append(out, *conn)
	}
	return out
}

// Len reports the number of live connections.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byMAC)
}

// PoolAvailable reports how many addresses remain unleased. Exposed
// for tests asserting that pool size plus leased count stays constant.
func (t *Table) PoolAvailable() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pool.Available()
}

// PoolSize reports the pool's fixed total size.
func (t *Table) PoolSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pool.Size()
}
