package pool

import (
	"log/slog"
	"sync"

	"github.com/plexsphere/splicefabric/internal/fabricerr"
)

// Pool is the country/ASN-indexed inventory of idle agent connections.
// A single exclusive lock covers insert, pop, and the keep-alive sweep's
// bucket-rewrite step — the source elides this lock, which is unsafe; this
// implementation does not.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	idle   map[string]map[string][]*AgentConnection
	inUse  map[*AgentConnection]struct{}
	closed bool
}

// New constructs a Pool. cfg must already have ApplyDefaults called.
func New(cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:    cfg,
		logger: logger.With("component", "pool"),
		idle:   make(map[string]map[string][]*AgentConnection),
		inUse:  make(map[*AgentConnection]struct{}),
	}
}

// Insert appends conn to its (country, asn) bucket. Bucket order is
// insertion order; withdrawal is LIFO (see PopByCountryAndAsn).
func (p *Pool) Insert(conn *AgentConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = conn.Close()
		return
	}

	byASN, ok := p.idle[conn.Country]
	if !ok {
		byASN = make(map[string][]*AgentConnection)
		p.idle[conn.Country] = byASN
	}
	byASN[conn.ASN] = append(byASN[conn.ASN], conn)

	p.logger.Debug("agent connection enrolled",
		"country", conn.Country,
		"asn", conn.ASN,
		"device_id", conn.DeviceID,
	)
}

// PopByCountry pops the most recently inserted connection from an arbitrary
// non-empty ASN bucket under cc. Returns fabricerr.ErrNoAvailableConnection
// if no bucket under cc has an element.
func (p *Pool) PopByCountry(cc string) (*AgentConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byASN, ok := p.idle[cc]
	if !ok {
		return nil, fabricerr.New(fabricerr.KindNoAvailableConnection, "country "+cc+" has no idle buckets")
	}
	for asn, bucket := range byASN {
		if len(bucket) == 0 {
			continue
		}
		conn := p.popLocked(byASN, asn)
		return conn, nil
	}
	return nil, fabricerr.New(fabricerr.KindNoAvailableConnection, "country "+cc+" has no idle connections")
}

// PopByCountryAndAsn pops the most recently inserted connection from the
// specific (cc, asn) bucket.
func (p *Pool) PopByCountryAndAsn(cc, asn string) (*AgentConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byASN, ok := p.idle[cc]
	if !ok || len(byASN[asn]) == 0 {
		return nil, fabricerr.New(fabricerr.KindNoAvailableConnection, "country "+cc+" asn "+asn+" has no idle connections")
	}
	conn := p.popLocked(byASN, asn)
	return conn, nil
}

// popLocked pops the tail element of byASN[asn] and moves it to the in-use
// set. Caller must hold p.mu.
func (p *Pool) popLocked(byASN map[string][]*AgentConnection, asn string) *AgentConnection {
	bucket := byASN[asn]
	last := len(bucket) - 1
	conn := bucket[last]
	if last == 0 {
		delete(byASN, asn)
	} else {
		byASN[asn] = bucket[:last]
	}
	p.inUse[conn] = struct{}{}
	return conn
}

// MarkClosed removes conn from the in-use set and closes it. Called by the
// splice engine on teardown, and by the in-use sweep on a dead-socket
// finding.
func (p *Pool) MarkClosed(conn *AgentConnection) {
	p.mu.Lock()
	delete(p.inUse, conn)
	p.mu.Unlock()
	_ = conn.Close()
}

// CountByCountry returns a snapshot of idle-connection counts per country.
func (p *Pool) CountByCountry() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[string]int, len(p.idle))
	for cc, byASN := range p.idle {
		n := 0
		for _, bucket := range byASN {
			n += len(bucket)
		}
		counts[cc] = n
	}
	return counts
}

// InUseCount returns the number of connections currently withdrawn and spliced.
func (p *Pool) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// AvailableASNs returns the set of ASNs with at least one idle connection, per country.
func (p *Pool) AvailableASNs() map[string][]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string][]string, len(p.idle))
	for cc, byASN := range p.idle {
		asns := make([]string, 0, len(byASN))
		for asn, bucket := range byASN {
			if len(bucket) > 0 {
				asns = append(asns, asn)
			}
		}
		out[cc] = asns
	}
	return out
}

// CloseAll closes every socket, idle and in-use, and marks the pool closed.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for _, byASN := range p.idle {
		for _, bucket := range byASN {
			for _, conn := range bucket {
				_ = conn.Close()
			}
		}
	}
	for conn := range p.inUse {
		_ = conn.Close()
	}
	p.idle = make(map[string]map[string][]*AgentConnection)
	p.inUse = make(map[*AgentConnection]struct{})
}
