package pool

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plexsphere/splicefabric/internal/sockstate"
)

// RunKeepAlive runs the full idle-pool keep-alive sweep on a fixed tick
// until ctx is cancelled, mirroring the fabric's recurring-timer periodic
// task pattern rather than a self-rescheduling one-shot.
func (p *Pool) RunKeepAlive(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.sweepIdle(ctx)
		}
	}
}

// RunInUseSweep periodically evicts in-use connections whose kernel TCP
// state is no longer ESTABLISHED.
func (p *Pool) RunInUseSweep(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.InUseSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.sweepInUse()
		}
	}
}

// sweepIdle probes every idle connection in parallel, bounded by
// MaxKeepAliveWorkers, and rewrites each bucket to the surviving set.
func (p *Pool) sweepIdle(ctx context.Context) {
	snapshot := p.snapshotIdle()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxKeepAliveWorkers)

	alive := make(chan *AgentConnection, len(snapshot))
	for _, conn := range snapshot {
		conn := conn
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if p.probe(conn) {
				alive <- conn
			} else {
				p.logger.Info("keep-alive evicted dead agent connection",
					"device_id", conn.DeviceID,
					"country", conn.Country,
					"asn", conn.ASN,
				)
				_ = conn.Close()
			}
			return nil
		})
	}
	_ = g.Wait()
	close(alive)

	survivors := make([]*AgentConnection, 0, len(snapshot))
	for conn := range alive {
		survivors = append(survivors, conn)
	}
	p.rebuildIdle(survivors)
}

// snapshotIdle returns a flat copy of every idle connection without holding
// the lock during the (potentially slow) probe phase.
func (p *Pool) snapshotIdle() []*AgentConnection {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*AgentConnection
	for _, byASN := range p.idle {
		for _, bucket := range byASN {
			out = append(out, bucket...)
		}
	}
	return out
}

// rebuildIdle replaces the entire idle index with only the surviving
// connections, preserving their (country, asn) buckets. This is the
// bucket-rewrite step that must run under the pool's exclusive lock.
func (p *Pool) rebuildIdle(survivors []*AgentConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		for _, conn := range survivors {
			_ = conn.Close()
		}
		return
	}

	p.idle = make(map[string]map[string][]*AgentConnection)
	for _, conn := range survivors {
		byASN, ok := p.idle[conn.Country]
		if !ok {
			byASN = make(map[string][]*AgentConnection)
			p.idle[conn.Country] = byASN
		}
		byASN[conn.ASN] = append(byASN[conn.ASN], conn)
	}
}

// probeReplyBufSize returns a read buffer large enough to hold the longest
// of the echoed packet and either eviction sentinel, so a sentinel reply
// longer than KeepAlivePacket never gets silently truncated before the
// bytes.Equal comparisons in probe.
func probeReplyBufSize(cfg Config) int {
	size := len(KeepAlivePacket)
	if n := len(cfg.WifiDetectedSentinel); n > size {
		size = n
	}
	if n := len(cfg.DebuggerDetectedSentinel); n > size {
		size = n
	}
	return size
}

// probe sends the keep-alive packet, retries on failure, and checks kernel
// TCP state. It returns true only if the agent echoed the probe and the
// socket is still ESTABLISHED.
func (p *Pool) probe(conn *AgentConnection) bool {
	packet := []byte(KeepAlivePacket)
	buf := make([]byte, probeReplyBufSize(p.cfg))

	for attempt := 0; attempt < p.cfg.KeepAliveAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(p.cfg.KeepAliveSleep)
		}

		sock := conn.Conn()
		_ = sock.SetDeadline(time.Now().Add(p.cfg.KeepAliveTimeout))
		if _, err := sock.Write(packet); err != nil {
			continue
		}
		n, err := sock.Read(buf)
		_ = sock.SetDeadline(time.Time{})
		if err != nil || n == 0 {
			continue
		}

		reply := buf[:n]
		switch {
		case bytes.Equal(reply, []byte(p.cfg.WifiDetectedSentinel)):
			p.logger.Warn("agent reports wifi, evicting", "device_id", conn.DeviceID)
			return false
		case bytes.Equal(reply, []byte(p.cfg.DebuggerDetectedSentinel)):
			p.logger.Warn("agent reports debugger detected, evicting", "device_id", conn.DeviceID)
			return false
		case bytes.Equal(reply, packet):
			return sockstate.IsEstablished(sock)
		}
	}
	return false
}

// sweepInUse checks every withdrawn connection's kernel TCP state and
// evicts any that are no longer ESTABLISHED.
func (p *Pool) sweepInUse() {
	p.mu.Lock()
	snapshot := make([]*AgentConnection, 0, len(p.inUse))
	for conn := range p.inUse {
		snapshot = append(snapshot, conn)
	}
	p.mu.Unlock()

	for _, conn := range snapshot {
		if !sockstate.IsEstablished(conn.Conn()) {
			p.logger.Info("in-use sweep evicted dead agent connection", "device_id", conn.DeviceID)
			p.MarkClosed(conn)
		}
	}
}
