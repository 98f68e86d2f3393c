package splice

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"syscall"
)

// pair is one spliced (client, agent) connection. Forwarding runs as two
// goroutines, one per direction — the idiomatic Go rendering of "an
// event-loop with one read-edge handler per direction": each direction has
// exactly one goroutine reading and writing its own chunk, preserving the
// per-direction byte-ordering guarantee without a shared selector thread.
type pair struct {
	id         int
	deviceID   string
	client     net.Conn
	agent      net.Conn
	plugins    []Plugin
	logger     *slog.Logger

	closeOnce sync.Once
}

// run forwards both directions until either side closes, errors, or a
// plugin vetoes the splice, then tears the splice down exactly once.
func (p *pair) run() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		p.forward(p.client, p.agent)
		p.closeSockets()
	}()
	go func() {
		defer wg.Done()
		p.forward(p.agent, p.client)
		p.closeSockets()
	}()

	wg.Wait()
	p.teardown()
}

// forward reads up to SocketReadSize bytes from src, writes the chunk to
// dst, then offers the chunk to every plugin. A plugin veto or any I/O
// failure ends this direction's loop (and triggers the shared teardown).
func (p *pair) forward(src, dst net.Conn) {
	buf := make([]byte, SocketReadSize)
	for {
		n, err := src.Read(buf)
		if err != nil || n == 0 {
			return
		}
		chunk := buf[:n]

		if _, err := dst.Write(chunk); err != nil {
			if !isBrokenPipe(err) {
				p.logger.Debug("splice write failed", "device_id", p.deviceID, "error", err)
			}
			return
		}

		for _, plugin := range p.plugins {
			if err := plugin.PacketTransmitted(src, dst, chunk); err != nil {
				p.logger.Info("plugin vetoed splice", "device_id", p.deviceID, "error", err)
				p.closeSockets()
				return
			}
		}
	}
}

// closeSockets closes both sockets, which unblocks whichever direction's
// Read call is currently parked so run's WaitGroup can complete.
func (p *pair) closeSockets() {
	p.closeOnce.Do(func() {
		_, _ = p.agent.Write([]byte(ClosingSentinel))
		_ = p.client.Close()
		_ = p.agent.Close()
	})
}

// teardown closes both sockets (idempotent with closeSockets) and
// unregisters the splice from every plugin.
func (p *pair) teardown() {
	p.closeSockets()
	for _, plugin := range p.plugins {
		plugin.Unregister(p.client)
	}
}

// isBrokenPipe demotes EPIPE to debug-level logging, per the engine's
// selector-exception policy.
func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}
