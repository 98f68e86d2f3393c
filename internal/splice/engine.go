package splice

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/plexsphere/splicefabric/internal/pool"
)

// Engine is the Splice Engine. It owns one listener per configured country
// port, withdraws an agent from the pool for each accepted client, and runs
// the pair's bidirectional forward loop.
type Engine struct {
	cfg     Config
	pool    *pool.Pool
	plugins []Plugin
	logger  *slog.Logger

	nextID int64

	mu        sync.Mutex
	listeners []net.Listener
	active    map[int64]*pair
}

// New constructs a splice Engine. cfg must already have ApplyDefaults called.
func New(cfg Config, p *pool.Pool, plugins []Plugin, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		pool:    p,
		plugins: plugins,
		logger:  logger.With("component", "splice"),
		active:  make(map[int64]*pair),
	}
}

// Run opens one listener per configured country and accepts until ctx is
// cancelled. Each country's accept loop runs in its own goroutine; this
// mirrors "one selector per listener" without requiring an actual
// multiplexed selector, since Go's net package already multiplexes accepts
// across goroutines cheaply.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for cc, port := range e.cfg.CountryToPort {
		lc := net.ListenConfig{}
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(port)))
		if err != nil {
			e.logger.Error("failed to listen for country", "country", cc, "port", port, "error", err)
			continue
		}

		e.mu.Lock()
		e.listeners = append(e.listeners, ln)
		e.mu.Unlock()

		e.logger.Info("splice engine listening", "country", cc, "port", port)

		wg.Add(1)
		go func(cc string, ln net.Listener) {
			defer wg.Done()
			e.acceptLoop(ctx, cc, ln)
		}(cc, ln)
	}

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		for _, ln := range e.listeners {
			_ = ln.Close()
		}
		e.mu.Unlock()
	}()

	wg.Wait()
	return nil
}

func (e *Engine) acceptLoop(ctx context.Context, cc string, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				e.logger.Error("accept failed", "country", cc, "error", err)
				continue
			}
		}
		go e.handleClient(cc, conn)
	}
}

// handleClient withdraws an agent from the pool for cc and, if one is
// available, creates and runs a splice pair.
func (e *Engine) handleClient(cc string, client net.Conn) {
	agentConn, err := e.pool.PopByCountry(cc)
	if err != nil {
		e.logger.Info("no available agent, closing client", "country", cc, "error", err)
		_ = client.Close()
		return
	}

	id := atomic.AddInt64(&e.nextID, 1)
	p := &pair{
		id:       int(id),
		deviceID: agentConn.DeviceID,
		client:   client,
		agent:    agentConn.Conn(),
		plugins:  e.plugins,
		logger:   e.logger,
	}

	for _, plugin := range e.plugins {
		plugin.Register(p.agent, p.client, p.deviceID)
	}

	e.mu.Lock()
	e.active[id] = p
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
		e.pool.MarkClosed(agentConn)
	}()

	p.run()
}

// ActiveCount returns the number of splices currently forwarding.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
