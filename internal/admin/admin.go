// Package admin implements the HTTP admin/observability surface. It is an
// external collaborator from the core's point of view (§1), but the routes
// and the read-only interfaces they consume are real, built on net/http.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/plexsphere/splicefabric/internal/metrics"
	"github.com/plexsphere/splicefabric/internal/pool"
	"github.com/plexsphere/splicefabric/internal/push"
	"github.com/plexsphere/splicefabric/internal/splice"
	"github.com/plexsphere/splicefabric/internal/store"
)

// Config holds the admin HTTP server's tunables.
type Config struct {
	// ListenAddr is the address the admin server binds to.
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error { return nil }

// Server is the admin HTTP surface.
type Server struct {
	cfg           Config
	pool          *pool.Pool
	engine        *splice.Engine
	devices       store.DeviceStore
	pusher        push.Sender
	metrics       *metrics.Manager
	countryToPort map[string]int
	logger        *slog.Logger

	httpServer *http.Server
}

// NewServer constructs an admin Server. cfg must already have
// ApplyDefaults called. mm may be nil, in which case /metrics reports
// that no collector is configured rather than panicking.
func NewServer(cfg Config, p *pool.Pool, engine *splice.Engine, devices store.DeviceStore, pusher push.Sender, mm *metrics.Manager, countryToPort map[string]int, logger *slog.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		pool:          p,
		engine:        engine,
		devices:       devices,
		pusher:        pusher,
		metrics:       mm,
		countryToPort: countryToPort,
		logger:        logger.With("component", "admin"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/map", s.handleMap)
	mux.HandleFunc("/wakeup", s.handleWakeup)
	mux.HandleFunc("/airplane", s.handleAirplane)
	mux.HandleFunc("/connected_imeis", s.handleConnectedIMEIs)
	mux.HandleFunc("/active_connections", s.handleActiveConnections)
	mux.HandleFunc("/available_asns_per_country", s.handleAvailableASNs)
	mux.HandleFunc("/country_to_port", s.handleCountryToPort)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.httpServer = &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	return s
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("admin server listening", "addr", s.cfg.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	idle := s.pool.CountByCountry()
	var devicesByCountry map[string]int
	if s.devices != nil {
		devicesByCountry = s.devices.CountDevicesByCountry()
	}
	writeJSON(w, map[string]any{
		"idle_by_country":     idle,
		"devices_by_country":  devicesByCountry,
		"active_splices":      s.engine.ActiveCount(),
	})
}

func (s *Server) handleWakeup(w http.ResponseWriter, r *http.Request) {
	imei := r.URL.Query().Get("imei")
	cc := r.URL.Query().Get("cc")
	if imei == "" && cc == "" {
		http.Error(w, "imei or cc is required", http.StatusBadRequest)
		return
	}
	if s.pusher == nil {
		http.Error(w, "push channel not configured", http.StatusServiceUnavailable)
		return
	}
	if imei != "" {
		if err := s.pusher.Wakeup(imei); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) handleAirplane(w http.ResponseWriter, r *http.Request) {
	imei := r.URL.Query().Get("imei")
	if imei == "" {
		http.Error(w, "imei is required", http.StatusBadRequest)
		return
	}
	if s.pusher == nil {
		http.Error(w, "push channel not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.pusher.Airplane(imei); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) handleConnectedIMEIs(w http.ResponseWriter, _ *http.Request) {
	if s.devices == nil {
		writeJSON(w, []string{})
		return
	}
	writeJSON(w, s.devices.ConnectedIMEIs())
}

func (s *Server) handleActiveConnections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"active": s.engine.ActiveCount(), "in_use_agents": s.pool.InUseCount()})
}

func (s *Server) handleAvailableASNs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.pool.AvailableASNs())
}

func (s *Server) handleCountryToPort(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.countryToPort)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics collector not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.metrics.Latest())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
