package ingress

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/plexsphere/splicefabric/internal/admission"
	"github.com/plexsphere/splicefabric/internal/geoip"
	"github.com/plexsphere/splicefabric/internal/pool"
	"github.com/plexsphere/splicefabric/internal/store"
)

// Server is the agent-facing listener ("peer server"). It accepts one
// connection per agent dial, classifies it, parses its identity frame,
// and enrolls it into the pool.
type Server struct {
	cfg       Config
	pool      *pool.Pool
	admission admission.Controller
	geoip     geoip.Resolver
	devices   store.DeviceStore
	logger    *slog.Logger

	ln net.Listener
}

// NewServer constructs an agent ingress server. cfg must already have
// ApplyDefaults called.
func NewServer(cfg Config, p *pool.Pool, adm admission.Controller, geo geoip.Resolver, devices store.DeviceStore, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		pool:      p,
		admission: adm,
		geoip:     geo,
		devices:   devices,
		logger:    logger.With("component", "ingress"),
	}
}

// Run listens for agent dials until ctx is cancelled. It implements the
// "one dedicated worker running accept forever" thread model.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(s.cfg.ListenPort)))
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Info("agent ingress listening", "port", s.cfg.ListenPort)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error("accept failed", "error", err)
				continue
			}
		}
		go s.handleDial(conn)
	}
}

// handleDial applies the admission check, classifies GeoIP, parses the
// identity frame, and enrolls the connection. An admission rejection or an
// identity-frame read or parse failure closes the connection and logs; a
// failed device-record upsert is logged and the connection stays enrolled.
func (s *Server) handleDial(conn net.Conn) {
	remoteIP := remoteAddrIP(conn)

	// Step 1: admission check. Default permissive; failure here means
	// "blocked", which closes rather than degrading.
	if s.admission != nil && !s.admission.Allow(remoteIP) {
		s.logger.Warn("agent dial rejected by admission controller", "ip", remoteIP.String())
		_ = conn.Close()
		return
	}

	// Step 2: GeoIP classification. Failure degrades to "N/A", it never rejects.
	country, asn := NotAvailable, NotAvailable
	if s.geoip != nil {
		if c, a, err := s.geoip.Lookup(remoteIP); err == nil {
			country, asn = c, a
		}
	}

	// Step 3: read and parse the identity frame.
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	buf := make([]byte, IdentityFrameSize)
	if _, err := readFull(conn, buf); err != nil {
		s.logger.Warn("identity frame read failed, ALERT-PROTOCOL", "error", err, "ip", remoteIP.String())
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	identity, err := parseIdentityFrame(buf)
	if err != nil {
		s.logger.Warn("identity frame malformed, ALERT-PROTOCOL", "error", err, "ip", remoteIP.String())
		_ = conn.Close()
		return
	}

	// Step 4: enroll into the pool.
	ac := pool.NewAgentConnection(conn, identity.IMEI, identity.FCMID, identity.AppVersion, country, asn)
	s.pool.Insert(ac)

	// Step 5: upsert the external device record.
	if s.devices != nil {
		if err := s.devices.UpsertDevice(store.DeviceDetails{
			IMEI:                 identity.IMEI,
			FCMID:                identity.FCMID,
			ASN:                  asn,
			CountryCode:          country,
			IP:                   remoteIP.String(),
			AppVersion:           identity.AppVersion,
			LastConnectTimestamp: time.Now(),
		}); err != nil {
			s.logger.Warn("device record upsert failed", "device_id", identity.IMEI, "error", err)
		}
	}

	s.logger.Info("agent enrolled", "device_id", identity.IMEI, "country", country, "asn", asn)
}

func remoteAddrIP(conn net.Conn) net.IP {
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcpAddr.IP
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return net.IPv4zero
	}
	return net.ParseIP(host)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
