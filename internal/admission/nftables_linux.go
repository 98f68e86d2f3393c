//go:build linux

package admission

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

// tableName is the nftables table this fabric's admission controller owns.
const tableName = "splicefabric"

// chainName is the single input chain holding the blocklist drop rules.
const chainName = "agent_admission"

// NftablesController implements Controller using the Linux nftables
// subsystem via the google/nftables netlink library. It keeps an IPv4
// filter table with one chain; each blocked IP is a single drop rule.
type NftablesController struct {
	logger *slog.Logger

	mu      sync.Mutex
	blocked map[string]net.IP
}

// NewNftablesController ensures the backing table/chain exist and returns a
// ready-to-use NftablesController. Default state is fully permissive.
func NewNftablesController(logger *slog.Logger) (*NftablesController, error) {
	c := &NftablesController{
		logger:  logger.With("component", "admission"),
		blocked: make(map[string]net.IP),
	}
	if err := c.ensureChain(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *NftablesController) ensureChain() error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("admission: nftables: connect: %w", err)
	}
	table := conn.AddTable(&nftables.Table{Family: nftables.TableFamilyIPv4, Name: tableName})
	conn.AddChain(&nftables.Chain{
		Name:     chainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})
	if err := conn.Flush(); err != nil {
		return fmt.Errorf("admission: nftables: ensure chain: %w", err)
	}
	return nil
}

// Allow reports whether ip is absent from the blocklist. It consults local
// state rather than the kernel ruleset, since admission decisions happen
// per accepted connection and must not round-trip netlink on the hot path.
func (c *NftablesController) Allow(ip net.IP) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, blocked := c.blocked[ip.String()]
	return !blocked
}

// Block adds a drop rule for ip and records it locally.
func (c *NftablesController) Block(ip net.IP) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("admission: nftables: block %s: %w", ip, err)
	}
	table := &nftables.Table{Family: nftables.TableFamilyIPv4, Name: tableName}
	chain := &nftables.Chain{Name: chainName, Table: table}

	v4 := ip.To4()
	if v4 == nil {
		return fmt.Errorf("admission: nftables: block %s: not an IPv4 address", ip)
	}

	conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: 12, Len: 4},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: v4},
			&expr.Verdict{Kind: expr.VerdictDrop},
		},
	})
	if err := conn.Flush(); err != nil {
		return fmt.Errorf("admission: nftables: block %s: %w", ip, err)
	}

	c.blocked[ip.String()] = ip
	c.logger.Info("blocked agent source ip", "ip", ip.String())
	return nil
}

// Unblock removes ip's local record. It does not surgically remove the
// kernel rule; operators rotating a large blocklist should rebuild the
// chain instead. Idempotent against an IP that was never blocked.
func (c *NftablesController) Unblock(ip net.IP) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.blocked, ip.String())
	return nil
}

func (c *NftablesController) Blocked() []net.IP {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]net.IP, 0, len(c.blocked))
	for _, ip := range c.blocked {
		out = append(out, ip)
	}
	return out
}
