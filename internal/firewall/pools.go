package firewall

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

// PoolWarning describes a gateway client pool that cannot be parsed or that shares
// addresses with another gateway's pool.
type PoolWarning struct {
	Connection string `json:"connection"`
	Pool       string `json:"pool"`
	Other      string `json:"other,omitempty"`
	Message    string `json:"message"`
}

type gatewayPool struct {
	conn string
	pool string
	set  *netipx.IPSet
}

// CheckPools inspects the client pools of gateway connections. It never changes what
// the script generator emits; the warnings are informational.
func CheckPools(conns *ipsec.Connections) []PoolWarning {
	var (
		warnings []PoolWarning
		pools    []gatewayPool
	)
	for _, conn := range conns.All() {
		if !IsGateway(conn.Params) {
			continue
		}
		raw, ok := conn.Params.Get("rightsourceip")
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" || strings.HasPrefix(entry, "%") {
				continue
			}
			set, err := parsePool(entry)
			if err != nil {
				warnings = append(warnings, PoolWarning{
					Connection: conn.Name,
					Pool:       entry,
					Message:    err.Error(),
				})
				continue
			}
			pools = append(pools, gatewayPool{conn: conn.Name, pool: entry, set: set})
		}
	}

	for i := 0; i < len(pools); i++ {
		for j := i + 1; j < len(pools); j++ {
			if pools[i].conn == pools[j].conn || !pools[i].set.Overlaps(pools[j].set) {
				continue
			}
			warnings = append(warnings, PoolWarning{
				Connection: pools[j].conn,
				Pool:       pools[j].pool,
				Other:      pools[i].conn,
				Message:    fmt.Sprintf("client pool %s overlaps %s of %s", pools[j].pool, pools[i].pool, pools[i].conn),
			})
		}
	}
	return warnings
}

// parsePool accepts the rightsourceip forms that name addresses: a CIDR, a
// from-to range or a single address.
func parsePool(entry string) (*netipx.IPSet, error) {
	var builder netipx.IPSetBuilder
	switch {
	case strings.Contains(entry, "/"):
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid client pool %q: %w", entry, err)
		}
		builder.AddPrefix(prefix.Masked())
	case strings.Contains(entry, "-"):
		r, err := netipx.ParseIPRange(strings.ReplaceAll(entry, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid client pool range %q: %w", entry, err)
		}
		builder.AddRange(r)
	default:
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid client pool %q: %w", entry, err)
		}
		builder.Add(addr)
	}
	return builder.IPSet()
}
