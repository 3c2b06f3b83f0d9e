// Package firewall derives the network role of IPsec connections and renders the
// SuSEfirewall2 custom-rules script that opens IPsec traffic for them.
package firewall

import (
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

const (
	ipv4DefaultRoute = "0.0.0.0/0"
	ipv6DefaultRoute = "::/0"
)

// IsIPv4DefaultRoute reports whether a leftsubnet value mentions the IPv4 default route.
// This is a substring match, so values such as "10.0.0.0/0" also match.
func IsIPv4DefaultRoute(leftSubnet string) bool {
	return strings.Contains(leftSubnet, ipv4DefaultRoute)
}

// IsIPv6DefaultRoute reports whether a leftsubnet value mentions the IPv6 default route.
func IsIPv6DefaultRoute(leftSubnet string) bool {
	return strings.Contains(leftSubnet, ipv6DefaultRoute)
}

// IsGateway reports whether a connection routes all client traffic through this host.
func IsGateway(params *ipsec.Params) bool {
	leftSubnet, ok := params.Get("leftsubnet")
	if !ok {
		return false
	}
	return IsIPv4DefaultRoute(leftSubnet) || IsIPv6DefaultRoute(leftSubnet)
}

// IsIPv6Pool picks the address family of a client pool by the presence of a colon.
func IsIPv6Pool(pool string) bool {
	return strings.Contains(pool, ":")
}

// Topology is the firewall-relevant view of a connection set.
type Topology struct {
	GatewayClientPools []string `json:"gatewayClientPools"`
	IPv4ForwardNeeded  bool     `json:"ipv4ForwardNeeded"`
	IPv6ForwardNeeded  bool     `json:"ipv6ForwardNeeded"`
}

// Classify derives the topology of conns. The same input always yields the same
// output; pools follow connection order.
func Classify(conns *ipsec.Connections) Topology {
	topo := Topology{GatewayClientPools: []string{}}
	for _, conn := range conns.All() {
		leftSubnet, hasSubnet := conn.Params.Get("leftsubnet")
		if !hasSubnet {
			continue
		}
		if IsIPv4DefaultRoute(leftSubnet) {
			topo.IPv4ForwardNeeded = true
		}
		if IsIPv6DefaultRoute(leftSubnet) {
			topo.IPv6ForwardNeeded = true
		}
		if !IsGateway(conn.Params) {
			continue
		}
		pool, ok := conn.Params.Get("rightsourceip")
		if !ok {
			continue
		}
		topo.GatewayClientPools = append(topo.GatewayClientPools, pool)
	}
	return topo
}
