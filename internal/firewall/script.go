package firewall

import (
	"fmt"
	"strings"
)

const (
	scriptBanner = "# The file is automatically generated by YaST VPN module.\n" +
		"# You may run the file using bourne-shell-compatible interpreter.\n"

	// MSSClampMarker identifies the clamp rule in an installed script.
	MSSClampMarker = "--set-mss 1024"

	mssClampRule = "%s -A FORWARD -p tcp --tcp-flags SYN,RST SYN -j TCPMSS " + MSSClampMarker + "\n"
	udpPortRule  = "%s -A INPUT -p udp --dport %d -j ACCEPT\n"
	protocolRule = "%s -A INPUT -p %d -j ACCEPT\n"
	forwardRule  = "%s -A FORWARD -s %s -j ACCEPT\n"
	masqRule     = "%s -t nat -A POSTROUTING -s %s -j MASQUERADE\n"

	iptables  = "iptables"
	ip6tables = "ip6tables"

	protocolESP = 50
)

var ikePorts = []int{500, 4500}

// Hook names in the order SuSEfirewall2 invokes them.
const (
	HookAfterChainCreation = "fw_custom_after_chain_creation"
	HookBeforePortHandling = "fw_custom_before_port_handling"
	HookBeforeMasq         = "fw_custom_before_masq"
	HookBeforeDenyAll      = "fw_custom_before_denyall"
	HookAfterFinished      = "fw_custom_after_finished"
)

// ScriptInput carries everything the generator reads.
type ScriptInput struct {
	Topology       Topology
	HasConnections bool
	TCPMSSClamp    bool
}

// GenerateScript renders the custom-rules script. Output depends only on in.
func GenerateScript(in ScriptInput) string {
	var b strings.Builder
	b.WriteString(scriptBanner)
	writeHook(&b, HookAfterChainCreation, chainCreationRules(in.HasConnections))
	writeHook(&b, HookBeforePortHandling, "")
	writeHook(&b, HookBeforeMasq, masqRules(in.Topology.GatewayClientPools, in.TCPMSSClamp))
	writeHook(&b, HookBeforeDenyAll, "")
	writeHook(&b, HookAfterFinished, "")
	return b.String()
}

func writeHook(b *strings.Builder, name, body string) {
	fmt.Fprintf(b, "%s() {\n%strue\n}\n%s\n", name, body, name)
}

func chainCreationRules(hasConnections bool) string {
	if !hasConnections {
		return ""
	}
	var b strings.Builder
	for _, tool := range []string{iptables, ip6tables} {
		for _, port := range ikePorts {
			fmt.Fprintf(&b, udpPortRule, tool, port)
		}
	}
	for _, tool := range []string{iptables, ip6tables} {
		fmt.Fprintf(&b, protocolRule, tool, protocolESP)
	}
	return b.String()
}

func masqRules(pools []string, clamp bool) string {
	var b strings.Builder
	if clamp {
		fmt.Fprintf(&b, mssClampRule, iptables)
		fmt.Fprintf(&b, mssClampRule, ip6tables)
	}
	for _, pool := range pools {
		tool := iptables
		if IsIPv6Pool(pool) {
			tool = ip6tables
		}
		fmt.Fprintf(&b, forwardRule, tool, pool)
		fmt.Fprintf(&b, masqRule, tool, pool)
	}
	return b.String()
}

// HasMSSClamp reports whether an installed script contains the MSS clamp rule.
func HasMSSClamp(script string) bool {
	return strings.Contains(script, MSSClampMarker)
}
