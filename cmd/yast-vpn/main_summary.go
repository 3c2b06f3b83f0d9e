package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/peers"
)

type cmdSummary struct {
	global *cmdGlobal

	flagStatus bool
	flagProbe  bool
}

func (c *cmdSummary) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "summary"
	cmd.Short = "Describe the configured gateways and clients"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	cmd.Flags().BoolVar(&c.flagStatus, "status", false, "Also probe the host and print warnings")
	cmd.Flags().BoolVar(&c.flagProbe, "probe", false, "Ping the remote gateway of every client connection")

	return cmd
}

func (c *cmdSummary) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.global.newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	fmt.Fprint(out, ipsec.FormatSummary(rt.vpn.Summary()))

	conf, secrets := rt.vpn.Unsupported()
	for _, entry := range append(conf, secrets...) {
		fmt.Fprintf(out, "unsupported: %s\n", entry)
	}
	if c.flagProbe {
		fmt.Fprintln(out)
		for _, res := range peers.NewProber(nil).Check(cmd.Context(), peers.Targets(rt.vpn.Connections())) {
			if res.Success {
				fmt.Fprintf(out, "%s (%s): %.1f ms\n", res.Connection, res.Address, res.LatencyMS)
			} else {
				fmt.Fprintf(out, "%s (%s): unreachable: %s\n", res.Connection, res.Address, res.Error)
			}
		}
	}
	if !c.flagStatus {
		return nil
	}
	status, err := rt.vpn.Status(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\ndaemon active: %t\nfirewall enabled: %t, started: %t\nscript installed: %t, current: %t\n",
		status.DaemonActive, status.FirewallEnabled, status.FirewallStarted, status.ScriptInstalled, status.ScriptCurrent)
	for _, warning := range status.PoolWarnings {
		fmt.Fprintf(out, "warning: %s\n", warning.Message)
	}
	for _, warning := range status.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	return nil
}
