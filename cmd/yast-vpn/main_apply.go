package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/binary-sequence-forks/yast-vpn/internal/vpn"
)

type cmdApply struct {
	global *cmdGlobal
}

func (c *cmdApply) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "apply"
	cmd.Short = "Write the configuration and apply it to the host"
	cmd.Long = `Description:
  Write the configuration and apply it to the host

  Rewrites ipsec.conf and ipsec.secrets, enables or disables the daemon,
  turns on forwarding when a gateway needs it and installs the firewall
  custom rules hook.
`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run

	return cmd
}

func (c *cmdApply) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.global.newRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.vpn.Write(cmd.Context(), "cli")
	printWriteResult(cmd, result)
	return err
}

func printWriteResult(cmd *cobra.Command, result vpn.WriteResult) {
	out := cmd.OutOrStdout()
	for _, step := range result.Steps {
		status := "ok"
		if !step.OK {
			status = "FAILED"
		}
		fmt.Fprintf(out, "%-9s %-6s %s\n", step.Step, status, step.Message)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
}
