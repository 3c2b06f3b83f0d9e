package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type cmdScript struct {
	global *cmdGlobal

	flagDiff bool
}

func (c *cmdScript) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "script"
	cmd.Short = "Print the firewall custom rules script"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	cmd.Flags().BoolVar(&c.flagDiff, "diff", false, "Show a diff against the installed script instead")

	return cmd
}

func (c *cmdScript) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.global.newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if c.flagDiff {
		diff, err := rt.vpn.Diff()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), rt.vpn.Script())
	return nil
}
