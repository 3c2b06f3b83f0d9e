package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/binary-sequence-forks/yast-vpn/internal/backup"
	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

type cmdImport struct {
	global *cmdGlobal

	flagFormat string
	flagBackup bool
	flagDryRun bool
}

func (c *cmdImport) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "import <file>"
	cmd.Short = "Import a configuration and apply it"
	cmd.Long = `Description:
  Import a configuration and apply it

  Replaces the whole model with the content of the file ("-" for stdin)
  and writes it to the host. With --dry-run only the resulting summary
  and firewall script are printed.
`
	cmd.Args = cobra.ExactArgs(1)
	cmd.RunE = c.Run
	cmd.Flags().StringVar(&c.flagFormat, "format", "", "Input format (json or yaml)")
	cmd.Flags().BoolVar(&c.flagBackup, "backup", false, "The file is a versioned backup envelope")
	cmd.Flags().BoolVar(&c.flagDryRun, "dry-run", false, "Do not write anything")

	return cmd
}

func (c *cmdImport) Run(cmd *cobra.Command, args []string) error {
	enc, err := resolveEncoding(c.flagFormat, args[0])
	if err != nil {
		return err
	}
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	rt, err := c.global.newRuntime(cmd, !c.flagDryRun)
	if err != nil {
		return err
	}
	defer rt.Close()

	var warnings []string
	if c.flagBackup {
		snapshot, err := backup.Decode(data, enc)
		if err != nil {
			return err
		}
		manager, err := backup.NewManager(rt.vpn)
		if err != nil {
			return err
		}
		result, err := manager.Import(snapshot)
		if err != nil {
			return err
		}
		warnings = result.Warnings
	} else {
		var transfer *ipsec.Transfer
		if enc == backup.EncodingYAML {
			transfer, err = ipsec.DecodeTransferYAML(data)
		} else {
			transfer, err = ipsec.DecodeTransferJSON(data)
		}
		if err != nil {
			return err
		}
		warnings, err = rt.vpn.Import(transfer)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, warning := range warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if c.flagDryRun {
		fmt.Fprint(out, ipsec.FormatSummary(rt.vpn.Summary()))
		fmt.Fprintln(out)
		fmt.Fprint(out, rt.vpn.Script())
		return nil
	}

	result, err := rt.vpn.Write(cmd.Context(), "import")
	printWriteResult(cmd, result)
	return err
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
