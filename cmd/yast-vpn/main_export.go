package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/binary-sequence-forks/yast-vpn/internal/backup"
	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

type cmdExport struct {
	global *cmdGlobal

	flagFormat string
	flagBackup bool
}

func (c *cmdExport) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "export [<file>]"
	cmd.Short = "Export the configuration"
	cmd.Long = `Description:
  Export the configuration

  Without a file the transfer object is printed to stdout. The format
  follows the file extension unless --format is given. Exports contain
  secrets and are written with mode 0600.
`
	cmd.Args = cobra.MaximumNArgs(1)
	cmd.RunE = c.Run
	cmd.Flags().StringVar(&c.flagFormat, "format", "", "Output format (json or yaml)")
	cmd.Flags().BoolVar(&c.flagBackup, "backup", false, "Wrap the export in a versioned backup envelope")

	return cmd
}

func (c *cmdExport) Run(cmd *cobra.Command, args []string) error {
	rt, err := c.global.newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	target := ""
	if len(args) == 1 {
		target = args[0]
	}
	enc, err := resolveEncoding(c.flagFormat, target)
	if err != nil {
		return err
	}

	var data []byte
	if c.flagBackup {
		manager, err := backup.NewManager(rt.vpn)
		if err != nil {
			return err
		}
		data, err = backup.Encode(manager.Export(), enc)
		if err != nil {
			return err
		}
	} else {
		transfer := rt.vpn.Export()
		if enc == backup.EncodingYAML {
			data, err = transfer.EncodeYAML()
		} else {
			data, err = transfer.EncodeJSON()
		}
		if err != nil {
			return err
		}
	}

	if target == "" || target == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return util.WriteFileAtomic(target, data, 0o600)
}

// resolveEncoding prefers an explicit format and falls back to the file extension.
func resolveEncoding(format, path string) (backup.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "":
		if path == "" || path == "-" {
			return backup.EncodingJSON, nil
		}
		return backup.EncodingForPath(path), nil
	case "json":
		return backup.EncodingJSON, nil
	case "yaml", "yml":
		return backup.EncodingYAML, nil
	default:
		return "", fmt.Errorf("Unknown format %q", format)
	}
}
