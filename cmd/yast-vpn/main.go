package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/binary-sequence-forks/yast-vpn/internal/config"
	"github.com/binary-sequence-forks/yast-vpn/internal/database"
	"github.com/binary-sequence-forks/yast-vpn/internal/diaglog"
	"github.com/binary-sequence-forks/yast-vpn/internal/firewall"
	"github.com/binary-sequence-forks/yast-vpn/internal/metrics"
	"github.com/binary-sequence-forks/yast-vpn/internal/packages"
	"github.com/binary-sequence-forks/yast-vpn/internal/sysctl"
	"github.com/binary-sequence-forks/yast-vpn/internal/systemd"
	"github.com/binary-sequence-forks/yast-vpn/internal/version"
	"github.com/binary-sequence-forks/yast-vpn/internal/vpn"
)

const defaultDataDir = "/var/lib/yast-vpn"

type cmdGlobal struct {
	flagDataDir      string
	flagIPsecConf    string
	flagIPsecSecrets string
	flagFWRules      string
	flagFWSysconfig  string
	flagSysctlConf   string
	flagNoHistory    bool
}

func main() {
	app := &cobra.Command{}
	app.Use = version.Name
	app.Short = "Manage IPsec gateways and clients"
	app.Long = `Description:
  Manage IPsec gateways and clients

  Reads /etc/ipsec.conf and /etc/ipsec.secrets into an editable model,
  and writes it back together with the daemon state, kernel forwarding
  and the firewall custom rules hook.
`
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	// Global flags.
	defaults := config.DefaultPaths()
	globalCmd := cmdGlobal{}
	flags := app.PersistentFlags()
	flags.StringVar(&globalCmd.flagDataDir, "data-dir", defaultDataDir, "Directory for settings, history and diagnostics")
	flags.StringVar(&globalCmd.flagIPsecConf, "ipsec-conf", defaults.IPsecConf, "Path to ipsec.conf")
	flags.StringVar(&globalCmd.flagIPsecSecrets, "ipsec-secrets", defaults.IPsecSecrets, "Path to ipsec.secrets")
	flags.StringVar(&globalCmd.flagFWRules, "firewall-rules", defaults.FirewallRules, "Path to the firewall custom rules script")
	flags.StringVar(&globalCmd.flagFWSysconfig, "firewall-sysconfig", defaults.FirewallSysconfig, "Path to the firewall sysconfig file")
	flags.StringVar(&globalCmd.flagSysctlConf, "sysctl-conf", defaults.SysctlConf, "Path to sysctl.conf")
	flags.BoolVar(&globalCmd.flagNoHistory, "no-history", false, "Do not record writes in the history database")

	// Version handling.
	app.SetVersionTemplate("{{.Version}}\n")
	app.Version = version.Current().String()

	serveCmd := cmdServe{global: &globalCmd}
	app.AddCommand(serveCmd.Command())

	applyCmd := cmdApply{global: &globalCmd}
	app.AddCommand(applyCmd.Command())

	scriptCmd := cmdScript{global: &globalCmd}
	app.AddCommand(scriptCmd.Command())

	exportCmd := cmdExport{global: &globalCmd}
	app.AddCommand(exportCmd.Command())

	importCmd := cmdImport{global: &globalCmd}
	app.AddCommand(importCmd.Command())

	summaryCmd := cmdSummary{global: &globalCmd}
	app.AddCommand(summaryCmd.Command())

	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func (c *cmdGlobal) paths() config.Paths {
	return config.Paths{
		IPsecConf:         c.flagIPsecConf,
		IPsecSecrets:      c.flagIPsecSecrets,
		FirewallRules:     c.flagFWRules,
		FirewallSysconfig: c.flagFWSysconfig,
		SysctlConf:        c.flagSysctlConf,
	}
}

func (c *cmdGlobal) dataPath(name string) string {
	return filepath.Join(c.flagDataDir, name)
}

// openDB opens the history database, or returns nil when history is disabled.
func (c *cmdGlobal) openDB() (*sql.DB, error) {
	if c.flagNoHistory {
		return nil, nil
	}
	if err := os.MkdirAll(c.flagDataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := database.Open(c.dataPath("history.db"))
	if err != nil {
		return nil, err
	}
	if err := database.Cleanup(db); err != nil {
		log.Printf("warning: history cleanup failed: %v", err)
	}
	return db, nil
}

type runtime struct {
	vpn     *vpn.Manager
	db      *sql.DB
	metrics *metrics.Registry
	diag    *diaglog.Manager
}

func (r *runtime) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
	_ = r.diag.Close()
}

// newRuntime wires the orchestrator against the host and loads the current files.
func (c *cmdGlobal) newRuntime(cmd *cobra.Command, withDB bool) (*runtime, error) {
	paths := c.paths()
	if !config.Exists(paths.IPsecConf) {
		log.Printf("warning: %s does not exist; starting from an empty configuration", paths.IPsecConf)
	}
	rt := &runtime{
		metrics: metrics.New(),
		diag:    diaglog.New(c.dataPath("diagnostics.log")),
	}
	if withDB {
		db, err := c.openDB()
		if err != nil {
			return nil, err
		}
		rt.db = db
	}
	manager, err := vpn.NewManager(vpn.Deps{
		Config:   config.NewManager(paths),
		Hook:     firewall.NewHook(paths, nil),
		Services: systemd.NewManager(),
		Sysctl:   sysctl.NewManager(paths.SysctlConf, nil),
		Packages: packages.NewManager(nil),
		DB:       rt.db,
		Metrics:  rt.metrics,
		Diag:     rt.diag,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := manager.Read(cmd.Context()); err != nil {
		rt.Close()
		return nil, err
	}
	rt.vpn = manager
	return rt, nil
}
