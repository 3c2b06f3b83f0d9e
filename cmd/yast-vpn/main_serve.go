package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/binary-sequence-forks/yast-vpn/internal/auth"
	"github.com/binary-sequence-forks/yast-vpn/internal/backup"
	"github.com/binary-sequence-forks/yast-vpn/internal/config"
	"github.com/binary-sequence-forks/yast-vpn/internal/peers"
	"github.com/binary-sequence-forks/yast-vpn/internal/server"
	"github.com/binary-sequence-forks/yast-vpn/internal/settings"
)

type cmdServe struct {
	global *cmdGlobal

	flagListen        string
	flagSecureCookies bool
}

func (c *cmdServe) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "serve"
	cmd.Short = "Serve the HTTP API"
	cmd.Long = `Description:
  Serve the HTTP API

  The listen address defaults to the one stored in the settings file.
  Edits made through the API stay in memory until applied. While there
  are no unsaved edits, external changes to ipsec.conf and ipsec.secrets
  are picked up automatically.
`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	cmd.Flags().StringVar(&c.flagListen, "listen", "", "Listen address (overrides the settings file)")
	cmd.Flags().BoolVar(&c.flagSecureCookies, "secure-cookies", false, "Mark session cookies Secure (when behind TLS)")

	return cmd
}

func (c *cmdServe) Run(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(c.global.flagDataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	settingsManager := settings.NewManager(c.global.dataPath("settings.json"))
	stored, err := settingsManager.Get()
	if err != nil {
		log.Printf("warning: failed to load settings: %v", err)
	}

	authManager := auth.NewManager(settingsManager)
	installed, err := authManager.EnsureDefaults()
	if err != nil {
		return fmt.Errorf("initialize credentials: %w", err)
	}
	if installed {
		log.Printf("warning: default password is in use; change it with POST /api/auth/password")
	}

	rt, err := c.global.newRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if enabled, level := stored.DebugLog(); enabled {
		if err := rt.diag.Configure(enabled, level); err != nil {
			log.Printf("warning: diagnostics logging configure failed: %v", err)
		}
	}

	if stored.WatchEnabled() {
		paths := c.global.paths()
		watcher, err := config.NewWatcher([]string{paths.IPsecConf, paths.IPsecSecrets}, 0, func() {
			reloaded, err := rt.vpn.ReloadIfClean(context.Background())
			switch {
			case err != nil:
				log.Printf("warning: reload after file change failed: %v", err)
			case reloaded:
				rt.diag.Infof("reloaded configuration after external change")
			default:
				log.Printf("warning: configuration changed on disk while edits are pending; not reloading")
			}
		})
		if err != nil {
			log.Printf("warning: file watching disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	backupManager, err := backup.NewManager(rt.vpn)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{
		VPN:           rt.vpn,
		Backup:        backupManager,
		Auth:          authManager,
		Settings:      settingsManager,
		Metrics:       rt.metrics,
		DiagLog:       rt.diag,
		Peers:         peers.NewProber(nil),
		SecureCookies: c.flagSecureCookies,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	listenAddr := c.flagListen
	if listenAddr == "" {
		listenAddr = stored.EffectiveListenAddress()
	}
	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("yast-vpn listening on %s", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-sigCh:
	}
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
	return nil
}
