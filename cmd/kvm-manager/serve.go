package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/config"
	"github.com/OliverMao/kvm-manager/internal/iso"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/metrics"
	"github.com/OliverMao/kvm-manager/internal/vm"
	"github.com/OliverMao/kvm-manager/internal/web"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	Long: `Serve the web interface on the configured address.

Pages:
  /         VM list with lifecycle buttons and VNC connection info
  /create   Creation form
  /network  nat1 network actions

Probes and metrics are served on /healthz, /readyz and /metrics. The server
shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, config.Overrides{Listen: listenAddr})
		if err != nil {
			return err
		}

		metrics.Register(prometheus.DefaultRegisterer)

		runner := newRunner(cfg)
		if err := runner.Check(); err != nil {
			slog.Warn("script is not usable yet; requests will fail until it is", "error", err)
		}
		mgr := vm.NewManager(runner, vm.Options{LockPerVM: cfg.Locking.PerVM})

		var prober *libvirt.Prober
		if cfg.Libvirt.Enabled {
			prober = libvirt.NewProber(cfg.Libvirt.Socket, cfg.Libvirt.Timeout)
		}

		srv, err := web.NewServer(web.Options{
			NoticeLimit:  cfg.NoticeLimit,
			DefaultISO:   cfg.DefaultISO,
			Network:      cfg.Libvirt.Network,
			ProbeTimeout: cfg.Libvirt.Timeout,
			MetricsPath:  cfg.Metrics.Path,
			Username:     cfg.Auth.Username,
			PasswordHash: cfg.Auth.PasswordHash,
		}, mgr, runner, iso.NewCatalog(cfg.ISODir), prober)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		slog.Info("starting kvm-manager",
			"version", version,
			"script", runner.Path(),
			"timeout", cfg.Script.Timeout,
			"lock_per_vm", cfg.Locking.PerVM,
			"libvirt", cfg.Libvirt.Enabled,
			"auth", cfg.Auth.Enabled(),
		)

		// No write timeout: a page waits for the script, which may run for
		// as long as the script timeout allows.
		httpSrv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return web.ListenAndServe(cmd.Context(), httpSrv, cfg.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (default \""+config.DefaultListen+"\")")
}
