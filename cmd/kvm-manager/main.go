package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/config"
	"github.com/OliverMao/kvm-manager/internal/logging"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	configPath string
	scriptPath string
	timeout    time.Duration
	logLevel   string
	logFormat  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kvm-manager",
	Short: "KVM Manager - web front end for kvm-manager.sh",
	Long: `KVM Manager drives the interactive kvm-manager.sh script on behalf of
a browser or the command line.

Every operation runs the script once, answers its menus on standard input
and shows what it printed. The script does the actual work against
libvirt; this tool keeps no state of its own.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	pf.StringVar(&scriptPath, "script", "", "Path to kvm-manager.sh (overrides $"+config.EnvScriptPath+")")
	pf.DurationVar(&timeout, "timeout", config.DefaultScriptTimeout, "Kill the script after this long (0 waits forever)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(vmCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(isoCmd)
	rootCmd.AddCommand(testConnCmd)
}

// loadConfig loads the configuration from the global flags and configures
// logging from it.
func loadConfig(cmd *cobra.Command, o config.Overrides) (*config.Config, error) {
	o.ScriptPath = scriptPath
	o.LogLevel = logLevel
	o.LogFormat = logFormat
	if cmd.Flags().Changed("timeout") {
		t := timeout
		o.Timeout = &t
	}

	cfg, err := config.Load(configPath, os.Getenv, o)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return cfg, nil
}

func newRunner(cfg *config.Config) *script.Runner {
	return script.NewRunner(script.Options{
		Path:    cfg.Script.Path,
		WorkDir: cfg.Script.WorkDir,
		Timeout: cfg.Script.Timeout,
		Env:     cfg.Script.Env,
	})
}

func newManager(cmd *cobra.Command) (*config.Config, *vm.Manager, error) {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return nil, nil, err
	}
	return cfg, vm.NewManager(newRunner(cfg), vm.Options{LockPerVM: cfg.Locking.PerVM}), nil
}
