package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/config"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/output"
)

var (
	connNetwork string
	connOutput  string
)

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long: `Test connectivity to the libvirt daemon and display its version and the
state of the managed network.

The connection is read-only and independent of the script.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(connOutput); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd, config.Overrides{})
		if err != nil {
			return err
		}

		network := cfg.Libvirt.Network
		if cmd.Flags().Changed("network") {
			network = connNetwork
		}

		prober := libvirt.NewProber(cfg.Libvirt.Socket, cfg.Libvirt.Timeout)
		hs, err := prober.Probe(cmd.Context(), network)
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(connOutput)})
		if err != nil {
			return err
		}

		result, err := formatter.FormatHost(hs)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	testConnCmd.Flags().StringVar(&connNetwork, "network", "", "Network to inspect (default from configuration)")
	testConnCmd.Flags().StringVarP(&connOutput, "output", "o", "table", "Output format: table, yaml, json")
}
