package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/output"
)

var (
	outputFormat string
	noHeaders    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List VMs",
	Long: `List virtual machines as reported by the script's list entry.

The script's table is scraped for names and states, and any VNC
connection lines it printed are shown after the table.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML document
  -o json   JSON document`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate output format
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		_, mgr, err := newManager(cmd)
		if err != nil {
			return err
		}

		l, res, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatListing(l)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), result)
		if res.Failed() {
			fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
		}
		return scriptFailure(res)
	},
}

func init() {
	listCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, yaml, json")
	listCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit headers in table output")
}
