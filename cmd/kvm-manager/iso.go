package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/config"
	"github.com/OliverMao/kvm-manager/internal/iso"
)

var isoCmd = &cobra.Command{
	Use:   "iso",
	Short: "Inspect installer images",
}

var isoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installer ISOs offered by the create form",
	Long: `List the *.iso files in the configured ISO directory together with
their volume labels.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, config.Overrides{})
		if err != nil {
			return err
		}

		catalog := iso.NewCatalog(cfg.ISODir)
		images, err := catalog.List()
		if err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(images) == 0 {
			fmt.Fprintf(out, "No ISO images found in %s\n", catalog.Dir())
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tLABEL\tSIZE")
		for _, img := range images {
			fmt.Fprintf(w, "%s\t%s\t%.1fMB\n", img.Name, img.Label, float64(img.Size)/(1<<20))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(out, "\nTotal: %d image(s)\n", len(images))
		return nil
	},
}

func init() {
	isoCmd.AddCommand(isoListCmd)
}
