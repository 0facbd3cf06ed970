package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/vm"
)

var networkCmd = &cobra.Command{
	Use:   "network <init|delete|list|start>",
	Short: "Manage the nat1 network",
	Long: `Run one of the script's network actions.

  init    Define the nat1 NAT network
  delete  Remove the nat1 network definition
  list    Print all libvirt networks
  start   Activate the nat1 network`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: networkActionNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := vm.ParseNetworkAction(args[0])
		if err != nil {
			return fmt.Errorf("%w (valid: init, delete, list, start)", err)
		}

		_, mgr, err := newManager(cmd)
		if err != nil {
			return err
		}

		res, err := mgr.DoNetwork(cmd.Context(), action)
		return report(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, err)
	},
}

func networkActionNames() []string {
	names := make([]string, 0, len(vm.NetworkActions))
	for _, a := range vm.NetworkActions {
		names = append(names, string(a))
	}
	return names
}
