package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/OliverMao/kvm-manager/internal/loader"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Run VM lifecycle actions",
	Long: `Run a lifecycle action against one virtual machine.

The script's full output is printed. The command fails when the script
exits non-zero or times out.`,
}

var (
	createSpec  vm.CreateSpec
	autoInstall bool
	createFile  string
)

var vmCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a VM",
	Long: `Create a virtual machine through the script's creation dialog.

Values are passed to the script as typed; it validates them itself. The
request can come from flags or from a YAML file (see -f).

Examples:
  kvm-manager vm create --name web01 --cpu 2 --ram 2048 --disk 20 \
    --ip 192.168.100.10 --iso ubuntu-22.04.iso --os-variant ubuntu22.04

  kvm-manager vm create -f web01.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, mgr, err := newManager(cmd)
		if err != nil {
			return err
		}

		spec, err := createRequest(cmd, cfg.DefaultISO)
		if err != nil {
			return err
		}

		res, err := mgr.Create(cmd.Context(), spec)
		return report(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, err)
	},
}

func init() {
	for _, a := range vm.Actions {
		vmCmd.AddCommand(newVMActionCmd(a))
	}
	vmCmd.AddCommand(vmCreateCmd)

	f := vmCreateCmd.Flags()
	f.StringVar(&createSpec.Name, "name", "", "VM name")
	f.StringVar(&createSpec.CPU, "cpu", vm.DefaultCPU, "Number of vCPUs")
	f.StringVar(&createSpec.RAM, "ram", vm.DefaultRAM, "Memory in MiB")
	f.StringVar(&createSpec.Disk, "disk", vm.DefaultDisk, "Disk size in GiB")
	f.StringVar(&createSpec.IP, "ip", "", "Static IP address on the nat1 network")
	f.StringVar(&createSpec.ISO, "iso", vm.DefaultISO, "Installer ISO file name")
	f.StringVar(&createSpec.OSVariant, "os-variant", "", "OS variant for virt-install")
	f.BoolVar(&autoInstall, "auto-install", false, "Run an unattended installation")
	f.StringVarP(&createFile, "file", "f", "", "Read the request from a YAML file instead of flags")
	vmCreateCmd.MarkFlagsMutuallyExclusive("file", "name")
}

// createRequest builds the creation request from -f or from the flags.
// An ISO left unset falls back to the configured default.
func createRequest(cmd *cobra.Command, defaultISO string) (vm.CreateSpec, error) {
	var spec vm.CreateSpec
	if createFile != "" {
		loaded, err := loader.LoadFromFile(createFile)
		if err != nil {
			return vm.CreateSpec{}, fmt.Errorf("failed to load %s: %w", createFile, err)
		}
		spec = loaded
		if spec.ISO == "" {
			spec.ISO = defaultISO
		}
		return spec, nil
	}

	if createSpec.Name == "" {
		return vm.CreateSpec{}, fmt.Errorf("either --name or --file is required")
	}

	spec = createSpec
	if !cmd.Flags().Changed("iso") {
		spec.ISO = defaultISO
	}
	spec.AutoInstall = "n"
	if autoInstall {
		spec.AutoInstall = "y"
	}
	return spec, nil
}

func newVMActionCmd(a vm.Action) *cobra.Command {
	return &cobra.Command{
		Use:   string(a) + " <vm-name>",
		Short: fmt.Sprintf("%s a VM", titleCase(string(a))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := newManager(cmd)
			if err != nil {
				return err
			}

			res, err := mgr.Do(cmd.Context(), a, args[0])
			return report(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, err)
		},
	}
}

// report prints everything the script wrote and turns a failed run into an
// error.
func report(stdout, stderr io.Writer, res *script.Result, err error) error {
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, res.Stdout)
	fmt.Fprint(stderr, res.Stderr)
	return scriptFailure(res)
}

// scriptFailure returns an error when the script exited non-zero or timed
// out.
func scriptFailure(res *script.Result) error {
	switch {
	case res.TimedOut:
		return fmt.Errorf("script timed out after %s", res.Duration.Round(time.Millisecond))
	case res.ExitCode != 0:
		return fmt.Errorf("script exited with code %d", res.ExitCode)
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
