package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
	"github.com/OliverMao/kvm-manager/internal/status"
)

// TableFormatter formats data as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row and the VNC heading.
	NoHeaders bool
}

// FormatListing formats the VM table, followed by the VNC block when the
// script printed one.
func (f *TableFormatter) FormatListing(l listing.Listing) (string, error) {
	var buf bytes.Buffer

	if len(l.VMs) == 0 {
		buf.WriteString("No VMs found\n")
	} else {
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

		if !f.NoHeaders {
			_, _ = fmt.Fprintln(w, "NAME\tSTATE\tPHASE")
		}
		for _, vm := range l.VMs {
			state := vm.State
			if state == "" {
				state = "-"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", vm.Name, state, status.PhaseOf(vm.State))
		}

		_ = w.Flush()
	}

	if len(l.VNC) > 0 {
		buf.WriteString("\n")
		if !f.NoHeaders {
			buf.WriteString("VNC:\n")
		}
		buf.WriteString(strings.Join(l.VNC, "\n"))
		buf.WriteString("\n")
	}

	return buf.String(), nil
}

// FormatHost formats a libvirt probe result as key/value rows.
func (f *TableFormatter) FormatHost(hs *libvirt.HostStatus) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "LIBVIRT\t%s\n", hs.Version)

	switch {
	case hs.Network != nil:
		n := hs.Network
		_, _ = fmt.Fprintf(w, "NETWORK\t%s\n", n.Name)
		_, _ = fmt.Fprintf(w, "ACTIVE\t%s\n", yesNo(n.Active))
		_, _ = fmt.Fprintf(w, "AUTOSTART\t%s\n", yesNo(n.Autostart))
		_, _ = fmt.Fprintf(w, "FORWARD\t%s\n", n.ForwardMode)
		if n.Bridge != "" {
			_, _ = fmt.Fprintf(w, "BRIDGE\t%s\n", n.Bridge)
		}
		for _, a := range n.Addresses {
			_, _ = fmt.Fprintf(w, "ADDRESS\t%s\n", formatAddress(a))
			for _, r := range a.DHCPRanges {
				_, _ = fmt.Fprintf(w, "DHCP\t%s - %s\n", r.Start, r.End)
			}
		}
	case hs.NetworkErr != "":
		_, _ = fmt.Fprintf(w, "NETWORK\t%s\n", hs.NetworkErr)
	}

	_ = w.Flush()
	return buf.String(), nil
}

func formatAddress(a libvirt.NetworkAddress) string {
	switch {
	case a.Prefix > 0:
		return fmt.Sprintf("%s/%d", a.Address, a.Prefix)
	case a.Netmask != "":
		return fmt.Sprintf("%s netmask %s", a.Address, a.Netmask)
	default:
		return a.Address
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
