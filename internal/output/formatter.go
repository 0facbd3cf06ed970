// Package output provides formatters for printing kvm-manager data on the
// command line in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats scraped listings and host status for output.
type Formatter interface {
	// FormatListing formats a VM listing with its VNC block.
	FormatListing(l listing.Listing) (string, error)

	// FormatHost formats the result of a libvirt probe.
	FormatHost(hs *libvirt.HostStatus) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// document is the structured form shared by the JSON and YAML formatters.
type document struct {
	VMs []listing.VM `json:"vms" yaml:"vms"`
	VNC []string     `json:"vnc" yaml:"vnc"`
}

func newDocument(l listing.Listing) document {
	d := document{VMs: l.VMs, VNC: l.VNC}
	if d.VMs == nil {
		d.VMs = []listing.VM{}
	}
	if d.VNC == nil {
		d.VNC = []string{}
	}
	return d
}
