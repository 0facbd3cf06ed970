package output

import (
	"encoding/json"
	"fmt"

	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
)

// JSONFormatter formats data as JSON.
type JSONFormatter struct{}

// FormatListing formats a listing as a JSON object with "vms" and "vnc"
// keys. Both are arrays, never null.
func (f *JSONFormatter) FormatListing(l listing.Listing) (string, error) {
	data, err := json.MarshalIndent(newDocument(l), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal listing to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatHost formats a probe result as JSON.
func (f *JSONFormatter) FormatHost(hs *libvirt.HostStatus) (string, error) {
	data, err := json.MarshalIndent(hs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal host status to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
