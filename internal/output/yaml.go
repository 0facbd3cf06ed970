package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
)

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

// FormatListing formats a listing as a YAML document.
func (f *YAMLFormatter) FormatListing(l listing.Listing) (string, error) {
	data, err := yaml.Marshal(newDocument(l))
	if err != nil {
		return "", fmt.Errorf("failed to marshal listing to YAML: %w", err)
	}

	return string(data), nil
}

// FormatHost formats a probe result as YAML.
func (f *YAMLFormatter) FormatHost(hs *libvirt.HostStatus) (string, error) {
	data, err := yaml.Marshal(hs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal host status to YAML: %w", err)
	}

	return string(data), nil
}
