// Package loader reads VM creation requests from YAML files, so a VM can
// be described once and created repeatedly from the command line.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OliverMao/kvm-manager/internal/vm"
)

const (
	// APIVersion is the only accepted apiVersion.
	APIVersion = "kvm-manager/v1"
	// Kind is the only accepted kind.
	Kind = "VirtualMachine"
)

// Document is the on-disk form of a creation request.
//
// Numeric fields are strings because they are typed into the script as-is;
// YAML numbers such as `ram: 2048` decode into them unchanged.
type Document struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata names the VM.
type Metadata struct {
	Name string `yaml:"name"`
}

// Spec holds the creation prompts' answers.
type Spec struct {
	CPU         string `yaml:"cpu,omitempty"`
	RAM         string `yaml:"ram,omitempty"`
	Disk        string `yaml:"disk,omitempty"`
	IP          string `yaml:"ip,omitempty"`
	ISO         string `yaml:"iso,omitempty"`
	OSVariant   string `yaml:"osVariant,omitempty"`
	AutoInstall string `yaml:"autoInstall,omitempty"`
}

// LoadFromFile loads a creation request from a YAML file.
func LoadFromFile(path string) (vm.CreateSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vm.CreateSpec{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads a creation request from YAML bytes.
//
// Omitted cpu, ram, disk and autoInstall take the form defaults. An omitted
// iso is left empty for the caller to fill from its configuration.
func LoadFromYAML(data []byte) (vm.CreateSpec, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return vm.CreateSpec{}, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	// Validate that apiVersion and kind are present
	if doc.APIVersion == "" {
		return vm.CreateSpec{}, fmt.Errorf("missing required field: apiVersion")
	}
	if doc.Kind == "" {
		return vm.CreateSpec{}, fmt.Errorf("missing required field: kind")
	}
	if doc.APIVersion != APIVersion {
		return vm.CreateSpec{}, fmt.Errorf("unsupported apiVersion: %s (expected: %s)", doc.APIVersion, APIVersion)
	}
	if doc.Kind != Kind {
		return vm.CreateSpec{}, fmt.Errorf("unsupported kind: %s (expected: %s)", doc.Kind, Kind)
	}

	applyDefaults(&doc)

	if err := validate(&doc); err != nil {
		return vm.CreateSpec{}, fmt.Errorf("validation failed: %w", err)
	}

	return vm.CreateSpec{
		Name:        doc.Metadata.Name,
		CPU:         doc.Spec.CPU,
		RAM:         doc.Spec.RAM,
		Disk:        doc.Spec.Disk,
		IP:          doc.Spec.IP,
		ISO:         doc.Spec.ISO,
		OSVariant:   doc.Spec.OSVariant,
		AutoInstall: doc.Spec.AutoInstall,
	}, nil
}

func applyDefaults(doc *Document) {
	if doc.Spec.CPU == "" {
		doc.Spec.CPU = vm.DefaultCPU
	}
	if doc.Spec.RAM == "" {
		doc.Spec.RAM = vm.DefaultRAM
	}
	if doc.Spec.Disk == "" {
		doc.Spec.Disk = vm.DefaultDisk
	}
	if doc.Spec.AutoInstall == "" {
		doc.Spec.AutoInstall = vm.DefaultAutoInstall
	}
}

// validate checks required fields and maps the boolean spellings of
// autoInstall to the script's y/n answer.
func validate(doc *Document) error {
	if doc.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}

	switch strings.ToLower(doc.Spec.AutoInstall) {
	case "y", "yes", "true":
		doc.Spec.AutoInstall = "y"
	case "n", "no", "false":
		doc.Spec.AutoInstall = "n"
	default:
		return fmt.Errorf("spec.autoInstall must be y or n, got %q", doc.Spec.AutoInstall)
	}

	return nil
}
