package vm

import (
	"context"

	"github.com/OliverMao/kvm-manager/internal/menu"
	"github.com/OliverMao/kvm-manager/internal/script"
)

// Creation defaults, applied by callers when a field is not supplied.
const (
	DefaultCPU         = "1"
	DefaultRAM         = "1024"
	DefaultDisk        = "5"
	DefaultISO         = "ubuntu-20.04.6-live-server-amd64.iso"
	DefaultAutoInstall = "n"
)

// CreateSpec holds the answers to the creation prompts. All values are
// strings because they are typed into the script as-is; the script does
// its own parsing.
type CreateSpec struct {
	Name        string `json:"name" yaml:"name"`
	CPU         string `json:"cpu" yaml:"cpu"`
	RAM         string `json:"ram" yaml:"ram"`
	Disk        string `json:"disk" yaml:"disk"`
	IP          string `json:"ip" yaml:"ip"`
	ISO         string `json:"iso" yaml:"iso"`
	OSVariant   string `json:"osVariant" yaml:"osVariant"`
	AutoInstall string `json:"autoInstall" yaml:"autoInstall"`
}

// DefaultCreateSpec returns a spec with the form defaults filled in. An
// empty iso selects DefaultISO.
func DefaultCreateSpec(iso string) CreateSpec {
	if iso == "" {
		iso = DefaultISO
	}
	return CreateSpec{
		CPU:         DefaultCPU,
		RAM:         DefaultRAM,
		Disk:        DefaultDisk,
		ISO:         iso,
		AutoInstall: DefaultAutoInstall,
	}
}

// fields returns the creation answers, checking each for line breaks.
func (s CreateSpec) fields() (menu.VMFields, error) {
	checks := []struct{ name, value string }{
		{"name", s.Name},
		{"cpu", s.CPU},
		{"ram", s.RAM},
		{"disk", s.Disk},
		{"ip", s.IP},
		{"iso", s.ISO},
		{"os_variant", s.OSVariant},
		{"auto_install", s.AutoInstall},
	}
	for _, c := range checks {
		if err := checkField(c.name, c.value); err != nil {
			return menu.VMFields{}, err
		}
	}

	return menu.VMFields{
		Name:        s.Name,
		CPU:         s.CPU,
		RAM:         s.RAM,
		Disk:        s.Disk,
		IP:          s.IP,
		ISO:         s.ISO,
		OSVariant:   s.OSVariant,
		AutoInstall: s.AutoInstall,
	}, nil
}

// Create creates a VM. The values are passed verbatim; validating CPU
// counts, sizes and addresses is left to the script.
func (m *Manager) Create(ctx context.Context, spec CreateSpec) (*script.Result, error) {
	f, err := spec.fields()
	if err != nil {
		return nil, err
	}
	return m.run(ctx, "vm:"+spec.Name, "create", menu.CreateVM(f))
}
