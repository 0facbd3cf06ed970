package web

import (
	"context"

	"github.com/OliverMao/kvm-manager/internal/iso"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

// vmManager defines the VM operations the handlers need.
type vmManager interface {
	List(ctx context.Context) (listing.Listing, *script.Result, error)
	Do(ctx context.Context, action vm.Action, name string) (*script.Result, error)
	Create(ctx context.Context, spec vm.CreateSpec) (*script.Result, error)
	DoNetwork(ctx context.Context, action vm.NetworkAction) (*script.Result, error)
}

// isoLister lists installer images for the create form.
type isoLister interface {
	List() ([]iso.Image, error)
}

// hostProber reads libvirt state for the network page and readiness.
type hostProber interface {
	Probe(ctx context.Context, network string) (*libvirt.HostStatus, error)
}

// scriptChecker verifies the script can be executed.
type scriptChecker interface {
	Check() error
}
