package web

import (
	"context"
	"sync"

	"github.com/OliverMao/kvm-manager/internal/iso"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

type doCall struct {
	action vm.Action
	name   string
}

// mockManager is a mock implementation of the vmManager interface for testing.
type mockManager struct {
	mu sync.Mutex

	// Configurable behavior
	listFunc    func(ctx context.Context) (listing.Listing, *script.Result, error)
	doFunc      func(ctx context.Context, action vm.Action, name string) (*script.Result, error)
	createFunc  func(ctx context.Context, spec vm.CreateSpec) (*script.Result, error)
	networkFunc func(ctx context.Context, action vm.NetworkAction) (*script.Result, error)

	// Call tracking
	listCalls    int
	doCalls      []doCall
	createCalls  []vm.CreateSpec
	networkCalls []vm.NetworkAction
}

// newMockManager creates a mock whose operations succeed with empty output.
func newMockManager() *mockManager {
	ok := &script.Result{}
	return &mockManager{
		listFunc: func(ctx context.Context) (listing.Listing, *script.Result, error) {
			return listing.Listing{VMs: []listing.VM{}, VNC: []string{}}, ok, nil
		},
		doFunc: func(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
			return ok, nil
		},
		createFunc: func(ctx context.Context, spec vm.CreateSpec) (*script.Result, error) {
			return ok, nil
		},
		networkFunc: func(ctx context.Context, action vm.NetworkAction) (*script.Result, error) {
			return ok, nil
		},
	}
}

func (m *mockManager) List(ctx context.Context) (listing.Listing, *script.Result, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	return m.listFunc(ctx)
}

func (m *mockManager) Do(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
	m.mu.Lock()
	m.doCalls = append(m.doCalls, doCall{action: action, name: name})
	m.mu.Unlock()
	return m.doFunc(ctx, action, name)
}

func (m *mockManager) Create(ctx context.Context, spec vm.CreateSpec) (*script.Result, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, spec)
	m.mu.Unlock()
	return m.createFunc(ctx, spec)
}

func (m *mockManager) DoNetwork(ctx context.Context, action vm.NetworkAction) (*script.Result, error) {
	m.mu.Lock()
	m.networkCalls = append(m.networkCalls, action)
	m.mu.Unlock()
	return m.networkFunc(ctx, action)
}

// mockISOs is a mock implementation of isoLister.
type mockISOs struct {
	images []iso.Image
	err    error
}

func (m *mockISOs) List() ([]iso.Image, error) {
	return m.images, m.err
}

// mockProber is a mock implementation of hostProber.
type mockProber struct {
	mu       sync.Mutex
	status   *libvirt.HostStatus
	err      error
	networks []string
}

func (m *mockProber) Probe(ctx context.Context, network string) (*libvirt.HostStatus, error) {
	m.mu.Lock()
	m.networks = append(m.networks, network)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

// mockChecker is a mock implementation of scriptChecker.
type mockChecker struct {
	err error
}

func (m *mockChecker) Check() error {
	return m.err
}
