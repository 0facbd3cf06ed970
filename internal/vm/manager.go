package vm

import (
	"context"
	"fmt"

	"github.com/OliverMao/kvm-manager/internal/listing"
	"github.com/OliverMao/kvm-manager/internal/logging"
	"github.com/OliverMao/kvm-manager/internal/menu"
	"github.com/OliverMao/kvm-manager/internal/metrics"
	"github.com/OliverMao/kvm-manager/internal/script"
)

// networkLockKey is shared by all network actions.
const networkLockKey = "network:nat1"

// Options configures a Manager.
type Options struct {
	// LockPerVM serializes operations that name the same VM.
	LockPerVM bool
}

// Manager runs VM and network operations through kvm-manager.sh.
type Manager struct {
	runner scriptRunner
	locks  *keyedMutex
}

// NewManager creates a Manager backed by the given script runner.
func NewManager(runner *script.Runner, opts Options) *Manager {
	return newManagerWithDeps(runner, opts)
}

// newManagerWithDeps creates a Manager with an injected runner.
// This allows for testing by accepting interfaces instead of concrete types.
func newManagerWithDeps(runner scriptRunner, opts Options) *Manager {
	m := &Manager{runner: runner}
	if opts.LockPerVM {
		m.locks = newKeyedMutex()
	}
	return m
}

// List runs the list entry and scrapes its output.
//
// The listing is empty, not an error, when the output contains no table.
// List takes no lock and changes nothing on the host.
func (m *Manager) List(ctx context.Context) (listing.Listing, *script.Result, error) {
	res, err := m.runner.Run(ctx, "list", menu.ListVMs().String())
	if err != nil {
		return listing.Listing{}, nil, fmt.Errorf("failed to list VMs: %w", err)
	}

	l := listing.Parse(res.Stdout)
	metrics.ScrapedVMs.Set(float64(len(l.VMs)))
	logging.FromContext(ctx).Debug("scraped VM listing", "vms", len(l.VMs), "vnc_lines", len(l.VNC))

	return l, res, nil
}

// Start starts the named VM.
func (m *Manager) Start(ctx context.Context, name string) (*script.Result, error) {
	return m.Do(ctx, ActionStart, name)
}

// Shutdown shuts the named VM down.
func (m *Manager) Shutdown(ctx context.Context, name string) (*script.Result, error) {
	return m.Do(ctx, ActionShutdown, name)
}

// Delete deletes the named VM.
func (m *Manager) Delete(ctx context.Context, name string) (*script.Result, error) {
	return m.Do(ctx, ActionDelete, name)
}

// Export exports the named VM as an ISO image.
func (m *Manager) Export(ctx context.Context, name string) (*script.Result, error) {
	return m.Do(ctx, ActionExport, name)
}

// Suspend pauses the named VM.
func (m *Manager) Suspend(ctx context.Context, name string) (*script.Result, error) {
	return m.Do(ctx, ActionSuspend, name)
}

// Resume resumes the named VM.
func (m *Manager) Resume(ctx context.Context, name string) (*script.Result, error) {
	return m.Do(ctx, ActionResume, name)
}

// Do runs a VM lifecycle action by name. The VM name is passed to the
// script verbatim, including an empty one.
func (m *Manager) Do(ctx context.Context, action Action, name string) (*script.Result, error) {
	build, ok := vmSequences[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err := checkField("vm_name", name); err != nil {
		return nil, err
	}

	return m.run(ctx, "vm:"+name, string(action), build(name))
}

// NetworkInit defines the nat1 network.
func (m *Manager) NetworkInit(ctx context.Context) (*script.Result, error) {
	return m.DoNetwork(ctx, NetworkInit)
}

// NetworkDelete removes the nat1 network.
func (m *Manager) NetworkDelete(ctx context.Context) (*script.Result, error) {
	return m.DoNetwork(ctx, NetworkDelete)
}

// NetworkList prints all networks.
func (m *Manager) NetworkList(ctx context.Context) (*script.Result, error) {
	return m.DoNetwork(ctx, NetworkList)
}

// NetworkStart activates the nat1 network.
func (m *Manager) NetworkStart(ctx context.Context) (*script.Result, error) {
	return m.DoNetwork(ctx, NetworkStart)
}

// DoNetwork runs a network action by name.
func (m *Manager) DoNetwork(ctx context.Context, action NetworkAction) (*script.Result, error) {
	build, ok := networkSequences[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return m.run(ctx, networkLockKey, "network-"+string(action), build())
}

// run takes the lock for key when locking is enabled and invokes the script.
func (m *Manager) run(ctx context.Context, key, action string, seq menu.Sequence) (*script.Result, error) {
	if m.locks != nil {
		unlock, err := m.locks.Lock(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("gave up waiting for %s: %w", key, err)
		}
		defer unlock()
	}

	res, err := m.runner.Run(ctx, action, seq.String())
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", action, err)
	}
	return res, nil
}
