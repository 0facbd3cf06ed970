package status

import "github.com/OliverMao/kvm-manager/internal/vm"

// Phase is a coarse VM phase derived from a scraped state string.
type Phase string

const (
	PhaseRunning Phase = "Running"
	PhasePaused  Phase = "Paused"
	PhaseStopped Phase = "Stopped"
	PhaseFailed  Phase = "Failed"
	PhaseUnknown Phase = "Unknown"
)

// Scraped state strings with special meaning.
const (
	StateRunning = "running"
	StatePaused  = "paused"
)

// PhaseOf maps a scraped state to a Phase.
func PhaseOf(state string) Phase {
	switch state {
	case StateRunning:
		return PhaseRunning
	case StatePaused, "pmsuspended":
		return PhasePaused
	case "shut", "shutoff", "in":
		return PhaseStopped
	case "crashed":
		return PhaseFailed
	case "":
		return PhaseUnknown
	default:
		return PhaseStopped
	}
}

// IsRunning returns true if the scraped state is exactly "running".
func IsRunning(state string) bool {
	return state == StateRunning
}

// IsPaused returns true if the scraped state is exactly "paused".
func IsPaused(state string) bool {
	return state == StatePaused
}

// IsTerminal returns true if the VM is not running and won't transition
// on its own.
func IsTerminal(state string) bool {
	p := PhaseOf(state)
	return p == PhaseStopped || p == PhaseFailed
}

// Allowed reports whether the action button for a VM in the given state
// should be enabled.
//
// Start is disabled while running. Shutdown and suspend need a running VM.
// Resume needs a paused VM. Delete and export are always offered; the
// script decides whether they succeed.
func Allowed(state string, action vm.Action) bool {
	switch action {
	case vm.ActionStart:
		return !IsRunning(state)
	case vm.ActionShutdown, vm.ActionSuspend:
		return IsRunning(state)
	case vm.ActionResume:
		return IsPaused(state)
	case vm.ActionDelete, vm.ActionExport:
		return true
	default:
		return false
	}
}
