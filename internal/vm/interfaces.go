package vm

import (
	"context"

	"github.com/OliverMao/kvm-manager/internal/script"
)

// scriptRunner defines the script invocation needed for VM management.
//
// In production, this is satisfied by *script.Runner.
// In tests, this is satisfied by mock implementations.
type scriptRunner interface {
	// Run executes the script once with input on stdin
	Run(ctx context.Context, action, input string) (*script.Result, error)
}
