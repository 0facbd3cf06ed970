package vm

import (
	"context"
	"sync"

	"github.com/OliverMao/kvm-manager/internal/script"
)

// runCall records a single Run invocation.
type runCall struct {
	action string
	input  string
}

// mockRunner is a mock implementation of the scriptRunner interface for testing.
type mockRunner struct {
	mu sync.Mutex

	// Configurable behavior
	runFunc func(ctx context.Context, action, input string) (*script.Result, error)

	// Call tracking
	runCalls []runCall
}

// newMockRunner creates a new mock runner whose script prints nothing and
// exits zero.
func newMockRunner() *mockRunner {
	m := &mockRunner{}

	m.runFunc = func(ctx context.Context, action, input string) (*script.Result, error) {
		return &script.Result{}, nil
	}

	return m
}

func (m *mockRunner) Run(ctx context.Context, action, input string) (*script.Result, error) {
	m.mu.Lock()
	m.runCalls = append(m.runCalls, runCall{action: action, input: input})
	fn := m.runFunc
	m.mu.Unlock()

	return fn(ctx, action, input)
}

func (m *mockRunner) calls() []runCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]runCall, len(m.runCalls))
	copy(out, m.runCalls)
	return out
}
