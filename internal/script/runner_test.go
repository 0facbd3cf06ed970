package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kvm-manager.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestRun_EchoesStdin(t *testing.T) {
	path := writeScript(t, "cat\n")
	r := NewRunner(Options{Path: path})

	input := "1\n3\ntestvm\nx\n"
	res, err := r.Run(context.Background(), "delete", input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Stdout != input {
		t.Errorf("Stdout = %q, want %q", res.Stdout, input)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Failed() {
		t.Error("expected Failed() = false")
	}
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	path := writeScript(t, "echo out\necho err >&2\nexit 3\n")
	r := NewRunner(Options{Path: path})

	res, err := r.Run(context.Background(), "start", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Stdout != "out\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if res.Stderr != "err\n" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if !res.Failed() {
		t.Error("expected Failed() = true")
	}
}

func TestRun_Timeout(t *testing.T) {
	path := writeScript(t, "echo started\nexec sleep 10\n")
	r := NewRunner(Options{Path: path, Timeout: 200 * time.Millisecond})

	start := time.Now()
	res, err := r.Run(context.Background(), "list", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !res.TimedOut {
		t.Error("expected TimedOut = true")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "started") {
		t.Errorf("expected output captured before timeout, got %q", res.Stdout)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v, expected it to be killed", elapsed)
	}
}

func TestRun_ParentCancelDoesNotKill(t *testing.T) {
	path := writeScript(t, "sleep 0.2\necho finished\n")
	r := NewRunner(Options{Path: path})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx, "create", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "finished\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "finished\n")
	}
}

func TestRun_NotFound(t *testing.T) {
	r := NewRunner(Options{Path: filepath.Join(t.TempDir(), "missing.sh")})

	res, err := r.Run(context.Background(), "list", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestRun_WorkDirDefaultsToScriptDir(t *testing.T) {
	path := writeScript(t, "pwd\n")
	r := NewRunner(Options{Path: path})

	res, err := r.Run(context.Background(), "list", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("working dir = %q, want %q", got, want)
	}
}

func TestRun_Env(t *testing.T) {
	path := writeScript(t, "echo \"$KVM_TEST_VALUE\"\n")
	r := NewRunner(Options{Path: path, Env: []string{"KVM_TEST_VALUE=hello"}})

	res, err := r.Run(context.Background(), "list", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
}

func TestRun_ScriptIgnoresStdin(t *testing.T) {
	path := writeScript(t, "echo done\n")
	r := NewRunner(Options{Path: path})

	res, err := r.Run(context.Background(), "list", strings.Repeat("x\n", 100000))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "done\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()

	exe := filepath.Join(dir, "ok.sh")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "plain.sh")
	if err := os.WriteFile(plain, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
		anyErr  bool
	}{
		{name: "executable", path: exe},
		{name: "missing", path: filepath.Join(dir, "nope.sh"), wantErr: ErrNotFound},
		{name: "not executable", path: plain, wantErr: ErrNotExecutable},
		{name: "directory", path: dir, anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRunner(Options{Path: tt.path}).Check()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Error("expected error")
				}
			default:
				if err != nil {
					t.Errorf("Check() error = %v", err)
				}
			}
		})
	}
}
