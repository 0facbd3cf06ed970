// Package vm provides the high-level VM and network operations offered by
// kvm-manager.sh.
//
// Manager is the single adapter between callers (HTTP handlers, CLI
// commands) and the script's numbered menu. It has one method per logical
// action; each method builds the keystroke sequence from package menu, runs
// the script once through package script and returns the captured result.
// Nothing is cached between calls: every invocation walks the menu from its
// root.
//
// Locking:
//
// When enabled, operations naming the same VM are serialized in process so
// that, for example, a delete and a start of the same VM cannot race inside
// the script. Different VMs, and List, run concurrently. The network
// actions share one lock because they all manage the same nat1 definition.
//
// Errors:
//
// A script that runs and exits non-zero is not an error here; callers
// inspect the returned script.Result. Errors mean the script could not be
// started, the action was unknown, a field was unusable, or the context was
// cancelled while waiting for a lock.
package vm
