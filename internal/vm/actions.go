package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OliverMao/kvm-manager/internal/menu"
)

var (
	// ErrUnknownAction is returned for an action name that maps to no menu
	// entry.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidField is returned when a value would be read by the script
	// as more than one answer.
	ErrInvalidField = errors.New("invalid field value")
)

// Action is a VM lifecycle action, named as in the web form.
type Action string

// VM lifecycle actions.
const (
	ActionStart    Action = "start"
	ActionShutdown Action = "shutdown"
	ActionDelete   Action = "delete"
	ActionExport   Action = "export"
	ActionSuspend  Action = "suspend"
	ActionResume   Action = "resume"
)

// Actions lists the VM lifecycle actions in display order.
var Actions = []Action{
	ActionStart,
	ActionShutdown,
	ActionSuspend,
	ActionResume,
	ActionDelete,
	ActionExport,
}

var vmSequences = map[Action]func(string) menu.Sequence{
	ActionStart:    menu.StartVM,
	ActionShutdown: menu.ShutdownVM,
	ActionDelete:   menu.DeleteVM,
	ActionExport:   menu.ExportVM,
	ActionSuspend:  menu.SuspendVM,
	ActionResume:   menu.ResumeVM,
}

// ParseAction validates a VM action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := vmSequences[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// NetworkAction is an action on the nat1 network.
type NetworkAction string

// Network actions.
const (
	NetworkInit   NetworkAction = "init"
	NetworkDelete NetworkAction = "delete"
	NetworkList   NetworkAction = "list"
	NetworkStart  NetworkAction = "start"
)

// NetworkActions lists the network actions in display order.
var NetworkActions = []NetworkAction{
	NetworkInit,
	NetworkDelete,
	NetworkList,
	NetworkStart,
}

var networkSequences = map[NetworkAction]func() menu.Sequence{
	NetworkInit:   menu.NetworkInit,
	NetworkDelete: menu.NetworkDelete,
	NetworkList:   menu.NetworkList,
	NetworkStart:  menu.NetworkStart,
}

// ParseNetworkAction validates a network action name.
func ParseNetworkAction(s string) (NetworkAction, error) {
	a := NetworkAction(s)
	if _, ok := networkSequences[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// checkField rejects values that contain a line break. The script reads
// one answer per line, so an embedded newline would answer the next prompt
// and could select an unrelated menu entry.
func checkField(field, value string) error {
	if strings.ContainsAny(value, "\n") {
		return fmt.Errorf("%w: %s must not contain a line break", ErrInvalidField, field)
	}
	return nil
}
