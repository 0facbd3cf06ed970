// Package menu encodes the numbered-menu keystroke sequences understood by
// kvm-manager.sh.
//
// The script presents a nested text menu on standard input. Every logical
// action is reached by typing a fixed series of menu choices followed by
// free-form field values and finally the exit choice "x". The choices are
// positional: if the script reorders its menu, the constants below are the
// only thing that has to change.
//
// Every request starts from the root menu; no menu state is kept between
// invocations.
package menu

import "strings"

// Root menu choices.
const (
	rootVM      = "1"
	rootNetwork = "2"

	// Exit leaves the current menu and ends the script.
	Exit = "x"
)

// VM submenu choices.
const (
	vmList     = "2"
	vmDelete   = "3"
	vmStart    = "4"
	vmShutdown = "5"
	vmExport   = "6"
	vmSuspend  = "8"
	vmResume   = "9"
)

// Network submenu choices for the nat1 network.
const (
	networkInit   = "1"
	networkDelete = "2"
	networkList   = "3"
	networkStart  = "4"
)

// Sequence is an ordered list of tokens written to the script's standard
// input, one per line.
type Sequence []string

// String renders the sequence as the literal stdin payload: every token is
// terminated by a newline, including the last one.
//
// Tokens are written verbatim. A token containing a newline would be read by
// the script as two answers; callers that care must reject such values.
func (s Sequence) String() string {
	if len(s) == 0 {
		return ""
	}
	return strings.Join(s, "\n") + "\n"
}

// VMFields are the answers to the VM creation prompts, in prompt order.
type VMFields struct {
	Name        string
	CPU         string
	RAM         string
	Disk        string
	IP          string
	ISO         string
	OSVariant   string
	AutoInstall string
}

// ListVMs prints the VM table and VNC connection info.
func ListVMs() Sequence {
	return Sequence{rootVM, vmList, Exit}
}

// StartVM starts the named VM.
func StartVM(name string) Sequence {
	return vmAction(vmStart, name)
}

// ShutdownVM gracefully shuts the named VM down.
func ShutdownVM(name string) Sequence {
	return vmAction(vmShutdown, name)
}

// DeleteVM undefines the named VM and removes its disks.
func DeleteVM(name string) Sequence {
	return vmAction(vmDelete, name)
}

// ExportVM exports the named VM as an ISO image.
func ExportVM(name string) Sequence {
	return vmAction(vmExport, name)
}

// SuspendVM pauses the named VM.
func SuspendVM(name string) Sequence {
	return vmAction(vmSuspend, name)
}

// ResumeVM resumes the named paused VM.
func ResumeVM(name string) Sequence {
	return vmAction(vmResume, name)
}

// CreateVM answers the creation prompts. The script enters the creation
// dialog directly from the VM menu choice, so no submenu token precedes the
// field values.
func CreateVM(f VMFields) Sequence {
	return Sequence{
		rootVM,
		f.Name,
		f.CPU,
		f.RAM,
		f.Disk,
		f.IP,
		f.ISO,
		f.OSVariant,
		f.AutoInstall,
		Exit,
	}
}

// NetworkInit defines the nat1 network.
func NetworkInit() Sequence {
	return Sequence{rootNetwork, networkInit, Exit}
}

// NetworkDelete removes the nat1 network definition.
func NetworkDelete() Sequence {
	return Sequence{rootNetwork, networkDelete, Exit}
}

// NetworkList prints all libvirt networks.
func NetworkList() Sequence {
	return Sequence{rootNetwork, networkList, Exit}
}

// NetworkStart activates the nat1 network.
func NetworkStart() Sequence {
	return Sequence{rootNetwork, networkStart, Exit}
}

func vmAction(choice, name string) Sequence {
	return Sequence{rootVM, choice, name, Exit}
}
