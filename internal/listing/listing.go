// Package listing scrapes the VM table and VNC connection block out of the
// text printed by the script's "list VMs" menu entry.
//
// The script prints virsh-style output:
//
//	 Id   Name    State
//	-----------------------
//	 1    web01   running
//	 -    web02   shut off
//
//	VNC connection info
//	web01: 0.0.0.0:5900
//
// Parsing is a single forward pass driven by a three-state machine. Output
// that matches neither the header nor the marker yields an empty Listing.
// Parse never fails.
package listing

import (
	"strings"
)

// VNCMarkers are the phrases that introduce the VNC block. The script
// prints the Chinese form; the English form is accepted for localized
// builds.
var VNCMarkers = []string{
	"VNC connection info",
	"VNC连接信息",
}

// VM is a single scraped table row.
type VM struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}

// Listing is the scraped result of one list invocation.
type Listing struct {
	VMs []VM     `json:"vms" yaml:"vms"`
	VNC []string `json:"vnc" yaml:"vnc"`
}

type state int

const (
	seekingHeader state = iota
	inTable
	done
)

// Parse extracts the VM table and the VNC block from raw script output.
func Parse(output string) Listing {
	result := Listing{
		VMs: []VM{},
		VNC: []string{},
	}

	lines := splitLines(output)
	st := seekingHeader

	for i, line := range lines {
		if isVNCMarker(line) {
			result.VNC = append(result.VNC, lines[i+1:]...)
			st = done
		}

		switch st {
		case seekingHeader:
			if isHeader(line) {
				st = inTable
			}
		case inTable:
			if strings.TrimSpace(line) == "" {
				st = seekingHeader
				continue
			}
			if vm, ok := parseRow(line); ok {
				result.VMs = append(result.VMs, vm)
			}
		}

		if st == done {
			break
		}
	}

	return result
}

// isHeader reports whether line is the table header. The match is by
// substring so that padding and extra columns do not matter.
func isHeader(line string) bool {
	return strings.Contains(line, "Id") &&
		strings.Contains(line, "Name") &&
		strings.Contains(line, "State")
}

func isVNCMarker(line string) bool {
	for _, m := range VNCMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// parseRow takes the second and third whitespace separated fields as name
// and state. The first column is the domain id, or "-" for inactive domains.
// Multi-word states such as "shut off" keep only their first word.
func parseRow(line string) (VM, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return VM{}, false
	}
	return VM{Name: fields[1], State: fields[2]}, true
}

// splitLines splits on "\n" and drops a trailing "\r" from each line. A
// trailing newline does not produce a final empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
