// Package libvirt provides a read-only view of the local libvirt daemon.
//
// kvm-manager never changes host state through libvirt; every change goes
// through the management script. This package only answers questions the
// script's text output cannot: whether the daemon is reachable, which
// version it runs, and how the NAT network is defined.
//
//	client, err := libvirt.Connect("", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	info, err := client.NetworkStatus("nat1")
//
// Prober wraps the connect, query and close cycle for callers that probe
// periodically, such as the readiness endpoint.
package libvirt
