package libvirt

import (
	"context"
	"time"
)

// HostStatus is the result of one probe.
type HostStatus struct {
	Version    string       `json:"version" yaml:"version"`
	Network    *NetworkInfo `json:"network,omitempty" yaml:"network,omitempty"`
	NetworkErr string       `json:"networkError,omitempty" yaml:"networkError,omitempty"`
}

// Prober opens a short-lived connection per probe, so a restarted daemon
// never leaves the server holding a dead connection.
type Prober struct {
	Socket  string
	Timeout time.Duration
}

// NewProber creates a Prober for the given socket.
func NewProber(socket string, timeout time.Duration) *Prober {
	return &Prober{Socket: socket, Timeout: timeout}
}

// Probe connects, reads the library version and, when network is not
// empty, the network status. A connection failure is returned as an error;
// a missing or unreadable network is reported in NetworkErr.
func (p *Prober) Probe(ctx context.Context, network string) (*HostStatus, error) {
	c, err := ConnectWithContext(ctx, p.Socket, p.Timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	version, err := c.Version()
	if err != nil {
		return nil, err
	}

	hs := &HostStatus{Version: version}
	if network == "" {
		return hs, nil
	}

	info, err := c.NetworkStatus(network)
	if err != nil {
		hs.NetworkErr = err.Error()
		return hs, nil
	}
	hs.Network = info

	return hs, nil
}
