package libvirt

import (
	"errors"
	"fmt"

	"github.com/digitalocean/go-libvirt"
	"libvirt.org/go/libvirtxml"
)

// ErrNetworkNotFound is returned when the named network is not defined.
var ErrNetworkNotFound = errors.New("network not found")

// NetworkInfo is the read-only view of a libvirt network shown on the
// network page.
type NetworkInfo struct {
	Name        string           `json:"name" yaml:"name"`
	UUID        string           `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Active      bool             `json:"active" yaml:"active"`
	Autostart   bool             `json:"autostart" yaml:"autostart"`
	Bridge      string           `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	ForwardMode string           `json:"forwardMode" yaml:"forwardMode"`
	Addresses   []NetworkAddress `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

// NetworkAddress is one <ip> element of a network definition.
type NetworkAddress struct {
	Address    string      `json:"address" yaml:"address"`
	Netmask    string      `json:"netmask,omitempty" yaml:"netmask,omitempty"`
	Prefix     uint        `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	DHCPRanges []DHCPRange `json:"dhcpRanges,omitempty" yaml:"dhcpRanges,omitempty"`
}

// DHCPRange is a DHCP lease range.
type DHCPRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// networkAPI is the subset of go-libvirt used to inspect networks.
type networkAPI interface {
	NetworkLookupByName(Name string) (libvirt.Network, error)
	NetworkIsActive(Net libvirt.Network) (int32, error)
	NetworkGetAutostart(Net libvirt.Network) (int32, error)
	NetworkGetXMLDesc(Net libvirt.Network, Flags uint32) (string, error)
}

func networkStatusWithDeps(api networkAPI, name string) (*NetworkInfo, error) {
	net, err := api.NetworkLookupByName(name)
	if err != nil {
		if isNoNetwork(err) {
			return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
		}
		return nil, fmt.Errorf("failed to lookup network %s: %w", name, err)
	}

	active, err := api.NetworkIsActive(net)
	if err != nil {
		return nil, fmt.Errorf("failed to check network state: %w", err)
	}

	autostart, err := api.NetworkGetAutostart(net)
	if err != nil {
		return nil, fmt.Errorf("failed to check autostart: %w", err)
	}

	xmlDesc, err := api.NetworkGetXMLDesc(net, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get network XML: %w", err)
	}

	info, err := parseNetworkXML(xmlDesc)
	if err != nil {
		return nil, err
	}
	info.Active = active == 1
	info.Autostart = autostart == 1

	return info, nil
}

func isNoNetwork(err error) bool {
	var lerr libvirt.Error
	return errors.As(err, &lerr) && lerr.Code == uint32(libvirt.ErrNoNetwork)
}

// parseNetworkXML extracts the fields of NetworkInfo from a network
// definition. Active and Autostart are not part of the XML.
func parseNetworkXML(doc string) (*NetworkInfo, error) {
	var n libvirtxml.Network
	if err := n.Unmarshal(doc); err != nil {
		return nil, fmt.Errorf("failed to parse network XML: %w", err)
	}

	info := &NetworkInfo{
		Name:        n.Name,
		UUID:        n.UUID,
		ForwardMode: "isolated",
	}
	if n.Bridge != nil {
		info.Bridge = n.Bridge.Name
	}
	if n.Forward != nil && n.Forward.Mode != "" {
		info.ForwardMode = n.Forward.Mode
	}

	for _, ip := range n.IPs {
		addr := NetworkAddress{
			Address: ip.Address,
			Netmask: ip.Netmask,
			Prefix:  ip.Prefix,
		}
		if ip.DHCP != nil {
			for _, r := range ip.DHCP.Ranges {
				addr.DHCPRanges = append(addr.DHCPRanges, DHCPRange{Start: r.Start, End: r.End})
			}
		}
		info.Addresses = append(info.Addresses, addr)
	}

	return info, nil
}
