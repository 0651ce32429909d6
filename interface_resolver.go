package dyndns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the public address assigned to a network interface.
// It is meant for hosts that hold their public IP directly, such as a router or a VPS.
//
// Loopback, link-local and private addresses are skipped.
// An IPv4 address is preferred over IPv6 when the interface has both.
func InterfaceResolver(iface string) Resolver {
	return interfaceResolver{name: iface, addrs: interfaceAddrs}
}

type interfaceResolver struct {
	name  string
	addrs func(name string) ([]net.Addr, error)
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("error getting interface %s by name: %w", name, err)
	}
	a, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("error looking up addresses for interface %s: %w", name, err)
	}
	return a, nil
}

func (r interfaceResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	source := "interface " + r.name
	adds, err := r.addrs(r.name)
	if err != nil {
		return netip.Addr{}, &DiscoveryError{Source: source, Err: err}
	}
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	var v6 netip.Addr
	var errs []error
	for _, addr := range adds {
		p, err := netip.ParsePrefix(addr.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing local ip %s: %w", addr.String(), err))
			continue
		}
		ip := p.Addr().Unmap()
		if !ip.IsGlobalUnicast() || ip.IsPrivate() {
			continue
		}
		if ip.Is4() {
			return ip, nil
		}
		if !v6.IsValid() {
			v6 = ip
		}
	}
	if v6.IsValid() {
		return v6, nil
	}
	errs = append(errs, errors.New("no public address found"))
	return netip.Addr{}, &DiscoveryError{Source: source, Err: errors.Join(errs...)}
}
