package dyndns

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseAddress parses s as a public address.
// Surrounding whitespace is ignored and IPv4-mapped IPv6 addresses are returned as IPv4.
func ParseAddress(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("unable to parse IP: %w", err)
	}
	addr = addr.Unmap().WithZone("")
	if addr.IsUnspecified() || addr.IsLoopback() {
		return netip.Addr{}, fmt.Errorf("%s is not a usable public address", addr)
	}
	return addr, nil
}

func recordType(a netip.Addr) string {
	if a.Is4() {
		return "A"
	}
	if a.Is6() {
		return "AAAA"
	}
	panic("unknown ip configuration")
}
