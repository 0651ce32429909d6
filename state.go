package dyndns

import "net/netip"

// State is the memory a Client keeps between cycles: the last address it reconciled.
// The zero value has no address yet.
//
// Only [Client.RunDDNS] changes a State, and only after every domain has been attempted.
// A State must not be shared between clients.
type State struct {
	last netip.Addr
}

// Last returns the last committed address and whether there is one.
func (s *State) Last() (netip.Addr, bool) {
	return s.last, s.last.IsValid()
}

func (s *State) changed(addr netip.Addr) bool {
	return s.last != addr
}

func (s *State) commit(addr netip.Addr) {
	s.last = addr
}
