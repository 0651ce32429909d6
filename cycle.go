package dyndns

import (
	"errors"
	"fmt"
	"net/netip"
)

// Outcome is how a reconciliation cycle ended.
type Outcome int

const (
	// ResolveFailed means the public address could not be determined; nothing was updated.
	ResolveFailed Outcome = iota
	// Unchanged means the address matched the last committed one; nothing was updated.
	Unchanged
	// Updated means every domain was attempted and the new address was committed.
	Updated
	// Interrupted means the context ended while updating; the address was not committed.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case ResolveFailed:
		return "resolve failed"
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// DomainResult is the result of updating one domain.
type DomainResult struct {
	Domain string
	Err    error
}

// Cycle reports what a single call to RunDDNS did.
type Cycle struct {
	Outcome Outcome
	// Address is the resolved address; invalid when the outcome is ResolveFailed.
	Address netip.Addr
	// Previous is the address committed before this cycle; invalid on the first change.
	Previous   netip.Addr
	ResolveErr error
	// Results holds one entry per configured domain, in configured order, when updates were attempted.
	Results []DomainResult
}

// Err joins the resolve error and every per-domain error.
// It is nil when nothing failed.
func (c Cycle) Err() error {
	errs := []error{c.ResolveErr}
	for _, r := range c.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Domain, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the domains whose update failed.
func (c Cycle) Failed() []string {
	var failed []string
	for _, r := range c.Results {
		if r.Err != nil {
			failed = append(failed, r.Domain)
		}
	}
	return failed
}
