package dyndns

//go:generate go tool mockgen -destination=internal/mocks/mock_dyndns.go -package=mocks . Resolver,Updater,ZoneAPI

import (
	"context"
	"net/netip"
)

// Resolver discovers the current public address.
// Implementations make a single attempt; retrying is left to the caller.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// Updater points the address record for domain at addr.
// Applying the same domain and addr twice must leave the provider in the same state.
type Updater interface {
	Update(ctx context.Context, domain string, addr netip.Addr) error
}

// ZoneAPI is the provider transport used by [RecordUpdater].
type ZoneAPI interface {
	// ListZones returns every hosted zone visible to the account.
	ListZones(ctx context.Context) ([]Zone, error)
	// UpsertRecord creates rec in zone or replaces the existing record with the same name and type.
	UpsertRecord(ctx context.Context, zone Zone, rec Record) error
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) {
	return f(ctx)
}

// UpdaterFunc adapts a function to the Updater interface.
type UpdaterFunc func(ctx context.Context, domain string, addr netip.Addr) error

func (f UpdaterFunc) Update(ctx context.Context, domain string, addr netip.Addr) error {
	return f(ctx, domain, addr)
}
