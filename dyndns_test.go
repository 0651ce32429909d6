package dyndns_test

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/Travis-Britz/dyndns"
	"github.com/Travis-Britz/dyndns/internal/mocks"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	addr1 = netip.MustParseAddr("1.2.3.4")
	addr2 = netip.MustParseAddr("5.6.7.8")
)

// sequence returns a resolver that yields addrs in order, one per call.
func sequence(t *testing.T, results ...any) dyndns.Resolver {
	t.Helper()
	var i int
	return dyndns.ResolverFunc(func(context.Context) (netip.Addr, error) {
		if i >= len(results) {
			t.Fatalf("resolver called %d times; only %d results were prepared", i+1, len(results))
		}
		r := results[i]
		i++
		switch v := r.(type) {
		case netip.Addr:
			return v, nil
		case error:
			return netip.Addr{}, v
		}
		panic("unexpected result type")
	})
}

func newClient(t *testing.T, domains []string, resolver dyndns.Resolver, updater dyndns.Updater, opts ...dyndns.Option) *dyndns.Client {
	t.Helper()
	opts = append([]dyndns.Option{dyndns.UsingResolver(resolver), dyndns.UsingUpdater(updater)}, opts...)
	c, err := dyndns.New(domains, opts...)
	require.NoError(t, err)
	return c
}

func TestFirstCycleUpdatesEveryDomainOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	updater := mocks.NewMockUpdater(ctrl)
	gomock.InOrder(
		updater.EXPECT().Update(gomock.Any(), "a.com", addr1).Return(nil),
		updater.EXPECT().Update(gomock.Any(), "b.com", addr1).Return(nil),
	)

	c := newClient(t, []string{"a.com", "b.com"}, sequence(t, addr1, addr1), updater)

	cycle := c.RunDDNS(context.Background())
	assert.Equal(t, dyndns.Updated, cycle.Outcome)
	assert.Equal(t, addr1, cycle.Address)
	assert.False(t, cycle.Previous.IsValid())
	assert.NoError(t, cycle.Err())
	require.Len(t, cycle.Results, 2)
	assert.Equal(t, "a.com", cycle.Results[0].Domain)
	assert.Equal(t, "b.com", cycle.Results[1].Domain)

	last, ok := c.State().Last()
	assert.True(t, ok)
	assert.Equal(t, addr1, last)

	// same address: no further updater calls are expected by the mock
	cycle = c.RunDDNS(context.Background())
	assert.Equal(t, dyndns.Unchanged, cycle.Outcome)
	assert.Empty(t, cycle.Results)
}

func TestResolveFailureLeavesStateUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	updater := mocks.NewMockUpdater(ctrl)
	updater.EXPECT().Update(gomock.Any(), "a.com", addr1).Return(nil).Times(1)

	c := newClient(t, []string{"a.com"}, sequence(t, addr1, errors.New("connection refused")), updater)

	c.RunDDNS(context.Background())
	cycle := c.RunDDNS(context.Background())

	assert.Equal(t, dyndns.ResolveFailed, cycle.Outcome)
	assert.False(t, cycle.Address.IsValid())
	assert.Empty(t, cycle.Results)
	var de *dyndns.DiscoveryError
	assert.ErrorAs(t, cycle.ResolveErr, &de)

	last, ok := c.State().Last()
	assert.True(t, ok)
	assert.Equal(t, addr1, last)
}

func TestResolveFailureBeforeFirstSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	updater := mocks.NewMockUpdater(ctrl)

	failure := &dyndns.DiscoveryError{Source: "test", Err: errors.New("timeout")}
	c := newClient(t, []string{"a.com"}, sequence(t, failure), updater)

	cycle := c.RunDDNS(context.Background())
	assert.Equal(t, dyndns.ResolveFailed, cycle.Outcome)
	assert.Same(t, failure, cycle.ResolveErr)

	_, ok := c.State().Last()
	assert.False(t, ok)
}

func TestPartialFailureStillCommits(t *testing.T) {
	ctrl := gomock.NewController(t)
	updater := mocks.NewMockUpdater(ctrl)
	providerErr := &dyndns.ProviderError{Op: "upsert", Domain: "a.com", Err: errors.New("rate limited")}
	gomock.InOrder(
		updater.EXPECT().Update(gomock.Any(), "a.com", addr1).Return(providerErr),
		updater.EXPECT().Update(gomock.Any(), "b.com", addr1).Return(nil),
	)

	c := newClient(t, []string{"a.com", "b.com"}, sequence(t, addr1, addr1), updater)

	cycle := c.RunDDNS(context.Background())
	assert.Equal(t, dyndns.Updated, cycle.Outcome)
	assert.Equal(t, []string{"a.com"}, cycle.Failed())
	assert.ErrorIs(t, cycle.Err(), providerErr)

	last, _ := c.State().Last()
	assert.Equal(t, addr1, last)

	// a.com is not retried while the address stays the same
	cycle = c.RunDDNS(context.Background())
	assert.Equal(t, dyndns.Unchanged, cycle.Outcome)
}

func TestChangeAndChangeBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	updater := mocks.NewMockUpdater(ctrl)
	gomock.InOrder(
		updater.EXPECT().Update(gomock.Any(), "a.com", addr1).Return(nil),
		updater.EXPECT().Update(gomock.Any(), "b.com", addr1).Return(nil),
		updater.EXPECT().Update(gomock.Any(), "a.com", addr2).Return(nil),
		updater.EXPECT().Update(gomock.Any(), "b.com", addr2).Return(nil),
		updater.EXPECT().Update(gomock.Any(), "a.com", addr1).Return(nil),
		updater.EXPECT().Update(gomock.Any(), "b.com", addr1).Return(nil),
	)

	c := newClient(t, []string{"a.com", "b.com"}, sequence(t, addr1, addr2, addr1), updater)

	want := []struct {
		outcome  dyndns.Outcome
		previous netip.Addr
	}{
		{dyndns.Updated, netip.Addr{}},
		{dyndns.Updated, addr1},
		{dyndns.Updated, addr2},
	}
	for i, w := range want {
		cycle := c.RunDDNS(context.Background())
		assert.Equal(t, w.outcome, cycle.Outcome, "cycle %d", i)
		assert.Equal(t, w.previous, cycle.Previous, "cycle %d", i)
	}
}

func TestInterruptedCycleDoesNotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls []string
	updater := dyndns.UpdaterFunc(func(ctx context.Context, domain string, addr netip.Addr) error {
		calls = append(calls, domain)
		cancel()
		return ctx.Err()
	})
	c := newClient(t, []string{"a.com", "b.com", "c.com"}, sequence(t, addr1), updater)

	cycle := c.RunDDNS(ctx)
	assert.Equal(t, dyndns.Interrupted, cycle.Outcome)
	assert.Equal(t, []string{"a.com"}, calls, "domains after the cancellation are not attempted")
	require.Len(t, cycle.Results, 3)
	for _, r := range cycle.Results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}

	_, ok := c.State().Last()
	assert.False(t, ok)
}

func TestConcurrentUpdatesShareABarrier(t *testing.T) {
	var (
		mu      sync.Mutex
		started int
		release = make(chan struct{})
	)
	updater := dyndns.UpdaterFunc(func(ctx context.Context, domain string, addr netip.Addr) error {
		mu.Lock()
		started++
		if started == 3 {
			close(release)
		}
		mu.Unlock()
		select {
		case <-release:
		case <-time.After(time.Second):
			return errors.New("updates did not run concurrently")
		}
		if domain == "b.com" {
			return errors.New("boom")
		}
		return nil
	})
	c := newClient(t, []string{"a.com", "b.com", "c.com"}, sequence(t, addr1), updater, dyndns.WithConcurrency(3))

	cycle := c.RunDDNS(context.Background())
	assert.Equal(t, dyndns.Updated, cycle.Outcome)
	require.Len(t, cycle.Results, 3)
	for i, d := range []string{"a.com", "b.com", "c.com"} {
		assert.Equal(t, d, cycle.Results[i].Domain)
	}
	assert.Equal(t, []string{"b.com"}, cycle.Failed())
}

func TestLogLines(t *testing.T) {
	logger, hook := test.NewNullLogger()
	updater := dyndns.UpdaterFunc(func(ctx context.Context, domain string, addr netip.Addr) error {
		if domain == "b.com" {
			return errors.New("denied")
		}
		return nil
	})
	c := newClient(t, []string{"a.com", "b.com"}, sequence(t, addr1, errors.New("no route")), updater, dyndns.WithLogger(logger))

	c.RunDDNS(context.Background())
	c.RunDDNS(context.Background())

	var got []string
	for _, e := range hook.AllEntries() {
		if e.Level <= logrus.InfoLevel {
			got = append(got, e.Message)
		}
	}
	assert.Equal(t, []string{
		"Public IP is 1.2.3.4.",
		"Updated `a.com` to 1.2.3.4.",
		"Failed to update `b.com` to 1.2.3.4: denied",
		"Failed to resolve public IP: discovering public IP: no route",
	}, got)
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	updater := mocks.NewMockUpdater(ctrl)

	t.Run("requires a provider", func(t *testing.T) {
		_, err := dyndns.New([]string{"a.example.com"})
		assert.Error(t, err)
	})
	t.Run("requires domains", func(t *testing.T) {
		_, err := dyndns.New(nil, dyndns.UsingUpdater(updater))
		assert.Error(t, err)
	})
	t.Run("rejects public suffixes", func(t *testing.T) {
		_, err := dyndns.New([]string{"co.uk"}, dyndns.UsingUpdater(updater))
		assert.Error(t, err)
	})
	t.Run("normalizes and deduplicates", func(t *testing.T) {
		c, err := dyndns.New([]string{"B.example.com.", "a.example.com", "b.example.com"}, dyndns.UsingUpdater(updater))
		require.NoError(t, err)
		assert.Equal(t, []string{"b.example.com", "a.example.com"}, c.Domains())
	})
	t.Run("rejects bad options", func(t *testing.T) {
		for _, opt := range []dyndns.Option{
			dyndns.WithTTL(0),
			dyndns.WithConcurrency(0),
			dyndns.WithInterval(time.Millisecond),
			dyndns.WithState(nil),
			dyndns.UsingWebResolver("ftp://example.com"),
			dyndns.UsingCloudflare(""),
		} {
			_, err := dyndns.New([]string{"a.example.com"}, dyndns.UsingUpdater(updater), opt)
			assert.Error(t, err)
		}
	})
}

func TestRunStartsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolved := make(chan struct{}, 1)
	resolver := dyndns.ResolverFunc(func(context.Context) (netip.Addr, error) {
		resolved <- struct{}{}
		return addr1, nil
	})
	var updates int
	updater := dyndns.UpdaterFunc(func(context.Context, string, netip.Addr) error {
		updates++
		return nil
	})
	c := newClient(t, []string{"a.com"}, resolver, updater, dyndns.WithInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-resolved:
	case <-time.After(time.Second):
		t.Fatal("expected the first cycle to start immediately")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, updates)
}

func TestPreflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	zones := mocks.NewMockZoneAPI(ctrl)
	logger, hook := test.NewNullLogger()

	c, err := dyndns.New([]string{"home.example.com", "other.org"},
		dyndns.UsingZoneAPI(zones),
		dyndns.UsingResolver(sequence(t)),
		dyndns.WithLogger(logger),
	)
	require.NoError(t, err)

	zones.EXPECT().ListZones(gomock.Any()).Return([]dyndns.Zone{{ID: "Z1", Name: "example.com"}}, nil)
	require.NoError(t, c.Preflight(context.Background()))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "No zone owns `other.org`; updates will fail until one is created." {
			warned = true
		}
	}
	assert.True(t, warned)

	zones.EXPECT().ListZones(gomock.Any()).Return(nil, errors.New("connection reset by peer"))
	assert.NoError(t, c.Preflight(context.Background()), "transient failures are not fatal")
	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)

	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	zones.EXPECT().ListZones(gomock.Any()).Return(nil, denied)
	err = c.Preflight(context.Background())
	var pe *dyndns.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "AccessDenied", pe.Code)
}

func TestIsAuthError(t *testing.T) {
	for code, want := range map[string]bool{
		"AccessDenied":         true,
		"InvalidClientTokenId": true,
		"Throttling":           false,
		"NoSuchHostedZone":     false,
	} {
		err := fmt.Errorf("listing: %w", &smithy.GenericAPIError{Code: code})
		assert.Equal(t, want, dyndns.IsAuthError(err), code)
	}
	assert.False(t, dyndns.IsAuthError(errors.New("dial tcp: i/o timeout")))
	assert.False(t, dyndns.IsAuthError(nil))
}
