package dyndns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/cloudflare/cloudflare-go"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the time between two cycles of Run when no schedule is configured.
const DefaultInterval = 5 * time.Minute

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// New creates a client that manages the address records of domains.
//
// Domains are normalized with NormalizeDomain and deduplicated;
// updates are attempted in the order given.
// By default the public address is discovered with a WebResolver for DefaultDiscoveryURL,
// and Run checks it every DefaultInterval.
func New(domains []string, options ...Option) (*Client, error) {
	ds, err := normalizeDomains(domains)
	if err != nil {
		return nil, fmt.Errorf("dyndns.New: %w", err)
	}
	c := &Client{
		domains:     ds,
		ttl:         DefaultTTL,
		concurrency: 1,
		state:       new(State),
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("dyndns.New: option %d returned an error: %s", i, err)
		}
	}

	if c.resolver == nil {
		if c.resolver, err = NewWebResolver(DefaultDiscoveryURL); err != nil {
			return nil, fmt.Errorf("dyndns.New: %w", err)
		}
	}
	if c.updater == nil {
		if c.zones == nil {
			return nil, errors.New("dyndns.New: no DNS provider was registered and there is no default option - use dyndns.UsingRoute53 or similar")
		}
		c.updater = NewRecordUpdater(c.zones, c.ttl, nil)
	}
	if c.schedule == nil {
		c.schedule = cron.Every(DefaultInterval)
	}

	// this lets us propagate the logger and http client to dependencies no matter the order the options were given in
	c.propagate()
	return c, nil
}

// Option configures a Client.
type Option func(*Client) error

// UsingRoute53 manages records in Amazon Route 53 hosted zones.
// See NewRoute53 for how credentials are loaded.
func UsingRoute53(ctx context.Context, optFns ...func(*config.LoadOptions) error) Option {
	return func(c *Client) (err error) {
		if c.zones, err = NewRoute53(ctx, optFns...); err != nil {
			return fmt.Errorf("dyndns.UsingRoute53: error creating route53 DNS provider: %w", err)
		}
		return nil
	}
}

// UsingCloudflare manages records in Cloudflare zones.
func UsingCloudflare(token string, opts ...cloudflare.Option) Option {
	return func(c *Client) (err error) {
		if c.zones, err = NewCloudflare(token, opts...); err != nil {
			return fmt.Errorf("dyndns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingZoneAPI manages records through a custom zone transport.
func UsingZoneAPI(api ZoneAPI) Option {
	return func(c *Client) error {
		if api == nil {
			return errors.New("zone API cannot be nil")
		}
		c.zones = api
		return nil
	}
}

// UsingUpdater replaces the record updater entirely.
// When set, zone options are only used by Preflight.
func UsingUpdater(u Updater) Option {
	return func(c *Client) error {
		if u == nil {
			return errors.New("updater cannot be nil")
		}
		c.updater = u
		return nil
	}
}

// UsingResolver sets how the public address is discovered.
// A nil resolver restores the default.
func UsingResolver(resolver Resolver) Option {
	return func(c *Client) error {
		c.resolver = resolver
		return nil
	}
}

// UsingWebResolver discovers the public address with a WebResolver for serviceURL.
func UsingWebResolver(serviceURL string) Option {
	return func(c *Client) (err error) {
		c.resolver, err = NewWebResolver(serviceURL)
		return err
	}
}

// WithTTL sets the TTL in seconds of upserted records.
func WithTTL(ttl int64) Option {
	return func(c *Client) error {
		if ttl < 1 {
			return fmt.Errorf("invalid TTL %d", ttl)
		}
		c.ttl = ttl
		return nil
	}
}

// WithInterval makes Run start a cycle every interval.
func WithInterval(interval time.Duration) Option {
	return func(c *Client) error {
		if interval < time.Second {
			return fmt.Errorf("interval %s is shorter than one second", interval)
		}
		c.schedule = cron.Every(interval)
		return nil
	}
}

// WithSchedule makes Run start cycles on a cron schedule instead of a fixed interval.
func WithSchedule(schedule cron.Schedule) Option {
	return func(c *Client) error {
		if schedule == nil {
			return errors.New("schedule cannot be nil")
		}
		c.schedule = schedule
		return nil
	}
}

// WithConcurrency sets how many domains are updated at the same time within a cycle.
// The default of 1 updates them one after another in configured order.
func WithConcurrency(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1; got %d", n)
		}
		c.concurrency = n
		return nil
	}
}

// WithState makes the client start from s instead of an empty State.
func WithState(s *State) Option {
	return func(c *Client) error {
		if s == nil {
			return errors.New("state cannot be nil")
		}
		c.state = s
		return nil
	}
}

// WithLogger sets the logger for the client and the resolvers and providers it created.
// Log messages are discarded by default.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// UsingHTTPClient sets the http client used by the web resolver and by the Route53 and Cloudflare providers.
// Custom resolvers and zone APIs receive it if they have a SetHTTPClient(*http.Client) method.
func UsingHTTPClient(httpclient *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = httpclient
		return nil
	}
}

func (c *Client) propagate() {
	if c.logger == nil {
		c.logger = discard
	}
	type setLogger interface {
		SetLogger(logrus.FieldLogger)
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	for _, dep := range []any{c.resolver, c.updater, c.zones} {
		if l, ok := dep.(setLogger); ok {
			l.SetLogger(c.logger)
		}
		if h, ok := dep.(setHTTPClient); ok && c.httpClient != nil {
			h.SetHTTPClient(c.httpClient)
		}
	}
}

// Client reconciles the address records of a fixed set of domains with the public address.
type Client struct {
	resolver    Resolver
	updater     Updater
	zones       ZoneAPI
	state       *State
	logger      logrus.FieldLogger
	httpClient  *http.Client
	schedule    cron.Schedule
	domains     []string
	ttl         int64
	concurrency int
}

// Domains returns the normalized domains managed by c.
func (c *Client) Domains() []string {
	return append([]string(nil), c.domains...)
}

// State returns the state c reads and commits to.
func (c *Client) State() *State {
	return c.state
}

// RunDDNS runs one reconciliation cycle.
//
// It resolves the public address once. When that fails, or when the address equals
// the last committed one, no updates are made. Otherwise every domain is updated
// independently, and once all have been attempted the address is committed even if
// some of them failed; failed domains are not retried until the address changes again.
// If ctx ends before the updates finish, the address is not committed.
//
// Calls must not overlap.
func (c *Client) RunDDNS(ctx context.Context) Cycle {
	prev, _ := c.state.Last()
	cycle := Cycle{Previous: prev}

	addr, err := c.resolver.Resolve(ctx)
	if err != nil {
		var de *DiscoveryError
		if !errors.As(err, &de) {
			err = &DiscoveryError{Err: err}
		}
		c.logger.Errorf("Failed to resolve public IP: %s", err)
		cycle.Outcome, cycle.ResolveErr = ResolveFailed, err
		return cycle
	}
	cycle.Address = addr
	c.logger.Infof("Public IP is %s.", addr)

	if !c.state.changed(addr) {
		cycle.Outcome = Unchanged
		return cycle
	}
	if prev.IsValid() {
		c.logger.Debugf("public IP changed from %s to %s", prev, addr)
	}

	cycle.Results = c.updateAll(ctx, addr)
	if ctx.Err() != nil {
		c.logger.Warnf("cycle interrupted, not recording %s: %s", addr, ctx.Err())
		cycle.Outcome = Interrupted
		return cycle
	}
	c.state.commit(addr)
	cycle.Outcome = Updated
	return cycle
}

func (c *Client) updateAll(ctx context.Context, addr netip.Addr) []DomainResult {
	results := make([]DomainResult, len(c.domains))
	// errgroup.WithContext is not used: one failing domain must not cancel the others
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, domain := range c.domains {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = DomainResult{Domain: domain, Err: err}
				c.logger.Debugf("skipping %s: %s", domain, err)
				return nil
			}
			err := c.updater.Update(ctx, domain, addr)
			results[i] = DomainResult{Domain: domain, Err: err}
			if err != nil {
				c.logger.Errorf("Failed to update `%s` to %s: %s", domain, addr, err)
			} else {
				c.logger.Infof("Updated `%s` to %s.", domain, addr)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Run runs a cycle immediately and then on c's schedule until ctx is done.
// A cycle that is still running when the next one is due causes that one to be skipped.
// Run returns after the in-flight cycle, if any, has returned.
func (c *Client) Run(ctx context.Context) error {
	c.RunDDNS(ctx)

	logger := cron.PrintfLogger(c.logger)
	sched := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	sched.Schedule(c.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		c.RunDDNS(ctx)
	}))
	sched.Start()

	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

// Preflight lists the provider's zones once, logs them,
// and warns about domains that no zone owns.
// It returns an error only when the provider rejects the credentials (see IsAuthError);
// other listing failures are logged, since the cycles retry on their own.
// Clients built with UsingUpdater and no zone option skip the check.
func (c *Client) Preflight(ctx context.Context) error {
	if c.zones == nil {
		return nil
	}
	zones, err := c.zones.ListZones(ctx)
	if err != nil {
		err = providerError("list zones", "", err)
		if IsAuthError(err) {
			return err
		}
		c.logger.Warnf("Unable to list zones, continuing anyway: %s", err)
		return nil
	}
	for _, z := range zones {
		c.logger.Infof("Found zone `%s` (%s).", z.Name, z.ID)
	}
	for _, d := range c.domains {
		z, err := MatchZone(d, zones)
		if err != nil {
			c.logger.Warnf("No zone owns `%s`; updates will fail until one is created.", d)
			continue
		}
		c.logger.Debugf("%s belongs to zone %s", d, z.Name)
	}
	return nil
}
