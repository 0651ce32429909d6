package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Travis-Britz/dyndns"
	"github.com/Travis-Britz/dyndns/internal/config"
	"github.com/Travis-Britz/dyndns/internal/logging"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	// a missing .env is not an error
	_ = godotenv.Load()

	cmd := newRootCommand(func(ctx context.Context, cfg *config.Config, once bool) error {
		return run(ctx, cfg, once, os.Stdout)
	})
	cmd.AddCommand(newSetupCommand(os.Stdin, os.Stdout))
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// flags holds the command line values. Only flags that were set override the loaded config.
type flags struct {
	configFile  string
	provider    string
	interval    time.Duration
	schedule    string
	ttl         int64
	ipURL       string
	ip          string
	iface       string
	concurrency int
	keyFile     string
	once        bool
	verbose     bool
}

// action is what the root command does with a validated config.
type action func(ctx context.Context, cfg *config.Config, once bool) error

func newRootCommand(do action) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "dyndns [flags] DOMAIN...",
		Short: "Keep DNS address records pointed at this host's public IP",
		Long: `dyndns checks the public IP address of this host on a schedule and upserts
an A or AAAA record for each DOMAIN in the hosted zone that owns it whenever the address changes.

Domains may also be given in the config file or with DDNS_DOMAINS.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return do(ctx, cfg, f.once)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configFile, "config", "c", "", "path to a YAML config file (default $DDNS_CONFIG)")
	fl.StringVar(&f.provider, "provider", config.ProviderRoute53, "DNS provider: route53 or cloudflare")
	fl.DurationVarP(&f.interval, "interval", "i", dyndns.DefaultInterval, "time between IP checks")
	fl.StringVar(&f.schedule, "schedule", "", "cron expression for IP checks; overrides --interval")
	fl.Int64Var(&f.ttl, "ttl", dyndns.DefaultTTL, "TTL in seconds of the upserted records")
	fl.StringVar(&f.ipURL, "ip-url", dyndns.DefaultDiscoveryURL, "URL of a service that responds with the caller's IP")
	fl.StringVar(&f.ip, "ip", "", "use this IP instead of discovering one")
	fl.StringVar(&f.iface, "interface", "", "use the public IP assigned to this network interface")
	fl.IntVar(&f.concurrency, "concurrency", 1, "number of domains updated at the same time")
	fl.StringVarP(&f.keyFile, "key-file", "k", "", "path to the Cloudflare API token file (default $HOME/.cloudflare)")
	fl.BoolVar(&f.once, "once", false, "run a single cycle and exit")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable verbose logging")
	return cmd
}

// loadConfig layers flags that were explicitly set and then positional domains over the loaded config.
func loadConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	set := cmd.Flags().Changed
	if set("provider") {
		cfg.Provider = f.provider
	}
	if set("interval") {
		cfg.Interval = f.interval
	}
	if set("schedule") {
		cfg.Schedule = f.schedule
	}
	if set("ttl") {
		cfg.TTL = f.ttl
	}
	if set("ip-url") {
		cfg.IPURL = f.ipURL
	}
	if set("ip") {
		cfg.IP = f.ip
	}
	if set("interface") {
		cfg.Interface = f.iface
	}
	if set("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if set("key-file") {
		cfg.KeyFile = f.keyFile
	}
	if set("verbose") {
		cfg.Verbose = f.verbose
	}
	if len(args) > 0 {
		cfg.Domains = args
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, once bool, out io.Writer) error {
	logger := logging.New(out, cfg.Verbose)
	logger.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"domains":  cfg.Domains,
		"interval": cfg.Interval,
		"schedule": cfg.Schedule,
	}).Debug("config is valid")

	options, err := clientOptions(ctx, cfg)
	if err != nil {
		return err
	}
	options = append(options, dyndns.WithLogger(logger))

	client, err := dyndns.New(cfg.Domains, options...)
	if err != nil {
		return fmt.Errorf("error creating dyndns client: %w", err)
	}
	if err := client.Preflight(ctx); err != nil {
		return fmt.Errorf("DNS provider rejected the credentials: %w", err)
	}

	if once {
		cycle := client.RunDDNS(ctx)
		return cycle.Err()
	}
	return client.Run(ctx)
}

func clientOptions(ctx context.Context, cfg *config.Config) ([]dyndns.Option, error) {
	options := []dyndns.Option{
		dyndns.WithTTL(cfg.TTL),
		dyndns.WithConcurrency(cfg.Concurrency),
	}

	switch cfg.Provider {
	case config.ProviderCloudflare:
		token, err := cloudflareToken(cfg)
		if err != nil {
			return nil, err
		}
		options = append(options, dyndns.UsingCloudflare(token))
	default:
		options = append(options, dyndns.UsingRoute53(ctx))
	}

	switch {
	case cfg.IP != "":
		r, err := dyndns.FromString(cfg.IP)
		if err != nil {
			return nil, fmt.Errorf("invalid ip: %w", err)
		}
		options = append(options, dyndns.UsingResolver(r))
	case cfg.Interface != "":
		options = append(options, dyndns.UsingResolver(dyndns.InterfaceResolver(cfg.Interface)))
	default:
		options = append(options, dyndns.UsingWebResolver(cfg.IPURL))
	}

	if cfg.Schedule != "" {
		schedule, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule: %w", err)
		}
		options = append(options, dyndns.WithSchedule(schedule))
	} else {
		options = append(options, dyndns.WithInterval(cfg.Interval))
	}
	return options, nil
}

// cloudflareToken prefers the environment over the key file.
func cloudflareToken(cfg *config.Config) (string, error) {
	if cfg.CloudflareToken != "" {
		return cfg.CloudflareToken, nil
	}
	if err := config.VerifyPermissions(cfg.KeyFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("no Cloudflare token: set CLOUDFLARE_API_TOKEN or run \"dyndns setup\" to create %s", cfg.KeyFile)
		}
		return "", err
	}
	key, err := config.ReadKey(cfg.KeyFile)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	return key, nil
}
