package dyndns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/sirupsen/logrus"
)

// route53 is a global service, but the SDK still needs a region to resolve its endpoint.
const route53Region = "us-east-1"

type route53API interface {
	route53.ListHostedZonesAPIClient
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// NewRoute53 creates a ZoneAPI for Amazon Route 53.
//
// Credentials come from the SDK's default chain (environment, shared config, instance role).
// They are retrieved once here so that a missing or broken configuration fails at startup
// rather than on the first update.
func NewRoute53(ctx context.Context, optFns ...func(*config.LoadOptions) error) (*Route53, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = route53Region
	}
	if cfg.Credentials == nil {
		return nil, errors.New("no AWS credentials provider is configured")
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("error retrieving AWS credentials: %w", err)
	}
	r := newRoute53(route53.NewFromConfig(cfg))
	r.cfg = &cfg
	return r, nil
}

func newRoute53(api route53API) *Route53 {
	return &Route53{
		api:     api,
		logger:  discard,
		comment: "managed by dyndns",
	}
}

// Route53 implements dyndns.ZoneAPI.
//
// It should be constructed using NewRoute53.
type Route53 struct {
	api     route53API
	cfg     *aws.Config // nil when api was not built from a config
	logger  logrus.FieldLogger
	comment string // attached to every change batch
}

func (r *Route53) SetLogger(logger logrus.FieldLogger) {
	r.logger = logger
}

// SetHTTPClient rebuilds the Route 53 client so that its API calls go through client.
// Credentials were already resolved by NewRoute53 and are not fetched again.
func (r *Route53) SetHTTPClient(client *http.Client) {
	if r.cfg == nil || client == nil {
		return
	}
	r.api = route53.NewFromConfig(*r.cfg, func(o *route53.Options) {
		o.HTTPClient = client
	})
}

// ListZones implements dyndns.ZoneAPI.
// Private hosted zones are skipped since they never answer public queries.
func (r *Route53) ListZones(ctx context.Context) ([]Zone, error) {
	var zones []Zone
	p := route53.NewListHostedZonesPaginator(r.api, &route53.ListHostedZonesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing hosted zones: %w", err)
		}
		for _, hz := range page.HostedZones {
			if hz.Config != nil && hz.Config.PrivateZone {
				continue
			}
			zones = append(zones, Zone{
				ID:   aws.ToString(hz.Id),
				Name: strings.TrimSuffix(aws.ToString(hz.Name), "."),
			})
		}
	}
	r.logger.Debugf("found %d public hosted zones", len(zones))
	return zones, nil
}

// UpsertRecord implements dyndns.ZoneAPI.
func (r *Route53) UpsertRecord(ctx context.Context, zone Zone, rec Record) error {
	out, err := r.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zone.ID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(r.comment),
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name: aws.String(rec.Name),
					Type: types.RRType(rec.Type),
					TTL:  aws.Int64(rec.TTL),
					ResourceRecords: []types.ResourceRecord{
						{Value: aws.String(rec.Value)},
					},
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("error changing record sets in %s: %w", zone.ID, err)
	}
	if out.ChangeInfo != nil {
		r.logger.WithFields(logrus.Fields{
			"change_id": aws.ToString(out.ChangeInfo.Id),
			"status":    out.ChangeInfo.Status,
		}).Debugf("submitted %s %s", rec.Type, rec.Name)
	}
	return nil
}
