package dyndns

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"
)

// NewCloudflare creates a ZoneAPI for Cloudflare using an API token.
// The token needs Zone:Read and DNS:Edit permissions on every zone that should be managed.
func NewCloudflare(token string, opts ...cloudflare.Option) (cf *Cloudflare, err error) {
	if token == "" {
		return nil, errors.New("cloudflare API token cannot be empty")
	}
	cf = new(Cloudflare)
	cf.api, err = cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.logger = discard
	cf.comment = "managed by dyndns"
	return cf, nil
}

// Cloudflare implements dyndns.ZoneAPI.
//
// It should be constructed using NewCloudflare.
type Cloudflare struct {
	api     *cloudflare.API
	logger  logrus.FieldLogger
	comment string // attached to each new DNS entry
}

func (cf *Cloudflare) SetLogger(logger logrus.FieldLogger) {
	cf.logger = logger
}

func (cf *Cloudflare) SetHTTPClient(client *http.Client) {
	_ = cloudflare.HTTPClient(client)(cf.api)
}

// ListZones implements dyndns.ZoneAPI.
func (cf *Cloudflare) ListZones(ctx context.Context) ([]Zone, error) {
	zones, err := cf.api.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing zones: %w", err)
	}
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, Zone{ID: z.ID, Name: z.Name})
	}
	return out, nil
}

// UpsertRecord implements dyndns.ZoneAPI.
//
// Cloudflare allows several records with the same name and type,
// so the upsert converges on exactly one: a record already holding the value is kept
// (or else the first one is rewritten) and the rest are deleted.
func (cf *Cloudflare) UpsertRecord(ctx context.Context, zone Zone, rec Record) error {
	rc := cloudflare.ZoneIdentifier(zone.ID)
	log := cf.logger.WithFields(logrus.Fields{"zone_id": zone.ID, "name": rec.Name, "type": rec.Type})

	records, _, err := cf.api.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{
		Type: rec.Type,
		Name: rec.Name,
	})
	if err != nil {
		return fmt.Errorf("error listing %s records: %w", rec.Type, err)
	}
	log.Debugf("found %d existing records", len(records))

	if len(records) == 0 {
		log.Debugf("creating record for %s...", rec.Value)
		created, err := cf.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
			Type:    rec.Type,
			Name:    rec.Name,
			Content: rec.Value,
			ZoneID:  zone.ID,
			TTL:     int(rec.TTL),
			Comment: cf.comment,
		})
		if err != nil {
			return fmt.Errorf("error creating DNS record: %w", err)
		}
		log.Debugf("successfully added record %s", created.ID)
		return nil
	}

	keep := 0
	for i, r := range records {
		if r.Content == rec.Value {
			keep = i
			break
		}
	}
	target := records[keep]
	if target.Content != rec.Value || target.TTL != int(rec.TTL) {
		log.Debugf("updating record %s from %s to %s...", target.ID, target.Content, rec.Value)
		// all fields are sent, otherwise cloudflare-go resets the omitted ones to their defaults
		_, err := cf.api.UpdateDNSRecord(ctx, rc, cloudflare.UpdateDNSRecordParams{
			ID:      target.ID,
			Type:    rec.Type,
			Name:    rec.Name,
			Content: rec.Value,
			TTL:     int(rec.TTL),
			Proxied: target.Proxied,
		})
		if err != nil {
			return fmt.Errorf("error updating DNS record %s: %w", target.ID, err)
		}
	} else {
		log.Debugf("record %s already points at %s", target.ID, rec.Value)
	}

	for i, r := range records {
		if i == keep {
			continue
		}
		log.Debugf("deleting duplicate record %s (%s)...", r.ID, r.Content)
		if err := cf.api.DeleteDNSRecord(ctx, rc, r.ID); err != nil {
			return fmt.Errorf("unable to delete DNS record %s: %w", r.ID, err)
		}
	}
	return nil
}
