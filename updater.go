package dyndns

import (
	"context"
	"net/netip"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is the TTL in seconds given to records when none is configured.
const DefaultTTL = 300

// NewRecordUpdater returns an Updater that upserts address records through api.
// A ttl below one second is replaced with DefaultTTL.
func NewRecordUpdater(api ZoneAPI, ttl int64, logger logrus.FieldLogger) *RecordUpdater {
	if ttl < 1 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = discard
	}
	return &RecordUpdater{api: api, ttl: ttl, logger: logger}
}

// RecordUpdater implements Updater on top of a ZoneAPI.
//
// Every call lists the account's zones again instead of caching them,
// so zones added or removed between cycles are picked up without a restart.
type RecordUpdater struct {
	api    ZoneAPI
	ttl    int64
	logger logrus.FieldLogger
}

func (u *RecordUpdater) SetLogger(logger logrus.FieldLogger) {
	u.logger = logger
}

// Update implements dyndns.Updater.
func (u *RecordUpdater) Update(ctx context.Context, domain string, addr netip.Addr) error {
	zones, err := u.api.ListZones(ctx)
	if err != nil {
		return providerError("list zones", domain, err)
	}
	zone, err := MatchZone(domain, zones)
	if err != nil {
		return err
	}
	log := u.logger.WithFields(logrus.Fields{"domain": domain, "zone": zone.Name, "zone_id": zone.ID})
	log.Debug("matched hosted zone")

	rec := Record{
		Name:  domain,
		Type:  recordType(addr),
		TTL:   u.ttl,
		Value: addr.String(),
	}
	if err := u.api.UpsertRecord(ctx, zone, rec); err != nil {
		return providerError("upsert", domain, err)
	}
	log.WithField("value", rec.Value).Debug("upserted record")
	return nil
}
