package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dns-automate/zone-manager/internal/route53"
)

// ZoneProvider is the DNS provider interface used by ZoneService.
// *route53.Client satisfies it.
type ZoneProvider interface {
	ListHostedZones(ctx context.Context) ([]route53.HostedZone, error)
	CreateHostedZone(ctx context.Context, in route53.CreateZoneInput) (*route53.HostedZone, error)
	DeleteHostedZone(ctx context.Context, id route53.ZoneID) (*route53.ChangeInfo, error)
	ListRecordSets(ctx context.Context, id route53.ZoneID) ([]route53.RecordSet, error)
	ChangeRecordSets(ctx context.Context, id route53.ZoneID, comment string, changes ...route53.Change) (*route53.ChangeInfo, error)
}

var _ ZoneProvider = (*route53.Client)(nil)

// ZoneService manages hosted zones and their records. It keeps no DNS
// state of its own; every call reads from the provider.
type ZoneService struct {
	provider ZoneProvider
	log      logr.Logger
	now      func() time.Time
}

// ZoneOption configures a ZoneService.
type ZoneOption func(*ZoneService)

// WithClock overrides the clock used to build caller references.
func WithClock(now func() time.Time) ZoneOption {
	return func(s *ZoneService) {
		s.now = now
	}
}

// NewZoneService creates a new ZoneService over the provider.
func NewZoneService(provider ZoneProvider, log logr.Logger, opts ...ZoneOption) *ZoneService {
	s := &ZoneService{
		provider: provider,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// callerReference returns a reference unique per call. The provider uses it
// to make CreateHostedZone idempotent, so it must never repeat.
func (s *ZoneService) callerReference() string {
	return fmt.Sprintf("%d-%s", s.now().UnixNano(), uuid.NewString())
}

// CreateZone creates a public hosted zone for domainName. The provider adds
// the default NS and SOA records.
func (s *ZoneService) CreateZone(ctx context.Context, domainName, comment string) (*route53.HostedZone, error) {
	name, err := normalizeDomain(domainName)
	if err != nil {
		return nil, err
	}

	zone, err := s.provider.CreateHostedZone(ctx, route53.CreateZoneInput{
		Name:            name,
		CallerReference: s.callerReference(),
		Comment:         comment,
	})
	if err != nil {
		return nil, wrapProvider("zone creation failed", name, err)
	}

	s.log.Info("hosted zone created", "zone", zone.Name, "zoneID", zone.ID)
	return zone, nil
}

// ListZones returns every hosted zone in the account.
func (s *ZoneService) ListZones(ctx context.Context) ([]route53.HostedZone, error) {
	zones, err := s.provider.ListHostedZones(ctx)
	if err != nil {
		return nil, wrapProvider("list hosted zones", "", err)
	}
	return zones, nil
}

// FindZoneByName returns the hosted zone whose name equals domainName,
// with or without a trailing dot and ignoring case. When the account holds
// more than one zone with the name, the first listed wins.
func (s *ZoneService) FindZoneByName(ctx context.Context, domainName string) (*route53.HostedZone, error) {
	name, err := normalizeDomain(domainName)
	if err != nil {
		return nil, err
	}

	zones, err := s.ListZones(ctx)
	if err != nil {
		return nil, err
	}

	for i := range zones {
		if zones[i].Name == name {
			return &zones[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", route53.DisplayName(name), ErrZoneNotFound)
}

// GetZone is FindZoneByName.
func (s *ZoneService) GetZone(ctx context.Context, domainName string) (*route53.HostedZone, error) {
	return s.FindZoneByName(ctx, domainName)
}

// ListRecords returns every record set in the zone named domainName.
func (s *ZoneService) ListRecords(ctx context.Context, domainName string) ([]route53.RecordSet, error) {
	zone, err := s.FindZoneByName(ctx, domainName)
	if err != nil {
		return nil, err
	}

	records, err := s.provider.ListRecordSets(ctx, zone.ID)
	if err != nil {
		return nil, wrapProvider("list records", zone.Name, err)
	}
	return records, nil
}

// UpsertRecord creates the record set or replaces the one with the same
// name and type.
func (s *ZoneService) UpsertRecord(ctx context.Context, domainName string, record route53.RecordSet) (*route53.ChangeInfo, error) {
	zone, err := s.FindZoneByName(ctx, domainName)
	if err != nil {
		return nil, err
	}

	record, err = validateRecord(zone.Name, record)
	if err != nil {
		return nil, err
	}

	info, err := s.provider.ChangeRecordSets(ctx, zone.ID, route53.CommentCreated, route53.Change{
		Action: route53.ActionUpsert,
		Record: record,
	})
	if err != nil {
		return nil, wrapProvider("upsert record", zone.Name, err)
	}

	s.log.Info("record upserted", "zone", zone.Name, "name", record.Name, "type", record.Type, "changeID", info.ID)
	return info, nil
}

// DeleteRecord deletes the record set. The name, type, TTL and values must
// match the provider's current record exactly or the provider rejects it.
func (s *ZoneService) DeleteRecord(ctx context.Context, domainName string, record route53.RecordSet) (*route53.ChangeInfo, error) {
	zone, err := s.FindZoneByName(ctx, domainName)
	if err != nil {
		return nil, err
	}

	record, err = checkRecordShape(zone.Name, record)
	if err != nil {
		return nil, err
	}

	info, err := s.provider.ChangeRecordSets(ctx, zone.ID, route53.CommentDeleted, route53.Change{
		Action: route53.ActionDelete,
		Record: record,
	})
	if err != nil {
		return nil, wrapProvider("delete record", zone.Name, err)
	}

	s.log.Info("record deleted", "zone", zone.Name, "name", record.Name, "type", record.Type, "changeID", info.ID)
	return info, nil
}

// EditRecord replaces oldRecord with newRecord.
//
// When both share a name and type the edit is a single UPSERT. When the key
// changes, the old set is deleted and the new one upserted in one batch, so
// a stale oldRecord rejects the whole edit and nothing changes. An oldRecord
// without a name sends only the UPSERT.
func (s *ZoneService) EditRecord(ctx context.Context, domainName string, oldRecord, newRecord route53.RecordSet) (*route53.ChangeInfo, error) {
	zone, err := s.FindZoneByName(ctx, domainName)
	if err != nil {
		return nil, err
	}

	newRecord, err = validateRecord(zone.Name, newRecord)
	if err != nil {
		return nil, err
	}

	changes := []route53.Change{{Action: route53.ActionUpsert, Record: newRecord}}
	if oldRecord.Name != "" {
		oldRecord, err = checkRecordShape(zone.Name, oldRecord)
		if err != nil {
			return nil, err
		}
		if oldRecord.Name != newRecord.Name || oldRecord.Type != newRecord.Type {
			changes = []route53.Change{
				{Action: route53.ActionDelete, Record: oldRecord},
				{Action: route53.ActionUpsert, Record: newRecord},
			}
		}
	}

	info, err := s.provider.ChangeRecordSets(ctx, zone.ID, route53.CommentUpdated, changes...)
	if err != nil {
		return nil, wrapProvider("edit record", zone.Name, err)
	}

	s.log.Info("record edited", "zone", zone.Name, "name", newRecord.Name, "type", newRecord.Type,
		"changes", len(changes), "changeID", info.ID)
	return info, nil
}

// DeleteZone deletes the zone if it holds only its default NS and SOA
// records. Otherwise it returns a *ZoneNotEmptyError listing the rest.
//
// The emptiness check and the delete are separate provider calls; a record
// added in between makes the provider refuse the delete, which is reported
// the same way.
func (s *ZoneService) DeleteZone(ctx context.Context, domainName string) (*route53.ChangeInfo, error) {
	zone, err := s.FindZoneByName(ctx, domainName)
	if err != nil {
		return nil, err
	}

	records, err := s.provider.ListRecordSets(ctx, zone.ID)
	if err != nil {
		return nil, wrapProvider("list records", zone.Name, err)
	}

	var blocking []route53.RecordSet
	for _, r := range records {
		if !isDefaultRecord(zone.Name, r) {
			blocking = append(blocking, r)
		}
	}
	if len(blocking) > 0 {
		s.log.V(1).Info("hosted zone not empty", "zone", zone.Name, "records", len(blocking))
		return nil, &ZoneNotEmptyError{Zone: route53.DisplayName(zone.Name), Records: blocking}
	}

	info, err := s.provider.DeleteHostedZone(ctx, zone.ID)
	if err != nil {
		return nil, wrapProvider("delete hosted zone", route53.DisplayName(zone.Name), err)
	}

	s.log.Info("hosted zone deleted", "zone", zone.Name, "zoneID", zone.ID)
	return info, nil
}
