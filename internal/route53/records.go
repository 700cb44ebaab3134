package route53

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Change batch comments attached to mutations.
const (
	CommentCreated = "Record created programmatically"
	CommentDeleted = "Record deleted programmatically"
	CommentUpdated = "Record updated programmatically"
)

// RecordSet represents a resource record set in a hosted zone. Identity
// within the zone is the (Name, Type) pair.
type RecordSet struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	TTL         int64        `json:"ttl"`
	Values      []string     `json:"values"`
	Alias       *AliasTarget `json:"alias,omitempty"`
	SetID       string       `json:"setIdentifier,omitempty"`
	HealthCheck string       `json:"healthCheckId,omitempty"`
}

// AliasTarget is the target of a Route 53 alias record. Alias records are
// listed but not managed by this package.
type AliasTarget struct {
	DNSName              string `json:"dnsName"`
	HostedZoneID         string `json:"hostedZoneId"`
	EvaluateTargetHealth bool   `json:"evaluateTargetHealth"`
}

// IsAlias reports whether the record set is an alias record.
func (r RecordSet) IsAlias() bool {
	return r.Alias != nil
}

// Action is a change batch action.
type Action string

const (
	ActionUpsert Action = Action(types.ChangeActionUpsert)
	ActionDelete Action = Action(types.ChangeActionDelete)
)

// Change is one entry of a change batch.
type Change struct {
	Action Action
	Record RecordSet
}

// ListRecordSets returns every record set in the zone, following
// NextRecordName/NextRecordType/NextRecordIdentifier until exhausted.
func (c *Client) ListRecordSets(ctx context.Context, zoneID ZoneID) ([]RecordSet, error) {
	var records []RecordSet
	var startRecordName *string
	var startRecordType types.RRType
	var startRecordIdentifier *string

	for {
		input := &route53.ListResourceRecordSetsInput{
			HostedZoneId:          aws.String(zoneID.String()),
			StartRecordName:       startRecordName,
			StartRecordIdentifier: startRecordIdentifier,
		}

		if startRecordName != nil {
			input.StartRecordType = startRecordType
		}

		output, err := c.api.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, classify("list resource record sets", err)
		}

		for _, rrs := range output.ResourceRecordSets {
			records = append(records, recordSetFromAWS(rrs))
		}

		if !output.IsTruncated || output.NextRecordName == nil {
			break
		}

		startRecordName = output.NextRecordName
		startRecordType = output.NextRecordType
		startRecordIdentifier = output.NextRecordIdentifier
	}

	c.log.V(1).Info("listed record sets", "zoneID", zoneID, "count", len(records))
	return records, nil
}

// ChangeRecordSets submits a change batch to the zone and returns the
// provider's change token. The provider applies the batch atomically; this
// call does not wait for propagation.
func (c *Client) ChangeRecordSets(ctx context.Context, zoneID ZoneID, comment string, changes ...Change) (*ChangeInfo, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("change record sets: empty change batch")
	}

	batch := &types.ChangeBatch{
		Changes: make([]types.Change, 0, len(changes)),
	}
	if comment != "" {
		batch.Comment = aws.String(comment)
	}
	for _, ch := range changes {
		batch.Changes = append(batch.Changes, types.Change{
			Action:            types.ChangeAction(ch.Action),
			ResourceRecordSet: recordSetToAWS(ch.Record),
		})
	}

	output, err := c.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID.String()),
		ChangeBatch:  batch,
	})
	if err != nil {
		return nil, classify("change resource record sets", err)
	}

	info := changeInfoFromAWS(output.ChangeInfo)
	c.log.Info("submitted change batch", "zoneID", zoneID, "changes", len(changes), "changeID", info.ID, "status", info.Status)
	return info, nil
}

func recordSetFromAWS(rrs types.ResourceRecordSet) RecordSet {
	record := RecordSet{
		Name:        CanonicalName(aws.ToString(rrs.Name)),
		Type:        string(rrs.Type),
		TTL:         aws.ToInt64(rrs.TTL),
		SetID:       aws.ToString(rrs.SetIdentifier),
		HealthCheck: aws.ToString(rrs.HealthCheckId),
		Values:      make([]string, 0, len(rrs.ResourceRecords)),
	}

	for _, rr := range rrs.ResourceRecords {
		if rr.Value != nil {
			record.Values = append(record.Values, *rr.Value)
		}
	}

	if rrs.AliasTarget != nil {
		record.Alias = &AliasTarget{
			DNSName:              aws.ToString(rrs.AliasTarget.DNSName),
			HostedZoneID:         aws.ToString(rrs.AliasTarget.HostedZoneId),
			EvaluateTargetHealth: rrs.AliasTarget.EvaluateTargetHealth,
		}
	}

	return record
}

func recordSetToAWS(r RecordSet) *types.ResourceRecordSet {
	rrs := &types.ResourceRecordSet{
		Name: aws.String(CanonicalName(r.Name)),
		Type: types.RRType(r.Type),
		TTL:  aws.Int64(r.TTL),
	}
	if r.SetID != "" {
		rrs.SetIdentifier = aws.String(r.SetID)
	}
	for _, v := range r.Values {
		rrs.ResourceRecords = append(rrs.ResourceRecords, types.ResourceRecord{
			Value: aws.String(v),
		})
	}
	return rrs
}
