package route53

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// HostedZone represents a Route 53 hosted zone.
type HostedZone struct {
	ID              ZoneID   `json:"id"`
	Name            string   `json:"name"` // canonical, with trailing dot
	CallerReference string   `json:"callerReference"`
	RecordCount     int64    `json:"recordCount"`
	Private         bool     `json:"private"`
	Comment         string   `json:"comment,omitempty"`
	NameServers     []string `json:"nameServers,omitempty"` // only set on creation
}

// CreateZoneInput describes a hosted zone to create.
type CreateZoneInput struct {
	Name            string
	CallerReference string
	Comment         string
}

// ChangeInfo is the provider's change-tracking token for a mutation.
type ChangeInfo struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
	Comment     string    `json:"comment,omitempty"`
}

// ListHostedZones returns every hosted zone in the account, following
// pagination markers until the listing is exhausted.
func (c *Client) ListHostedZones(ctx context.Context) ([]HostedZone, error) {
	var zones []HostedZone
	var marker *string

	for {
		input := &route53.ListHostedZonesInput{
			Marker: marker,
		}

		result, err := c.api.ListHostedZones(ctx, input)
		if err != nil {
			return nil, classify("list hosted zones", err)
		}

		for _, hz := range result.HostedZones {
			zones = append(zones, hostedZoneFromAWS(hz))
		}

		if !result.IsTruncated || result.NextMarker == nil {
			break
		}
		marker = result.NextMarker
	}

	c.log.V(1).Info("listed hosted zones", "count", len(zones))
	return zones, nil
}

// CreateHostedZone creates a public hosted zone. The provider adds the
// default NS and SOA record sets.
func (c *Client) CreateHostedZone(ctx context.Context, in CreateZoneInput) (*HostedZone, error) {
	input := &route53.CreateHostedZoneInput{
		Name:            aws.String(CanonicalName(in.Name)),
		CallerReference: aws.String(in.CallerReference),
	}
	if in.Comment != "" {
		input.HostedZoneConfig = &types.HostedZoneConfig{
			Comment: aws.String(in.Comment),
		}
	}

	result, err := c.api.CreateHostedZone(ctx, input)
	if err != nil {
		return nil, classify("create hosted zone", err)
	}
	if result.HostedZone == nil {
		return nil, &ProviderError{Op: "create hosted zone", Message: "empty response"}
	}

	zone := hostedZoneFromAWS(*result.HostedZone)
	if result.DelegationSet != nil {
		zone.NameServers = append(zone.NameServers, result.DelegationSet.NameServers...)
	}

	c.log.Info("created hosted zone", "zone", zone.Name, "id", zone.ID)
	return &zone, nil
}

// DeleteHostedZone deletes a hosted zone by id. The provider refuses to
// delete zones holding anything besides the default NS and SOA records.
func (c *Client) DeleteHostedZone(ctx context.Context, id ZoneID) (*ChangeInfo, error) {
	result, err := c.api.DeleteHostedZone(ctx, &route53.DeleteHostedZoneInput{
		Id: aws.String(id.String()),
	})
	if err != nil {
		return nil, classify("delete hosted zone", err)
	}

	c.log.Info("deleted hosted zone", "id", id)
	return changeInfoFromAWS(result.ChangeInfo), nil
}

func hostedZoneFromAWS(hz types.HostedZone) HostedZone {
	zone := HostedZone{
		ID:              ParseZoneID(aws.ToString(hz.Id)),
		Name:            CanonicalName(aws.ToString(hz.Name)),
		CallerReference: aws.ToString(hz.CallerReference),
		RecordCount:     aws.ToInt64(hz.ResourceRecordSetCount),
	}
	if hz.Config != nil {
		zone.Private = hz.Config.PrivateZone
		zone.Comment = aws.ToString(hz.Config.Comment)
	}
	return zone
}

func changeInfoFromAWS(ci *types.ChangeInfo) *ChangeInfo {
	if ci == nil {
		return &ChangeInfo{}
	}
	return &ChangeInfo{
		ID:          aws.ToString(ci.Id),
		Status:      string(ci.Status),
		SubmittedAt: aws.ToTime(ci.SubmittedAt),
		Comment:     aws.ToString(ci.Comment),
	}
}
