// Package route53test provides an in-memory Route 53 for tests.
package route53test

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/miekg/dns"
)

// DefaultNameServers are assigned to every zone the fake creates.
var DefaultNameServers = []string{
	"ns-1.awsdns-01.org.",
	"ns-2.awsdns-02.co.uk.",
	"ns-3.awsdns-03.com.",
	"ns-4.awsdns-04.net.",
}

type rrKey struct {
	name  string
	rtype types.RRType
	setID string
}

type zone struct {
	hz      types.HostedZone
	records map[rrKey]types.ResourceRecordSet
}

// Fake is an in-memory implementation of the Route 53 calls used by
// route53.Client. It follows the provider's semantics closely enough for
// the zone manager's tests: default NS/SOA on creation, atomic change
// batches, exact-match DELETE and refusal to delete non-empty zones.
type Fake struct {
	// PageSize limits list results per call. Zero means 100.
	PageSize int

	mu      sync.Mutex
	order   []string // zone ids in creation order
	zones   map[string]*zone
	refs    map[string]bool
	nextID  int
	calls   []string
	failing map[string]error
	now     func() time.Time
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		zones:   make(map[string]*zone),
		refs:    make(map[string]bool),
		failing: make(map[string]error),
		now:     time.Now,
	}
}

// Calls returns the API operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how many times the named operation was invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// FailWith makes every subsequent call to op return err. A nil err clears it.
func (f *Fake) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failing, op)
		return
	}
	f.failing[op] = err
}

// RecordCount returns the number of record sets in the zone, or -1 if the
// zone does not exist.
func (f *Fake) RecordCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	z, ok := f.zones[bareID(id)]
	if !ok {
		return -1
	}
	return len(z.records)
}

func (f *Fake) begin(op string) error {
	f.calls = append(f.calls, op)
	return f.failing[op]
}

func (f *Fake) pageSize(max *int32) int {
	n := f.PageSize
	if n <= 0 {
		n = 100
	}
	if max != nil && int(*max) > 0 && int(*max) < n {
		n = int(*max)
	}
	return n
}

// CreateHostedZone creates a zone with default NS and SOA record sets.
func (f *Fake) CreateHostedZone(_ context.Context, in *route53.CreateHostedZoneInput, _ ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateHostedZone"); err != nil {
		return nil, err
	}

	name := strings.ToLower(dns.Fqdn(aws.ToString(in.Name)))
	if _, ok := dns.IsDomainName(name); !ok || dns.CountLabel(name) < 2 {
		return nil, &types.InvalidDomainName{Message: aws.String(fmt.Sprintf("%s is not a valid domain name", aws.ToString(in.Name)))}
	}
	ref := aws.ToString(in.CallerReference)
	if ref == "" {
		return nil, &types.InvalidInput{Message: aws.String("CallerReference is required")}
	}
	if f.refs[ref] {
		return nil, &types.HostedZoneAlreadyExists{Message: aws.String(fmt.Sprintf("A hosted zone has already been created with the specified caller reference %s", ref))}
	}
	f.refs[ref] = true

	f.nextID++
	id := fmt.Sprintf("Z%012dFAKE", f.nextID)
	hz := types.HostedZone{
		Id:                     aws.String("/hostedzone/" + id),
		Name:                   aws.String(name),
		CallerReference:        aws.String(ref),
		Config:                 &types.HostedZoneConfig{},
		ResourceRecordSetCount: aws.Int64(2),
	}
	if in.HostedZoneConfig != nil {
		hz.Config.Comment = in.HostedZoneConfig.Comment
		hz.Config.PrivateZone = in.HostedZoneConfig.PrivateZone
	}

	z := &zone{hz: hz, records: make(map[rrKey]types.ResourceRecordSet)}
	ns := types.ResourceRecordSet{Name: aws.String(name), Type: types.RRTypeNs, TTL: aws.Int64(172800)}
	for _, s := range DefaultNameServers {
		ns.ResourceRecords = append(ns.ResourceRecords, types.ResourceRecord{Value: aws.String(s)})
	}
	soa := types.ResourceRecordSet{
		Name: aws.String(name),
		Type: types.RRTypeSoa,
		TTL:  aws.Int64(900),
		ResourceRecords: []types.ResourceRecord{{
			Value: aws.String(DefaultNameServers[0] + " awsdns-hostmaster.amazon.com. 1 7200 900 1209600 86400"),
		}},
	}
	z.records[keyOf(ns)] = ns
	z.records[keyOf(soa)] = soa

	f.zones[id] = z
	f.order = append(f.order, id)

	return &route53.CreateHostedZoneOutput{
		HostedZone:    &hz,
		ChangeInfo:    f.changeInfo(),
		DelegationSet: &types.DelegationSet{NameServers: slices.Clone(DefaultNameServers)},
		Location:      aws.String("https://route53.amazonaws.com/2013-04-01/hostedzone/" + id),
	}, nil
}

// ListHostedZones lists zones in creation order, PageSize at a time.
func (f *Fake) ListHostedZones(_ context.Context, in *route53.ListHostedZonesInput, _ ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListHostedZones"); err != nil {
		return nil, err
	}

	start := 0
	if in != nil && in.Marker != nil {
		start = slices.Index(f.order, aws.ToString(in.Marker))
		if start < 0 {
			return nil, &types.InvalidInput{Message: aws.String("invalid marker")}
		}
	}
	var max *int32
	if in != nil {
		max = in.MaxItems
	}
	size := f.pageSize(max)

	out := &route53.ListHostedZonesOutput{MaxItems: aws.Int32(int32(size))}
	end := min(start+size, len(f.order))
	for _, id := range f.order[start:end] {
		z := f.zones[id]
		hz := z.hz
		hz.ResourceRecordSetCount = aws.Int64(int64(len(z.records)))
		out.HostedZones = append(out.HostedZones, hz)
	}
	if end < len(f.order) {
		out.IsTruncated = true
		out.NextMarker = aws.String(f.order[end])
	}
	return out, nil
}

// DeleteHostedZone deletes a zone holding only its apex NS and SOA records.
func (f *Fake) DeleteHostedZone(_ context.Context, in *route53.DeleteHostedZoneInput, _ ...func(*route53.Options)) (*route53.DeleteHostedZoneOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteHostedZone"); err != nil {
		return nil, err
	}

	id := bareID(aws.ToString(in.Id))
	z, ok := f.zones[id]
	if !ok {
		return nil, noSuchZone(id)
	}
	apex := aws.ToString(z.hz.Name)
	for k := range z.records {
		if k.name == apex && (k.rtype == types.RRTypeNs || k.rtype == types.RRTypeSoa) {
			continue
		}
		return nil, &types.HostedZoneNotEmpty{Message: aws.String("The specified hosted zone contains non-required resource record sets and so cannot be deleted.")}
	}

	delete(f.zones, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
	return &route53.DeleteHostedZoneOutput{ChangeInfo: f.changeInfo()}, nil
}

// ListResourceRecordSets lists record sets ordered by name then type.
func (f *Fake) ListResourceRecordSets(_ context.Context, in *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListResourceRecordSets"); err != nil {
		return nil, err
	}

	id := bareID(aws.ToString(in.HostedZoneId))
	z, ok := f.zones[id]
	if !ok {
		return nil, noSuchZone(id)
	}

	keys := make([]rrKey, 0, len(z.records))
	for k := range z.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	start := 0
	if in.StartRecordName != nil {
		from := rrKey{
			name:  strings.ToLower(dns.Fqdn(aws.ToString(in.StartRecordName))),
			rtype: in.StartRecordType,
			setID: aws.ToString(in.StartRecordIdentifier),
		}
		start = sort.Search(len(keys), func(i int) bool { return !lessKey(keys[i], from) })
	}
	size := f.pageSize(in.MaxItems)

	out := &route53.ListResourceRecordSetsOutput{MaxItems: aws.Int32(int32(size))}
	end := min(start+size, len(keys))
	for _, k := range keys[start:end] {
		out.ResourceRecordSets = append(out.ResourceRecordSets, z.records[k])
	}
	if end < len(keys) {
		next := keys[end]
		out.IsTruncated = true
		out.NextRecordName = aws.String(next.name)
		out.NextRecordType = next.rtype
		if next.setID != "" {
			out.NextRecordIdentifier = aws.String(next.setID)
		}
	}
	return out, nil
}

// ChangeResourceRecordSets applies a change batch atomically.
func (f *Fake) ChangeResourceRecordSets(_ context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ChangeResourceRecordSets"); err != nil {
		return nil, err
	}

	id := bareID(aws.ToString(in.HostedZoneId))
	z, ok := f.zones[id]
	if !ok {
		return nil, noSuchZone(id)
	}
	if in.ChangeBatch == nil || len(in.ChangeBatch.Changes) == 0 {
		return nil, &types.InvalidInput{Message: aws.String("ChangeBatch must contain at least one change")}
	}

	apex := aws.ToString(z.hz.Name)
	staged := make(map[rrKey]types.ResourceRecordSet, len(z.records))
	for k, v := range z.records {
		staged[k] = v
	}

	var problems []string
	for _, ch := range in.ChangeBatch.Changes {
		rrs := ch.ResourceRecordSet
		if rrs == nil {
			problems = append(problems, "ResourceRecordSet is required")
			continue
		}
		rrs.Name = aws.String(strings.ToLower(dns.Fqdn(aws.ToString(rrs.Name))))
		k := keyOf(*rrs)
		desc := fmt.Sprintf("[%s, %s]", strings.TrimSuffix(k.name, "."), k.rtype)

		if !dns.IsSubDomain(apex, k.name) {
			problems = append(problems, fmt.Sprintf("RRSet with DNS name %s is not permitted in zone %s", k.name, apex))
			continue
		}

		current, exists := staged[k]
		switch ch.Action {
		case types.ChangeActionCreate:
			if exists {
				problems = append(problems, fmt.Sprintf("Tried to create resource record set %s but it already exists", desc))
				continue
			}
			staged[k] = cloneRRS(*rrs)
		case types.ChangeActionUpsert:
			if k.name == apex && k.rtype == types.RRTypeSoa && !exists {
				problems = append(problems, "SOA record may not be created")
				continue
			}
			staged[k] = cloneRRS(*rrs)
		case types.ChangeActionDelete:
			if !exists {
				problems = append(problems, fmt.Sprintf("Tried to delete resource record set %s but it was not found", desc))
				continue
			}
			if k.name == apex && (k.rtype == types.RRTypeNs || k.rtype == types.RRTypeSoa) {
				problems = append(problems, fmt.Sprintf("A HostedZone must contain at least one NS record and one SOA record for the zone itself %s", desc))
				continue
			}
			if !sameRRS(current, *rrs) {
				problems = append(problems, fmt.Sprintf("Tried to delete resource record set %s but the values provided do not match the current values", desc))
				continue
			}
			delete(staged, k)
		default:
			problems = append(problems, fmt.Sprintf("unknown action %q", ch.Action))
		}
	}

	if len(problems) > 0 {
		return nil, &types.InvalidChangeBatch{
			Message:  aws.String(strings.Join(problems, "; ")),
			Messages: problems,
		}
	}

	z.records = staged
	info := f.changeInfo()
	info.Comment = in.ChangeBatch.Comment
	return &route53.ChangeResourceRecordSetsOutput{ChangeInfo: info}, nil
}

func (f *Fake) changeInfo() *types.ChangeInfo {
	now := f.now().UTC()
	return &types.ChangeInfo{
		Id:          aws.String(fmt.Sprintf("/change/C%d", now.UnixNano())),
		Status:      types.ChangeStatusPending,
		SubmittedAt: aws.Time(now),
	}
}

func noSuchZone(id string) error {
	return &types.NoSuchHostedZone{Message: aws.String("No hosted zone found with ID: " + id)}
}

func bareID(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func keyOf(rrs types.ResourceRecordSet) rrKey {
	return rrKey{
		name:  strings.ToLower(dns.Fqdn(aws.ToString(rrs.Name))),
		rtype: rrs.Type,
		setID: aws.ToString(rrs.SetIdentifier),
	}
}

func lessKey(a, b rrKey) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	if a.rtype != b.rtype {
		return a.rtype < b.rtype
	}
	return a.setID < b.setID
}

func values(rrs types.ResourceRecordSet) []string {
	out := make([]string, 0, len(rrs.ResourceRecords))
	for _, rr := range rrs.ResourceRecords {
		out = append(out, aws.ToString(rr.Value))
	}
	sort.Strings(out)
	return out
}

func sameRRS(a, b types.ResourceRecordSet) bool {
	return aws.ToInt64(a.TTL) == aws.ToInt64(b.TTL) && slices.Equal(values(a), values(b))
}

func cloneRRS(rrs types.ResourceRecordSet) types.ResourceRecordSet {
	out := rrs
	out.ResourceRecords = slices.Clone(rrs.ResourceRecords)
	return out
}
