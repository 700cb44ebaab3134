package service

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/miekg/dns"

	"github.com/dns-automate/zone-manager/internal/route53"
)

// MaxTTL is the largest TTL Route 53 accepts.
const MaxTTL = math.MaxInt32

// normalizeDomain validates a zone domain name and returns its canonical form.
func normalizeDomain(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("domainName", "must not be empty")
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return "", invalid("domainName", "%q is not a valid domain name", name)
	}
	canonical := route53.CanonicalName(name)
	if canonical == "." {
		return "", invalid("domainName", "the root zone cannot be managed")
	}
	return canonical, nil
}

func supportedType(t string) bool {
	return slices.Contains(types.RRType("").Values(), types.RRType(t))
}

// checkRecordShape verifies the fields every change needs: a name inside the
// zone, a known type and at least one non-empty value. Names are
// canonicalized and values trimmed, so a DELETE matches what an upsert stored.
func checkRecordShape(zone string, r route53.RecordSet) (route53.RecordSet, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return r, invalid("recordName", "must not be empty")
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return r, invalid("recordName", "%q is not a valid domain name", name)
	}
	r.Name = route53.CanonicalName(name)
	if !dns.IsSubDomain(zone, r.Name) {
		return r, invalid("recordName", "%s is not inside zone %s", r.Name, zone)
	}

	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	if !supportedType(r.Type) {
		return r, invalid("recordType", "unsupported record type %q", r.Type)
	}

	if len(r.Values) == 0 {
		return r, invalid("recordValue", "at least one value is required")
	}
	r.Values = slices.Clone(r.Values)
	for i, v := range r.Values {
		v = strings.TrimSpace(v)
		if v == "" {
			return r, invalid("recordValue", "value %d is empty", i+1)
		}
		r.Values[i] = v
	}
	return r, nil
}

// validateRecord performs the full local validation applied before an
// upsert: shape, TTL range and RDATA syntax for the record type.
func validateRecord(zone string, r route53.RecordSet) (route53.RecordSet, error) {
	r, err := checkRecordShape(zone, r)
	if err != nil {
		return r, err
	}
	if r.TTL < 0 || r.TTL > MaxTTL {
		return r, invalid("ttl", "must be between 0 and %d", MaxTTL)
	}

	for i, v := range r.Values {
		if strings.ContainsAny(v, "\r\n") {
			return r, invalid("recordValue", "value %d contains a line break", i+1)
		}
		if hasComment(v) {
			return r, invalid("recordValue", "value %d contains an unquoted ';'", i+1)
		}
		if err := parseRData(r.Name, r.Type, r.TTL, v); err != nil {
			return r, invalid("recordValue", "value %q is not valid %s data: %v", v, r.Type, err)
		}
	}
	return r, nil
}

// hasComment reports whether v holds a ';' outside double quotes. The zone
// file parser would drop everything after it.
func hasComment(v string) bool {
	quoted := false
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				return true
			}
		}
	}
	return false
}

func parseRData(name, rtype string, ttl int64, value string) error {
	rr, err := dns.NewRR(fmt.Sprintf("%s %d IN %s %s", name, ttl, rtype, value))
	if err != nil {
		return err
	}
	if rr == nil {
		return fmt.Errorf("no record parsed")
	}
	return nil
}

// isDefaultRecord reports whether r is one of the NS/SOA sets the provider
// creates at the zone apex. NS delegations below the apex are not defaults:
// Route 53 refuses to delete a zone holding them, so DeleteZone reports
// them as blocking (see "Open Question decisions" in DESIGN.md).
func isDefaultRecord(zone string, r route53.RecordSet) bool {
	if r.Name != zone {
		return false
	}
	return r.Type == string(types.RRTypeNs) || r.Type == string(types.RRTypeSoa)
}
