package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/route53"
)

var (
	// ErrZoneNotFound is returned when no hosted zone matches the domain name.
	ErrZoneNotFound = errors.New("hosted zone not found")

	// ErrZoneNotEmpty is returned when a zone still holds records other than
	// its default NS and SOA sets.
	ErrZoneNotEmpty = errors.New("hosted zone contains records other than the default NS and SOA")

	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ZoneNotEmptyError lists the records blocking a zone deletion. It matches
// ErrZoneNotEmpty with errors.Is.
type ZoneNotEmptyError struct {
	Zone    string
	Records []route53.RecordSet
}

func (e *ZoneNotEmptyError) Error() string {
	if len(e.Records) == 0 {
		return fmt.Sprintf("%s: %v", e.Zone, ErrZoneNotEmpty)
	}
	blocking := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		blocking = append(blocking, r.Name+" "+r.Type)
	}
	return fmt.Sprintf("%s: %v: %s", e.Zone, ErrZoneNotEmpty, strings.Join(blocking, ", "))
}

func (e *ZoneNotEmptyError) Is(target error) bool {
	return target == ErrZoneNotEmpty
}

// ErrorKind is the broad category of a service error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// Kind classifies err. Unrecognized errors are KindInternal.
func Kind(err error) ErrorKind {
	var ve *ValidationError
	var pe *route53.ProviderError

	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrZoneNotFound):
		return KindNotFound
	case errors.Is(err, ErrZoneNotEmpty), errors.Is(err, auth.ErrUserExists):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrInvalidSession):
		return KindUnauthorized
	case errors.As(err, &pe):
		return KindProvider
	default:
		return KindInternal
	}
}

// wrapProvider attaches op to a provider error, translating the adapter's
// zone sentinels to this package's.
func wrapProvider(op, zone string, err error) error {
	switch {
	case errors.Is(err, route53.ErrNoSuchHostedZone):
		return fmt.Errorf("%s: %w: %w", op, ErrZoneNotFound, err)
	case errors.Is(err, route53.ErrHostedZoneNotEmpty):
		return fmt.Errorf("%s: %w", op, &ZoneNotEmptyError{Zone: zone})
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
