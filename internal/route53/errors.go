package route53

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrNoSuchHostedZone is returned when the provider does not know the zone id.
	ErrNoSuchHostedZone = errors.New("no such hosted zone")
	// ErrHostedZoneNotEmpty is returned when the provider refuses to delete a
	// zone that still holds non-default record sets.
	ErrHostedZoneNotEmpty = errors.New("hosted zone contains non-default record sets")
)

// ProviderError is an upstream failure with the provider's code and message
// passed through verbatim.
type ProviderError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classify maps an SDK error to this package's error values. The two zone
// conditions the service layer acts on get sentinels; everything else becomes
// a *ProviderError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var noZone *types.NoSuchHostedZone
	if errors.As(err, &noZone) {
		return fmt.Errorf("%s: %w: %s", op, ErrNoSuchHostedZone, detail(noZone.ErrorMessage()))
	}

	var notEmpty *types.HostedZoneNotEmpty
	if errors.As(err, &notEmpty) {
		return fmt.Errorf("%s: %w: %s", op, ErrHostedZoneNotEmpty, detail(notEmpty.ErrorMessage()))
	}

	pe := &ProviderError{Op: op, Message: err.Error(), Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		pe.Code = apiErr.ErrorCode()
		pe.Message = apiErr.ErrorMessage()
	}
	return pe
}

// detail substitutes a placeholder for empty provider messages.
func detail(msg string) string {
	if msg == "" {
		return "no detail"
	}
	return msg
}
