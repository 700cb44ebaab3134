package route53

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/go-logr/logr"
)

// API is the subset of the Route 53 SDK client used by this package.
// *route53.Client satisfies it; tests substitute route53test.Fake.
type API interface {
	CreateHostedZone(ctx context.Context, params *route53.CreateHostedZoneInput, optFns ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error)
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
	DeleteHostedZone(ctx context.Context, params *route53.DeleteHostedZoneInput, optFns ...func(*route53.Options)) (*route53.DeleteHostedZoneOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

var _ API = (*route53.Client)(nil)

// Options configures the SDK client built by NewFromConfig.
type Options struct {
	Region   string
	Endpoint string // optional, e.g. a local Route 53 emulator
}

// Client wraps the Route 53 API with typed zone ids, pagination and error
// classification. It holds no cached state: every read goes to the provider.
type Client struct {
	api API
	log logr.Logger
}

// NewClient creates a Client over an existing API implementation.
func NewClient(api API, log logr.Logger) *Client {
	return &Client{
		api: api,
		log: log,
	}
}

// NewFromConfig creates a Client using the default AWS configuration chain.
// SDK retries are disabled; provider errors surface to the caller immediately.
func NewFromConfig(ctx context.Context, opts Options, log logr.Logger) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	api := route53.NewFromConfig(cfg, func(o *route53.Options) {
		o.Retryer = aws.NopRetryer{}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewClient(api, log), nil
}
