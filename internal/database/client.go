package database

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// DefaultTableName is used when no table is configured.
const DefaultTableName = "dns-automate-table"

// API is the subset of the DynamoDB client used by Client.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Client is the DynamoDB-backed auth.Store. Users, sessions and rate-limit
// counters share one table keyed by PK/SK.
type Client struct {
	db        API
	tableName string
	now       func() time.Time
}

var _ auth.Store = (*Client)(nil)

// New creates a Client using the default AWS configuration chain.
func New(ctx context.Context, region, tableName string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithAPI(dynamodb.NewFromConfig(cfg), tableName), nil
}

// NewWithAPI creates a Client over an existing DynamoDB API.
func NewWithAPI(db API, tableName string) *Client {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &Client{
		db:        db,
		tableName: tableName,
		now:       time.Now,
	}
}

// TableName returns the DynamoDB table name.
func (c *Client) TableName() string {
	return c.tableName
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
