package database

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// SessionPartitionKey is the partition key value for session items.
const SessionPartitionKey = "SESSION"

type sessionItem struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	UserID    string    `dynamodbav:"user_id"`
	Email     string    `dynamodbav:"email"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	ExpiresAt time.Time `dynamodbav:"expires_at"`
	TTL       int64     `dynamodbav:"ttl"`
}

// CreateSession stores a session. The ttl attribute lets DynamoDB expire
// the item on its own.
func (c *Client) CreateSession(ctx context.Context, session *auth.Session) error {
	item, err := attributevalue.MarshalMap(sessionItem{
		PK:        SessionPartitionKey,
		SK:        session.ID,
		UserID:    session.UserID,
		Email:     session.Email,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		TTL:       session.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	result, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key:       itemKey(SessionPartitionKey, sessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if result.Item == nil {
		return nil, auth.ErrSessionNotFound
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &auth.Session{
		ID:        item.SK,
		UserID:    item.UserID,
		Email:     item.Email,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}, nil
}

// DeleteSession deletes a session
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := c.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       itemKey(SessionPartitionKey, sessionID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
