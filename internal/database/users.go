package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// UserPartitionKey is the partition key value for user items; the sort key
// is the normalized email.
const UserPartitionKey = "USER"

type userItem struct {
	PK           string    `dynamodbav:"PK"`
	SK           string    `dynamodbav:"SK"`
	UserID       string    `dynamodbav:"user_id"`
	Email        string    `dynamodbav:"email"`
	Username     string    `dynamodbav:"username"`
	PasswordHash string    `dynamodbav:"password_hash"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
}

// CreateUser stores a user. A conditional put rejects duplicate emails.
func (c *Client) CreateUser(ctx context.Context, user *auth.User) error {
	email := auth.NormalizeEmail(user.Email)
	item, err := attributevalue.MarshalMap(userItem{
		PK:           UserPartitionKey,
		SK:           email,
		UserID:       user.ID,
		Email:        email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	result, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key:       itemKey(UserPartitionKey, auth.NormalizeEmail(email)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if result.Item == nil {
		return nil, auth.ErrUserNotFound
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &auth.User{
		ID:           item.UserID,
		Email:        item.Email,
		Username:     item.Username,
		PasswordHash: item.PasswordHash,
		CreatedAt:    item.CreatedAt,
	}, nil
}
