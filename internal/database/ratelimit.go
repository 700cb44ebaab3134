package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RateLimitPartitionKey is the partition key value for rate-limit counters.
const RateLimitPartitionKey = "RATELIMIT"

type rateLimitItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Count     int    `dynamodbav:"count"`
	WindowEnd int64  `dynamodbav:"window_end"`
	TTL       int64  `dynamodbav:"ttl"`
}

// IncrementRateLimit increments the counter for key within a fixed window.
// Returns the current count and whether the limit is exceeded.
func (c *Client) IncrementRateLimit(ctx context.Context, key string, limit int, window time.Duration) (int, bool, error) {
	now := c.now().Unix()
	windowEnd := now + int64(window/time.Second)
	values := map[string]types.AttributeValue{
		":one":       &types.AttributeValueMemberN{Value: "1"},
		":windowEnd": &types.AttributeValueMemberN{Value: strconv.FormatInt(windowEnd, 10)},
		":ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(windowEnd+60, 10)},
	}
	names := map[string]string{
		"#count": "count",
		"#ttl":   "ttl",
	}

	result, err := c.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       itemKey(RateLimitPartitionKey, key),
		UpdateExpression:          aws.String("SET #count = if_not_exists(#count, :zero) + :one, window_end = if_not_exists(window_end, :windowEnd), #ttl = :ttl"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: withZero(values),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	var entry rateLimitItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &entry); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal rate limit: %w", err)
	}

	if now <= entry.WindowEnd {
		return entry.Count, entry.Count > limit, nil
	}

	// The stored window has lapsed; start a new one with this hit.
	_, err = c.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       itemKey(RateLimitPartitionKey, key),
		UpdateExpression:          aws.String("SET #count = :one, window_end = :windowEnd, #ttl = :ttl"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return 1, 1 > limit, nil
}

func withZero(values map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out[":zero"] = &types.AttributeValueMemberN{Value: "0"}
	return out
}
