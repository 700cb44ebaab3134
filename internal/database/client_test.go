package database

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// fakeDynamo stores items by PK/SK. UpdateItem understands only the two
// expressions IncrementRateLimit sends: with :zero it is the if_not_exists
// increment, without it the window reset.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	puts  int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyString(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyString(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	k := keyString(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_not_exists(PK)" {
		if _, ok := f.items[k]; ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyString(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func number(av types.AttributeValue) int64 {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyString(in.Key)
	item, ok := f.items[k]
	if !ok {
		item = map[string]types.AttributeValue{"PK": in.Key["PK"], "SK": in.Key["SK"]}
	}
	vals := in.ExpressionAttributeValues
	count, hasCount := item["count"]
	windowEnd, hasWindow := item["window_end"]

	if _, incr := vals[":zero"]; incr {
		c := int64(0)
		if hasCount {
			c = number(count)
		}
		item["count"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(c+number(vals[":one"]), 10)}
		if !hasWindow {
			windowEnd = vals[":windowEnd"]
		}
		item["window_end"] = windowEnd
	} else {
		item["count"] = vals[":one"]
		item["window_end"] = vals[":windowEnd"]
	}
	item["ttl"] = vals[":ttl"]
	f.items[k] = item
	return &dynamodb.UpdateItemOutput{Attributes: item}, nil
}

func newTestClient() (*Client, *fakeDynamo) {
	fake := newFakeDynamo()
	return NewWithAPI(fake, ""), fake
}

func TestNewWithAPIDefaultTable(t *testing.T) {
	c, _ := newTestClient()
	if c.TableName() != DefaultTableName {
		t.Errorf("TableName = %q", c.TableName())
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &auth.User{ID: "u-1", Email: "Ops@Example.com", Username: "ops", PasswordHash: "$2a$hash", CreatedAt: created}
	if err := c.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := c.GetUserByEmail(ctx, "ops@example.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != "u-1" || got.Email != "ops@example.com" || got.PasswordHash != "$2a$hash" || !got.CreatedAt.Equal(created) {
		t.Errorf("user = %+v", got)
	}

	if err := c.CreateUser(ctx, &auth.User{ID: "u-2", Email: "ops@example.com"}); !errors.Is(err, auth.ErrUserExists) {
		t.Errorf("duplicate CreateUser = %v, want ErrUserExists", err)
	}

	if _, err := c.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("GetUserByEmail(unknown) = %v", err)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &auth.Session{ID: "s-1", UserID: "u-1", Email: "ops@example.com", CreatedAt: now, ExpiresAt: now.Add(auth.SessionTTL)}
	if err := c.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	item := fake.items[SessionPartitionKey+"|s-1"]
	if got := number(item["ttl"]); got != s.ExpiresAt.Unix() {
		t.Errorf("ttl attribute = %d, want %d", got, s.ExpiresAt.Unix())
	}

	got, err := c.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != "u-1" || !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("session = %+v", got)
	}

	if err := c.DeleteSession(ctx, "s-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetSession(ctx, "s-1"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("GetSession after delete = %v", err)
	}
}

func TestIncrementRateLimit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		count, exceeded, err := c.IncrementRateLimit(ctx, "login:203.0.113.7", 2, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if count != i || exceeded != (i > 2) {
			t.Errorf("hit %d: count=%d exceeded=%v", i, count, exceeded)
		}
	}

	// Other keys are counted separately.
	if count, _, _ := c.IncrementRateLimit(ctx, "login:198.51.100.1", 2, time.Minute); count != 1 {
		t.Errorf("separate key count = %d", count)
	}

	now = now.Add(2 * time.Minute)
	count, exceeded, err := c.IncrementRateLimit(ctx, "login:203.0.113.7", 2, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || exceeded {
		t.Errorf("after window: count=%d exceeded=%v", count, exceeded)
	}
}
