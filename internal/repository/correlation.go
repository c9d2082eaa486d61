package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// correlationTTL bounds how long a pending login may wait for its callback.
const correlationTTL = 300 * time.Second

// now is swapped in tests.
var now = time.Now

// PutCorrelation records a state token → chat mapping with a 300-second
// expiry. Each login attempt writes its own token; earlier pending tokens for
// the same chat are left untouched.
func (c *Client) PutCorrelation(ctx context.Context, state, chatID string) error {
	if state == "" || chatID == "" {
		return errors.New("repository: PutCorrelation: state and chatID are required")
	}

	expires := now().Add(correlationTTL).Unix()
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":     &types.AttributeValueMemberS{Value: statePK(state)},
			"SK":     &types.AttributeValueMemberS{Value: skCorrelation},
			"chatId": &types.AttributeValueMemberS{Value: chatID},
			"ttl":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: PutCorrelation: %w", err)
	}
	return nil
}

// TakeCorrelation atomically consumes the correlation entry for a state token
// and returns the chat it belongs to. DeleteItem with ReturnValues=ALL_OLD is
// a real take: of two racing callbacks on the same token, exactly one sees the
// old item. ok is false when the token never existed, was already consumed,
// or has expired; DynamoDB TTL reaping is lazy, so the ttl attribute is
// re-checked here.
func (c *Client) TakeCorrelation(ctx context.Context, state string) (chatID string, ok bool, err error) {
	if state == "" {
		return "", false, errors.New("repository: TakeCorrelation: state is required")
	}

	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: statePK(state)},
			"SK": &types.AttributeValueMemberS{Value: skCorrelation},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: TakeCorrelation: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return "", false, nil
	}

	expires, err := int64Attr(out.Attributes, "ttl")
	if err != nil {
		return "", false, fmt.Errorf("repository: TakeCorrelation decode ttl: %w", err)
	}
	if expires <= now().Unix() {
		return "", false, nil
	}

	chatID, err = strAttr(out.Attributes, "chatId")
	if err != nil {
		return "", false, fmt.Errorf("repository: TakeCorrelation decode chatId: %w", err)
	}
	return chatID, true, nil
}
