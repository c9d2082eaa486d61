package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"calendar-bridge/internal/domain"
)

// PutCredential stores the credential bundle for a chat, replacing any prior
// bundle. Credentials carry no TTL; they live until explicitly deleted.
func (c *Client) PutCredential(ctx context.Context, chatID string, cred domain.CredentialBundle) error {
	if chatID == "" {
		return errors.New("repository: PutCredential: chatID is required")
	}
	if cred.AccessToken == "" {
		return errors.New("repository: PutCredential: access token is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":          &types.AttributeValueMemberS{Value: authPK(chatID)},
			"SK":          &types.AttributeValueMemberS{Value: skCredential},
			"accessToken": &types.AttributeValueMemberS{Value: cred.AccessToken},
			"payload":     &types.AttributeValueMemberS{Value: cred.Payload},
			"storedAt":    &types.AttributeValueMemberS{Value: now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: PutCredential: %w", err)
	}
	return nil
}

// GetCredential returns the stored bundle for a chat. ok is false when the
// chat has never authorized or its credential was invalidated.
func (c *Client) GetCredential(ctx context.Context, chatID string) (cred domain.CredentialBundle, ok bool, err error) {
	if chatID == "" {
		return domain.CredentialBundle{}, false, errors.New("repository: GetCredential: chatID is required")
	}

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: authPK(chatID)},
			"SK": &types.AttributeValueMemberS{Value: skCredential},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.CredentialBundle{}, false, fmt.Errorf("repository: GetCredential: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.CredentialBundle{}, false, nil
	}

	token, err := strAttr(out.Item, "accessToken")
	if err != nil {
		return domain.CredentialBundle{}, false, fmt.Errorf("repository: GetCredential decode: %w", err)
	}
	payload, _ := strAttr(out.Item, "payload") // allow empty
	storedAt := time.Time{}
	if raw, rawErr := strAttr(out.Item, "storedAt"); rawErr == nil {
		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			storedAt = ts
		}
	}

	return domain.CredentialBundle{
		AccessToken: token,
		Payload:     payload,
		StoredAt:    storedAt,
	}, true, nil
}

// DeleteCredential revokes the stored bundle for a chat, forcing a fresh
// login before any further calendar access. Deleting an absent credential is
// a no-op.
func (c *Client) DeleteCredential(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("repository: DeleteCredential: chatID is required")
	}

	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: authPK(chatID)},
			"SK": &types.AttributeValueMemberS{Value: skCredential},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: DeleteCredential: %w", err)
	}
	return nil
}
