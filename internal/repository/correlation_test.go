package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func frozenNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func correlationAttrs(state, chatID string, expires int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: statePK(state)},
		"SK":     &types.AttributeValueMemberS{Value: skCorrelation},
		"chatId": &types.AttributeValueMemberS{Value: chatID},
		"ttl":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)},
	}
}

func TestPutCorrelation_WritesEntryWithTTL(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	frozenNow(t, at)

	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.PutCorrelation(context.Background(), "state-1", "42"))
	require.NotNil(t, db.lastPutIn)

	pk, err := strAttr(db.lastPutIn.Item, "PK")
	require.NoError(t, err)
	require.Equal(t, "STATE#state-1", pk)

	chatID, err := strAttr(db.lastPutIn.Item, "chatId")
	require.NoError(t, err)
	require.Equal(t, "42", chatID)

	expires, err := int64Attr(db.lastPutIn.Item, "ttl")
	require.NoError(t, err)
	require.Equal(t, at.Add(300*time.Second).Unix(), expires)
}

func TestPutCorrelation_RequiresStateAndChat(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.Error(t, c.PutCorrelation(context.Background(), "", "42"))
	require.Error(t, c.PutCorrelation(context.Background(), "state-1", ""))
	require.Zero(t, db.putCalls)
}

func TestPutCorrelation_StoreError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("boom")}
	c := mustNewClient(t, db)

	err := c.PutCorrelation(context.Background(), "state-1", "42")
	require.Error(t, err)
	require.Contains(t, err.Error(), "PutCorrelation")
}

func TestTakeCorrelation_HappyPath(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	frozenNow(t, at)

	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{
		Attributes: correlationAttrs("state-1", "42", at.Add(100*time.Second).Unix()),
	}}
	c := mustNewClient(t, db)

	chatID, ok, err := c.TakeCorrelation(context.Background(), "state-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "42", chatID)

	// the take must be the atomic delete-and-return variant
	require.NotNil(t, db.lastDelIn)
	require.Equal(t, types.ReturnValueAllOld, db.lastDelIn.ReturnValues)
	pk, err := strAttr(db.lastDelIn.Key, "PK")
	require.NoError(t, err)
	require.Equal(t, "STATE#state-1", pk)
}

func TestTakeCorrelation_AbsentState(t *testing.T) {
	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{}}
	c := mustNewClient(t, db)

	chatID, ok, err := c.TakeCorrelation(context.Background(), "never-issued")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, chatID)
}

func TestTakeCorrelation_ExpiredButUnreaped(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	frozenNow(t, at)

	// DynamoDB TTL reaping is lazy; a row past its ttl must read as absent.
	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{
		Attributes: correlationAttrs("state-1", "42", at.Add(-time.Second).Unix()),
	}}
	c := mustNewClient(t, db)

	_, ok, err := c.TakeCorrelation(context.Background(), "state-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTakeCorrelation_StoreError(t *testing.T) {
	db := &fakeDynamo{deleteErr: errors.New("boom")}
	c := mustNewClient(t, db)

	_, _, err := c.TakeCorrelation(context.Background(), "state-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "TakeCorrelation")
}

func TestTakeCorrelation_MalformedTTL(t *testing.T) {
	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{
		Attributes: map[string]types.AttributeValue{
			"PK":     &types.AttributeValueMemberS{Value: "STATE#state-1"},
			"SK":     &types.AttributeValueMemberS{Value: skCorrelation},
			"chatId": &types.AttributeValueMemberS{Value: "42"},
			"ttl":    &types.AttributeValueMemberS{Value: "bad"},
		},
	}}
	c := mustNewClient(t, db)

	_, _, err := c.TakeCorrelation(context.Background(), "state-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode ttl")
}
