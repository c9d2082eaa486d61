package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretGetter is the interface consumers (the Telegram and Google clients)
// depend on rather than the concrete *Client, so they remain testable without
// real AWS calls.
type SecretGetter interface {
	GetSecret(ctx context.Context, name, field string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter fetches a parameter value with decryption enabled.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// GetSecret fetches a SecureString parameter whose value is a JSON object and
// returns the named field. Secrets are stored as e.g. {"token":"..."} so that
// related metadata can sit next to the secret without extra parameters.
func (c *Client) GetSecret(ctx context.Context, name, field string) (string, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", errors.New("paramstore: secret field is required")
	}

	raw, err := c.GetParameter(ctx, name)
	if err != nil {
		return "", err
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal secret %q as JSON: %w", name, err)
	}
	v := payload[field]
	if v == "" {
		return "", fmt.Errorf("paramstore: secret %q has no %q field", name, field)
	}
	return v, nil
}
