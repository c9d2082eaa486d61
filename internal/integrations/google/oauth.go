package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"calendar-bridge/internal/domain"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	// calendarScope is the only scope the bridge ever requests.
	calendarScope = "https://www.googleapis.com/auth/calendar.readonly"

	secretField = "secret"
)

type SecretGetter interface {
	GetSecret(ctx context.Context, name, field string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("google: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// tokenResponse is the minimal shape of the token-endpoint reply. The raw
// body is what gets persisted; this struct only validates it.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// OAuthClient implements the authorization-code exchange against Google's
// OAuth endpoints. The client secret is fetched from SSM on the first
// exchange and cached for the process lifetime.
type OAuthClient struct {
	clientID    string
	redirectURL string
	authURL     string
	tokenURL    string
	httpClient  *http.Client
	secrets     SecretGetter
	paramPrefix string

	secretOnce   sync.Once
	clientSecret string
	secretErr    error
}

type OAuthOption func(*OAuthClient)

func WithAuthURL(u string) OAuthOption {
	return func(c *OAuthClient) {
		c.authURL = strings.TrimSpace(u)
	}
}

func WithTokenURL(u string) OAuthOption {
	return func(c *OAuthClient) {
		c.tokenURL = strings.TrimSpace(u)
	}
}

func WithOAuthHTTPClient(httpClient *http.Client) OAuthOption {
	return func(c *OAuthClient) {
		c.httpClient = httpClient
	}
}

// NewOAuthClient creates an OAuthClient for the given application identity.
func NewOAuthClient(secrets SecretGetter, paramPrefix, clientID, redirectURL string, opts ...OAuthOption) (*OAuthClient, error) {
	if secrets == nil {
		return nil, errors.New("google: secret getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("google: parameter prefix must not be empty")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("google: client ID must not be empty")
	}
	if strings.TrimSpace(redirectURL) == "" {
		return nil, errors.New("google: redirect URL must not be empty")
	}
	c := &OAuthClient{
		clientID:    clientID,
		redirectURL: redirectURL,
		authURL:     defaultAuthURL,
		tokenURL:    defaultTokenURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		secrets:     secrets,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AuthCodeURL builds the consent-screen URL carrying the given state token.
// access_type=offline asks Google for a refresh token alongside the access
// token; the bridge stores but does not use it.
func (c *OAuthClient) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURL},
		"response_type": {"code"},
		"scope":         {calendarScope},
		"state":         {state},
		"access_type":   {"offline"},
	}
	return c.authURL + "?" + params.Encode()
}

func (c *OAuthClient) resolveClientSecret(ctx context.Context) (string, error) {
	c.secretOnce.Do(func() {
		c.clientSecret, c.secretErr = c.secrets.GetSecret(ctx, c.paramPrefix+"/google-client-secret", secretField)
	})
	return c.clientSecret, c.secretErr
}

// Exchange redeems an authorization code for a credential bundle. The code is
// single-use upstream, so the exchange is one-shot with no retry. The
// provider's JSON reply is kept verbatim in the bundle payload.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (domain.CredentialBundle, error) {
	if code == "" {
		return domain.CredentialBundle{}, errors.New("google: authorization code must not be empty")
	}

	clientSecret, err := c.resolveClientSecret(ctx)
	if err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("google: resolve client secret: %w", err)
	}

	form := url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {clientSecret},
		"redirect_uri":  {c.redirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("google: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("google: token exchange: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("google: read token response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return domain.CredentialBundle{}, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        c.tokenURL,
			Body:       string(raw),
		}
	}

	var payload tokenResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("google: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return domain.CredentialBundle{}, errors.New("google: no access_token in token response")
	}

	return domain.CredentialBundle{
		AccessToken: payload.AccessToken,
		Payload:     string(raw),
	}, nil
}
