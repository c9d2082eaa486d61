package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"calendar-bridge/internal/domain"
)

// maxMessageLen is the Telegram Bot API limit for one sendMessage text.
const maxMessageLen = 4096

const tokenField = "token"

// sendMessageRequest is the Bot API sendMessage payload. ChatID is the
// decimal string form of the chat ID; the API accepts both shapes.
type sendMessageRequest struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// apiResponse is the Bot API envelope; only the failure fields matter here.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type SecretGetter interface {
	GetSecret(ctx context.Context, name, field string) (string, error)
}

// Client is a focused Telegram Bot API client for outbound messages.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	secrets     SecretGetter
	paramPrefix string

	tokenOnce sync.Once
	botToken  string
	tokenErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given SecretGetter for bot-token
// retrieval. The token is fetched from SSM on the first send and reused for
// the lifetime of the process.
func NewClient(secrets SecretGetter, paramPrefix string, opts ...Option) (*Client, error) {
	if secrets == nil {
		return nil, errors.New("telegram: secret getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("telegram: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.telegram.org",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		secrets:     secrets,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveBotToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		c.botToken, c.tokenErr = c.secrets.GetSecret(ctx, c.paramPrefix+"/telegram-bot-token", tokenField)
	})
	return c.botToken, c.tokenErr
}

// SendMessage delivers text to a chat, splitting it into fixed-size chunks of
// at most 4096 characters sent in order. The slicing is position-based and may
// split a logical line across two messages. A link button, when present, is
// attached to the final chunk only.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, opts domain.ReplyOptions) error {
	if chatID == "" {
		return errors.New("telegram: chat ID must not be empty")
	}
	if text == "" {
		return errors.New("telegram: text must not be empty")
	}

	token, err := c.resolveBotToken(ctx)
	if err != nil {
		return fmt.Errorf("telegram: resolve bot token: %w", err)
	}

	chunks := chunkText(text, maxMessageLen)
	for i, chunk := range chunks {
		req := sendMessageRequest{ChatID: chatID, Text: chunk}
		if i == len(chunks)-1 && opts.LinkButton != nil {
			req.ReplyMarkup = &inlineKeyboard{
				InlineKeyboard: [][]inlineButton{{{Text: opts.LinkButton.Label, URL: opts.LinkButton.URL}}},
			}
		}
		if err := c.post(ctx, token, req); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, token string, payload sendMessageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal request: %w", err)
	}

	url := c.baseURL + "/bot" + token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var api apiResponse
		_ = json.Unmarshal(raw, &api)
		if api.Description != "" {
			return fmt.Errorf("telegram: send message status %d: %s", res.StatusCode, api.Description)
		}
		return fmt.Errorf("telegram: send message status %d", res.StatusCode)
	}
	return nil
}

// chunkText slices s into runs of at most size characters, preserving order.
func chunkText(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
