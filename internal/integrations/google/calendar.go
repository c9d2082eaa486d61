package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"calendar-bridge/internal/domain"
)

const defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// calendarListResponse is the minimal shape of the calendarList endpoint reply.
type calendarListResponse struct {
	Items []domain.CalendarEntry `json:"items"`
}

// CalendarClient reads the calendar list of an authorized account.
type CalendarClient struct {
	baseURL    string
	httpClient *http.Client
}

type CalendarOption func(*CalendarClient)

func WithCalendarBaseURL(u string) CalendarOption {
	return func(c *CalendarClient) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/")
	}
}

func WithCalendarHTTPClient(httpClient *http.Client) CalendarOption {
	return func(c *CalendarClient) {
		c.httpClient = httpClient
	}
}

// NewCalendarClient creates a CalendarClient against the Google Calendar v3 API.
func NewCalendarClient(opts ...CalendarOption) *CalendarClient {
	c := &CalendarClient{
		baseURL:    defaultCalendarBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCalendars fetches the account's calendar list with the given bearer
// token. A 401 surfaces as *HTTPStatusError so the caller can tell a rejected
// credential apart from other failures.
func (c *CalendarClient) ListCalendars(ctx context.Context, accessToken string) ([]domain.CalendarEntry, error) {
	if accessToken == "" {
		return nil, errors.New("google: access token must not be empty")
	}

	url := c.baseURL + "/users/me/calendarList"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("google: create calendar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Cache-Control", "no-cache")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: list calendars: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(raw),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("google: read calendar response: %w", err)
	}

	var payload calendarListResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("google: decode calendar response: %w", err)
	}
	return payload.Items, nil
}
