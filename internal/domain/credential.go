package domain

import "time"

// CredentialBundle is the stored authorization material for one chat. Payload
// keeps the provider's token-endpoint response verbatim; only AccessToken is
// interpreted by the bridge.
type CredentialBundle struct {
	AccessToken string
	Payload     string
	StoredAt    time.Time
}

// CalendarEntry is one item from the provider's calendar list.
type CalendarEntry struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	TimeZone    string `json:"timeZone"`
}
