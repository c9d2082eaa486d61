package usecase

import (
	"context"
	"errors"

	"calendar-bridge/internal/domain"
)

// CallbackStore is the store surface callback resolution needs.
type CallbackStore interface {
	TakeCorrelation(ctx context.Context, state string) (chatID string, ok bool, err error)
	PutCredential(ctx context.Context, chatID string, cred domain.CredentialBundle) error
}

type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (domain.CredentialBundle, error)
}

// CallbackService resolves the provider's OAuth redirect back to the chat
// that initiated it.
type CallbackService struct {
	store CallbackStore
	oauth CodeExchanger
}

func NewCallbackService(store CallbackStore, oauth CodeExchanger) (*CallbackService, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if oauth == nil {
		return nil, errors.New("usecase: exchanger must not be nil")
	}
	return &CallbackService{store: store, oauth: oauth}, nil
}

// Resolve validates an inbound redirect, consumes its state token, exchanges
// the code, and persists the credential bundle for the resolved chat. The
// correlation entry is consumed before the exchange, so a replayed or raced
// callback with the same state fails with ErrorInvalidState and never reaches
// the token endpoint. Returns the resolved chat ID on success.
func (s *CallbackService) Resolve(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		return "", newError(ErrorMissingParameter, "missing_code_or_state", nil)
	}

	chatID, ok, err := s.store.TakeCorrelation(ctx, state)
	if err != nil {
		return "", newError(ErrorStoreUnavailable, "correlation_take_error", err)
	}
	if !ok {
		return "", newError(ErrorInvalidState, "unknown_or_expired_state", nil)
	}

	cred, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", newError(ErrorTokenExchange, "token_exchange_error", err)
	}

	if err := s.store.PutCredential(ctx, chatID, cred); err != nil {
		return "", newError(ErrorStoreUnavailable, "credential_write_error", err)
	}
	return chatID, nil
}
