package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"calendar-bridge/internal/domain"
)

const (
	cmdHello    = "/hello"
	cmdLogin    = "/login"
	cmdCalendar = "/calendar"
)

const (
	helloReply = "Hello! I am your calendar assistant. Use /login to connect your Google Calendar."
	helpReply  = "Commands:\n/hello - say hi\n/login - connect your Google Calendar\n/calendar - list your calendars"

	restartPrompt = "I could not identify this chat. Please restart the conversation and try again."
	authPrompt    = "You are not logged in yet. Use /login to connect your Google Calendar first."
	reauthPrompt  = "Your Google authorization is no longer valid. Use /login to connect again."
	retryPrompt   = "Fetching your calendars failed. Use /login and try again."

	loginPrompt           = "Tap the button or open the link to connect your Google Calendar:"
	loginUnavailableReply = "Login is temporarily unavailable. Please try again in a moment."
)

// ConnectedReply is sent to the originating chat once its credential bundle
// has been stored.
const ConnectedReply = "Your Google Calendar is connected. Use /calendar to list your calendars."

// Session is the transport-independent view of one inbound chat message: a
// stable chat identifier and a way to reply to it.
type Session interface {
	ChatID() string
	Reply(ctx context.Context, text string, opts domain.ReplyOptions) error
}

// BotStore is the store surface the command pipeline needs.
type BotStore interface {
	PutCorrelation(ctx context.Context, state, chatID string) error
	GetCredential(ctx context.Context, chatID string) (domain.CredentialBundle, bool, error)
	DeleteCredential(ctx context.Context, chatID string) error
}

type AuthURLBuilder interface {
	AuthCodeURL(state string) string
}

type CalendarLister interface {
	ListCalendars(ctx context.Context, accessToken string) ([]domain.CalendarEntry, error)
}

// Bot dispatches inbound commands: /hello, /login, /calendar. Everything
// except /hello passes the authentication gate first.
type Bot struct {
	store    BotStore
	oauth    AuthURLBuilder
	calendar CalendarLister
}

func NewBot(store BotStore, oauth AuthURLBuilder, calendar CalendarLister) (*Bot, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if oauth == nil {
		return nil, errors.New("usecase: auth URL builder must not be nil")
	}
	if calendar == nil {
		return nil, errors.New("usecase: calendar lister must not be nil")
	}
	return &Bot{store: store, oauth: oauth, calendar: calendar}, nil
}

// HandleCommand runs one inbound chat message through the gate and the
// matching command. Failures that already produced a user-facing reply are
// still returned so the edge can log them.
func (b *Bot) HandleCommand(ctx context.Context, sess Session, text string) error {
	cmd := parseCommand(text)

	if cmd == cmdHello {
		return sess.Reply(ctx, helloReply, domain.ReplyOptions{})
	}

	chatID := sess.ChatID()
	if chatID == "" {
		_ = sess.Reply(ctx, restartPrompt, domain.ReplyOptions{})
		return newError(ErrorInvalidInput, "missing_chat_identifier", nil)
	}

	if cmd == cmdLogin {
		return b.login(ctx, sess)
	}

	cred, ok, err := b.store.GetCredential(ctx, chatID)
	if err != nil {
		return newError(ErrorStoreUnavailable, "credential_read_error", err)
	}
	if !ok {
		return sess.Reply(ctx, authPrompt, domain.ReplyOptions{})
	}

	if cmd == cmdCalendar {
		return b.listCalendars(ctx, sess, cred)
	}
	return sess.Reply(ctx, helpReply, domain.ReplyOptions{})
}

// login generates a fresh one-time state token, records which chat it belongs
// to, and hands the user the provider consent URL. Prior pending tokens for
// the same chat stay valid until they are used or expire.
func (b *Bot) login(ctx context.Context, sess Session) error {
	state := newState()
	if err := b.store.PutCorrelation(ctx, state, sess.ChatID()); err != nil {
		_ = sess.Reply(ctx, loginUnavailableReply, domain.ReplyOptions{})
		return newError(ErrorStoreUnavailable, "correlation_write_error", err)
	}

	authURL := b.oauth.AuthCodeURL(state)
	return sess.Reply(ctx, loginPrompt+"\n"+authURL, domain.ReplyOptions{
		LinkButton: &domain.LinkButton{Label: "Connect Google Calendar", URL: authURL},
	})
}

// listCalendars queries the downstream calendar list with the stored token.
// Any failure invalidates the credential: a 401 means the token was rejected,
// and everything else is treated the same because a transient error cannot be
// told apart from a permanently bad token cheaply.
func (b *Bot) listCalendars(ctx context.Context, sess Session, cred domain.CredentialBundle) error {
	entries, err := b.calendar.ListCalendars(ctx, cred.AccessToken)
	if err != nil {
		if delErr := b.store.DeleteCredential(ctx, sess.ChatID()); delErr != nil {
			return newError(ErrorStoreUnavailable, "credential_delete_error", delErr)
		}
		if status, ok := upstreamStatusCode(err); ok && status == http.StatusUnauthorized {
			if replyErr := sess.Reply(ctx, reauthPrompt, domain.ReplyOptions{}); replyErr != nil {
				return replyErr
			}
			return newError(ErrorUnauthorizedResource, "calendar_unauthorized", err)
		}
		if replyErr := sess.Reply(ctx, retryPrompt, domain.ReplyOptions{}); replyErr != nil {
			return replyErr
		}
		return newError(ErrorTransientQuery, "calendar_query_error", err)
	}

	return sess.Reply(ctx, formatCalendarList(entries), domain.ReplyOptions{})
}

// parseCommand extracts the leading command token, dropping any @BotName
// mention suffix Telegram appends in group chats.
func parseCommand(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

var newState = uuid.NewString
