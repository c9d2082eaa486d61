package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"calendar-bridge/internal/domain"
	"calendar-bridge/internal/usecase"
)

const successPage = `<!DOCTYPE html><html><body style="font-family:system-ui;text-align:center;margin-top:80px">
<h2>Calendar Connected</h2>
<p>Your Google Calendar has been connected. You can close this window and return to the chat.</p>
</body></html>`

type commandService interface {
	HandleCommand(ctx context.Context, sess usecase.Session, text string) error
}

type callbackService interface {
	Resolve(ctx context.Context, code, state string) (chatID string, err error)
}

type messenger interface {
	SendMessage(ctx context.Context, chatID, text string, opts domain.ReplyOptions) error
}

// Config fixes the two inbound routes served by the one Lambda function.
type Config struct {
	WebhookPath  string
	CallbackPath string
}

// Handler maps one API Gateway event to either the Telegram webhook pipeline
// or the OAuth callback pipeline.
type Handler struct {
	bot          commandService
	callback     callbackService
	messenger    messenger
	webhookPath  string
	callbackPath string
}

func NewHandler(bot commandService, callback callbackService, m messenger, cfg Config) (*Handler, error) {
	if bot == nil {
		return nil, errors.New("handler: command service must not be nil")
	}
	if callback == nil {
		return nil, errors.New("handler: callback service must not be nil")
	}
	if m == nil {
		return nil, errors.New("handler: messenger must not be nil")
	}
	if strings.TrimSpace(cfg.WebhookPath) == "" || strings.TrimSpace(cfg.CallbackPath) == "" {
		return nil, errors.New("handler: webhook and callback paths must not be empty")
	}
	return &Handler{
		bot:          bot,
		callback:     callback,
		messenger:    m,
		webhookPath:  cfg.WebhookPath,
		callbackPath: cfg.CallbackPath,
	}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch {
	case req.HTTPMethod == http.MethodPost && req.Path == h.webhookPath:
		return h.handleWebhook(ctx, req), nil
	case req.HTTPMethod == http.MethodGet && req.Path == h.callbackPath:
		return h.handleCallback(ctx, req), nil
	default:
		return textResponse(http.StatusNotFound, "Not found"), nil
	}
}

// handleWebhook processes one Telegram update. It always answers 200:
// command failures become chat replies, and a non-2xx would only make
// Telegram re-deliver the same update.
func (h *Handler) handleWebhook(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var update domain.Update
	if err := json.Unmarshal([]byte(req.Body), &update); err != nil {
		slog.Warn("discarding malformed webhook update", "err", err)
		return textResponse(http.StatusOK, "ok")
	}
	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		return textResponse(http.StatusOK, "ok")
	}

	sess := &chatSession{messenger: h.messenger, chatID: update.Message.Chat.Identifier()}
	if err := h.bot.HandleCommand(ctx, sess, update.Message.Text); err != nil {
		slog.Error("command handling failed", "chatId", sess.chatID, "code", usecase.CodeOf(err), "err", err)
	}
	return textResponse(http.StatusOK, "ok")
}

// handleCallback processes the provider's OAuth redirect. The HTTP response
// reflects resolution and exchange only; the chat notification is best-effort
// and never changes what the redirecting browser sees.
func (h *Handler) handleCallback(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	code := req.QueryStringParameters["code"]
	state := req.QueryStringParameters["state"]

	chatID, err := h.callback.Resolve(ctx, code, state)
	if err != nil {
		switch usecase.CodeOf(err) {
		case usecase.ErrorMissingParameter:
			return textResponse(http.StatusBadRequest, "Missing code or state")
		case usecase.ErrorInvalidState:
			return textResponse(http.StatusBadRequest, "Invalid or expired chat")
		case usecase.ErrorTokenExchange:
			slog.Error("token exchange failed", "err", err)
			return textResponse(http.StatusBadGateway, "Authorization could not be completed. Please run /login again.")
		default:
			slog.Error("callback resolution failed", "err", err)
			return textResponse(http.StatusInternalServerError, "Internal error")
		}
	}

	if err := h.messenger.SendMessage(ctx, chatID, usecase.ConnectedReply, domain.ReplyOptions{}); err != nil {
		slog.Warn("connect notification failed", "chatId", chatID, "err", err)
	}
	return htmlResponse(http.StatusOK, successPage)
}

// chatSession adapts the outbound messenger to the usecase session contract
// for the chat one update came from.
type chatSession struct {
	messenger messenger
	chatID    string
}

func (s *chatSession) ChatID() string {
	return s.chatID
}

func (s *chatSession) Reply(ctx context.Context, text string, opts domain.ReplyOptions) error {
	return s.messenger.SendMessage(ctx, s.chatID, text, opts)
}

func textResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}
}

func htmlResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
		Body:       body,
	}
}
