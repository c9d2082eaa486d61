package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"calendar-bridge/handler"
	"calendar-bridge/internal/integrations/google"
	"calendar-bridge/internal/integrations/paramstore"
	"calendar-bridge/internal/integrations/telegram"
	"calendar-bridge/internal/repository"
	"calendar-bridge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("BRIDGE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	clientID := mustEnv("GOOGLE_CLIENT_ID")
	redirectURL := mustEnv("OAUTH_REDIRECT_URL")
	webhookPath := envStr("WEBHOOK_PATH", "/telegram/webhook")
	callbackPath := envStr("OAUTH_CALLBACK_PATH", "/oauth/callback")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	secrets, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), tableName)
	if err != nil {
		slog.Error("failed to create store client", "err", err)
		os.Exit(1)
	}
	messenger, err := telegram.NewClient(secrets, paramPrefix)
	if err != nil {
		slog.Error("failed to create Telegram client", "err", err)
		os.Exit(1)
	}
	oauthClient, err := google.NewOAuthClient(secrets, paramPrefix, clientID, redirectURL)
	if err != nil {
		slog.Error("failed to create OAuth client", "err", err)
		os.Exit(1)
	}
	calendarClient := google.NewCalendarClient()

	// ---- Handler ----
	bot, err := usecase.NewBot(store, oauthClient, calendarClient)
	if err != nil {
		slog.Error("failed to create bot service", "err", err)
		os.Exit(1)
	}
	callback, err := usecase.NewCallbackService(store, oauthClient)
	if err != nil {
		slog.Error("failed to create callback service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(bot, callback, messenger, handler.Config{
		WebhookPath:  webhookPath,
		CallbackPath: callbackPath,
	})
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
