package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/httpclient"
	"github.com/kristianakila/restbek2/wheel"
)

// TelegramNotifier implements wheel.Notifier over the Telegram Bot API.
// Each tenant carries its own bot token; the notifier only knows the API
// endpoint.
type TelegramNotifier struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier backed by the given HTTP client.
// The client's base URL should point at the Bot API host.
func NewTelegramNotifier(client *httpclient.Client, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		client: client,
		logger: logger.With().Str("component", "telegram_notifier").Logger(),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send delivers one chat message to the user via the tenant's bot.
func (n *TelegramNotifier) Send(ctx context.Context, tenant *wheel.TenantConfig, userID, message string) error {
	if tenant.BotToken == "" {
		return errors.New(errors.ErrConfigError, "tenant has no bot token")
	}

	var resp telegramResponse
	path := fmt.Sprintf("/bot%s/sendMessage", tenant.BotToken)
	if err := n.client.PostJSON(ctx, path, sendMessageRequest{ChatID: userID, Text: message}, nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram sendMessage rejected: %s", resp.Description)
	}

	n.logger.Debug().
		Str("tenant_id", tenant.TenantID).
		Str("user_id", userID).
		Msg("Notification sent")
	return nil
}
