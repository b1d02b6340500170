package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/httpclient"
	"github.com/kristianakila/restbek2/wheel"
)

// TelegramSubscriptionChecker implements wheel.SubscriptionChecker via the
// Bot API getChatMember call against the tenant's configured channel.
type TelegramSubscriptionChecker struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewTelegramSubscriptionChecker creates a subscription checker backed by
// the given HTTP client.
func NewTelegramSubscriptionChecker(client *httpclient.Client, logger zerolog.Logger) *TelegramSubscriptionChecker {
	return &TelegramSubscriptionChecker{
		client: client,
		logger: logger.With().Str("component", "subscription_checker").Logger(),
	}
}

type chatMemberResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

// IsSubscribed reports whether the user is a member of the tenant's
// subscription channel.
func (c *TelegramSubscriptionChecker) IsSubscribed(ctx context.Context, tenant *wheel.TenantConfig, userID string) (bool, error) {
	if tenant.BotToken == "" || tenant.SubscriptionChatID == "" {
		return false, errors.New(errors.ErrConfigError, "tenant subscription check is not configured")
	}

	var resp chatMemberResponse
	path := fmt.Sprintf("/bot%s/getChatMember?chat_id=%s&user_id=%s", tenant.BotToken, tenant.SubscriptionChatID, userID)
	if err := c.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return false, err
	}
	if !resp.OK {
		return false, fmt.Errorf("telegram getChatMember rejected")
	}

	switch resp.Result.Status {
	case "member", "administrator", "creator":
		return true, nil
	default:
		return false, nil
	}
}
