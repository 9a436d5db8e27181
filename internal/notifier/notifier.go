// Package notifier owns the bot-identity Telegram connection. It sends
// outbound notifications and replies, and manages webhook registration.
// Every operation fails soft: configuration gaps and API failures are
// logged and surface as false/nil results, never as panics or raw errors.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-telegram/bot"

	"github.com/ikramov/sitebot/internal/config"
	"github.com/ikramov/sitebot/internal/logger"
)

// WebhookInfo is the normalized webhook registration state.
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pending_update_count"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Notifier wraps a lazily created Bot API client. Unlike the user-identity
// session, the bot connection is stateless HTTP and is reused for the whole
// process lifetime.
type Notifier struct {
	cfg  *config.Config
	log  *logger.Logger
	opts []bot.Option

	mu  sync.Mutex
	bot *bot.Bot
}

// New creates a Notifier. Extra bot options are mainly for tests
// (pointing the client at a fake API server).
func New(cfg *config.Config, opts ...bot.Option) *Notifier {
	return &Notifier{
		cfg:  cfg,
		log:  logger.Get(),
		opts: opts,
	}
}

// client returns the Bot API client, creating it on first use.
func (n *Notifier) client() (*bot.Bot, error) {
	if n.cfg.BotToken == "" {
		return nil, errors.New("bot token not configured")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bot != nil {
		return n.bot, nil
	}

	options := append([]bot.Option{bot.WithSkipGetMe()}, n.opts...)
	b, err := bot.New(n.cfg.BotToken, options...)
	if err != nil {
		return nil, fmt.Errorf("create bot client: %w", err)
	}
	n.bot = b
	return b, nil
}

// SendToAdmin sends a rich-text message to the configured admin chat.
// The admin must have started a conversation with the bot at least once,
// otherwise the API reports "chat not found".
func (n *Notifier) SendToAdmin(ctx context.Context, text string) bool {
	adminID, err := n.cfg.AdminChatID()
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: cannot send to admin")
		return false
	}

	b, err := n.client()
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: cannot send to admin")
		return false
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    adminID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		n.log.Error().Err(err).Int64("admin_id", adminID).Msg("notifier: send to admin failed")
		return false
	}

	n.log.Info().Int64("admin_id", adminID).Msg("notifier: message sent to admin")
	return true
}

// SendContactNotification formats a contact form submission and relays it to
// the admin. All interpolated fields are escaped for Telegram HTML markup.
func (n *Notifier) SendContactNotification(ctx context.Context, name, email, subject, message string) bool {
	body := fmt.Sprintf(contactTemplate,
		escapeHTML(name),
		escapeHTML(email),
		escapeHTML(subject),
		escapeHTML(message),
	)
	return n.SendToAdmin(ctx, body)
}

const contactTemplate = `🔔 <b>New Contact Form Submission</b>

👤 Name: %s
📧 Email: %s
📝 Subject: %s

💬 Message:
%s

---
Sent from ikramov.uz website`

// SendToUser sends a plain text message to an arbitrary chat. Used for
// webhook auto-replies.
func (n *Notifier) SendToUser(ctx context.Context, userID int64, text string) bool {
	b, err := n.client()
	if err != nil {
		n.log.Error().Err(err).Int64("user_id", userID).Msg("notifier: cannot send to user")
		return false
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   text,
	})
	if err != nil {
		n.log.Error().Err(err).Int64("user_id", userID).Msg("notifier: send to user failed")
		return false
	}

	n.log.Info().Int64("user_id", userID).Msg("notifier: message sent to user")
	return true
}

// SetWebhook registers the configured webhook URL. Idempotent: registering
// the same URL again succeeds.
func (n *Notifier) SetWebhook(ctx context.Context) bool {
	if n.cfg.WebhookURL == "" {
		n.log.Error().Msg("notifier: webhook url not configured")
		return false
	}

	b, err := n.client()
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: cannot set webhook")
		return false
	}

	ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{URL: n.cfg.WebhookURL})
	if err != nil || !ok {
		n.log.Error().Err(err).Str("url", n.cfg.WebhookURL).Msg("notifier: set webhook failed")
		return false
	}

	n.log.Info().Str("url", n.cfg.WebhookURL).Msg("notifier: webhook set")
	return true
}

// DeleteWebhook removes the webhook registration (for switching to polling).
func (n *Notifier) DeleteWebhook(ctx context.Context) bool {
	b, err := n.client()
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: cannot delete webhook")
		return false
	}

	ok, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{})
	if err != nil || !ok {
		n.log.Error().Err(err).Msg("notifier: delete webhook failed")
		return false
	}

	n.log.Info().Msg("notifier: webhook deleted")
	return true
}

// WebhookInfo returns the current webhook registration, or nil on failure.
func (n *Notifier) WebhookInfo(ctx context.Context) *WebhookInfo {
	b, err := n.client()
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: cannot get webhook info")
		return nil
	}

	info, err := b.GetWebhookInfo(ctx)
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: get webhook info failed")
		return nil
	}

	return &WebhookInfo{
		URL:                info.URL,
		PendingUpdateCount: info.PendingUpdateCount,
		LastErrorMessage:   info.LastErrorMessage,
	}
}

// htmlEscaper covers the characters Telegram's HTML parse mode requires
// escaping: &, < and >.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
