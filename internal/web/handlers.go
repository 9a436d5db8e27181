package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/ikramov/sitebot/internal/logger"
	"github.com/ikramov/sitebot/internal/notifier"
	"github.com/ikramov/sitebot/internal/repository"
)

// Sender is the outbound half of the bot identity the handlers need.
type Sender interface {
	SendContactNotification(ctx context.Context, name, email, subject, message string) bool
	SendToUser(ctx context.Context, userID int64, text string) bool
	SetWebhook(ctx context.Context) bool
	WebhookInfo(ctx context.Context) *notifier.WebhookInfo
}

// ContactStore persists contact form submissions.
type ContactStore interface {
	Create(ctx context.Context, msg *repository.ContactMessage) error
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// Handler handles HTTP requests for the site backend.
type Handler struct {
	sender Sender
	store  ContactStore
	log    *logger.Logger
}

// NewHandler creates a handler with the given collaborators. store may be
// nil; persistence is then skipped (notifications still go out).
func NewHandler(sender Sender, store ContactStore) *Handler {
	return &Handler{
		sender: sender,
		store:  store,
		log:    logger.Get(),
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WebhookUpdate handles POST /bot/update/, the data-plane webhook receiver.
// Commands get canned replies, anything else an echo. The response is 200
// whenever the envelope parsed, even if the reply send failed; Telegram
// retries the update otherwise.
func (h *Handler) WebhookUpdate(w http.ResponseWriter, r *http.Request) {
	var update models.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.log.Error().Err(err).Msg("web: invalid webhook payload")
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Invalid JSON",
		})
		return
	}

	if update.Message != nil {
		chatID := update.Message.Chat.ID
		text := update.Message.Text

		userName := "Unknown"
		if update.Message.From != nil && update.Message.From.FirstName != "" {
			userName = update.Message.From.FirstName
		}

		reply := commandReply(text, userName)
		if !h.sender.SendToUser(r.Context(), chatID, reply) {
			h.log.Warn().Int64("chat_id", chatID).Msg("web: webhook reply not delivered")
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// commandReply maps an incoming message text to the canned response.
func commandReply(text, userName string) string {
	switch {
	case strings.HasPrefix(text, "/start"):
		return "Hello " + userName + "! This is the ikramov.uz website bot. I'm here to notify you about contact form submissions."
	case strings.HasPrefix(text, "/help"):
		return "Available commands:\n/start - Start the bot\n/help - Show this help message\n/status - Check bot status"
	case strings.HasPrefix(text, "/status"):
		return "Bot is running and ready to receive contact form notifications!"
	default:
		return "Hi " + userName + "! I received your message: '" + text + "'"
	}
}

// ContactForm handles POST /contact/, the AJAX submission endpoint.
func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	req, err := parseContactRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, contactResponse{Success: false, Message: capitalizeError(err)})
		return
	}

	success, message := h.processContact(r.Context(), req)
	respondJSON(w, http.StatusOK, contactResponse{Success: success, Message: message})
}

type contactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// parseContactRequest accepts both form-encoded and JSON bodies and
// validates the result.
func parseContactRequest(r *http.Request) (*ContactRequest, error) {
	var req ContactRequest

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, ErrMissingFields
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, ErrMissingFields
		}
		req = ContactRequest{
			Name:    r.PostFormValue("name"),
			Email:   r.PostFormValue("email"),
			Subject: r.PostFormValue("subject"),
			Message: r.PostFormValue("message"),
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// processContact runs the persist-then-notify pipeline shared by the AJAX
// endpoint and the home page form. Persistence failure is tolerated: the
// notification is attempted regardless.
func (h *Handler) processContact(ctx context.Context, req *ContactRequest) (bool, string) {
	var stored *repository.ContactMessage
	if h.store != nil {
		msg := &repository.ContactMessage{
			Name:    req.Name,
			Email:   req.Email,
			Subject: req.Subject,
			Message: req.Message,
		}
		if err := h.store.Create(ctx, msg); err != nil {
			h.log.Error().Err(err).Msg("web: failed to persist contact message")
		} else {
			stored = msg
			h.log.Info().Str("id", msg.ID.String()).Msg("web: contact message saved")
		}
	}

	sent := h.sender.SendContactNotification(ctx, req.Name, req.Email, req.Subject, req.Message)
	if !sent {
		h.log.Warn().Msg("web: contact notification not delivered")
		return false, "Message received but could not send notification. Please try contacting via Telegram directly."
	}

	if stored != nil && h.store != nil {
		if err := h.store.MarkSent(ctx, stored.ID); err != nil {
			h.log.Error().Err(err).Msg("web: failed to mark contact message sent")
		}
	}

	return true, "Your message has been sent successfully! I will get back to you soon."
}

// Home handles GET and POST /, the page with the embedded contact form.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := homeData{Title: "Home"}

	if r.Method == http.MethodPost {
		req, err := parseContactRequest(r)
		if err != nil {
			data.Flash = capitalizeError(err)
			data.FlashKind = "error"
		} else {
			ok, message := h.processContact(r.Context(), req)
			data.Flash = message
			if ok {
				data.FlashKind = "success"
			} else {
				data.FlashKind = "warning"
			}
		}
	}

	renderHTML(w, homeTemplate, data)
}

// WebhookStatus handles GET /bot/webhook/, the admin status page.
func (h *Handler) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	data := webhookData{Title: "Webhook status"}
	if info := h.sender.WebhookInfo(r.Context()); info != nil {
		data.Info = info
	}
	renderHTML(w, webhookTemplate, data)
}

// WebhookRegister handles POST /bot/webhook/, the admin control action that
// (re)registers the webhook. Split from the update receiver on purpose.
func (h *Handler) WebhookRegister(w http.ResponseWriter, r *http.Request) {
	ok := h.sender.SetWebhook(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]any{"registered": ok})
}

// helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func capitalizeError(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
