package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikramov/sitebot/internal/notifier"
	"github.com/ikramov/sitebot/internal/repository"
)

type mockSender struct {
	notifications []string
	userMessages  map[int64][]string
	failSend      bool
	webhookOK     bool
	info          *notifier.WebhookInfo
}

func newMockSender() *mockSender {
	return &mockSender{userMessages: make(map[int64][]string), webhookOK: true}
}

func (m *mockSender) SendContactNotification(_ context.Context, name, email, subject, message string) bool {
	if m.failSend {
		return false
	}
	m.notifications = append(m.notifications, strings.Join([]string{name, email, subject, message}, "|"))
	return true
}

func (m *mockSender) SendToUser(_ context.Context, userID int64, text string) bool {
	if m.failSend {
		return false
	}
	m.userMessages[userID] = append(m.userMessages[userID], text)
	return true
}

func (m *mockSender) SetWebhook(_ context.Context) bool { return m.webhookOK }

func (m *mockSender) WebhookInfo(_ context.Context) *notifier.WebhookInfo { return m.info }

type mockStore struct {
	created  []*repository.ContactMessage
	sent     []uuid.UUID
	failNext bool
}

func (m *mockStore) Create(_ context.Context, msg *repository.ContactMessage) error {
	if m.failNext {
		return errors.New("database gone")
	}
	msg.ID = uuid.New()
	m.created = append(m.created, msg)
	return nil
}

func (m *mockStore) MarkSent(_ context.Context, id uuid.UUID) error {
	m.sent = append(m.sent, id)
	return nil
}

func newTestRouter(sender Sender, store ContactStore) http.Handler {
	return NewRouter(NewHandler(sender, store))
}

func postJSON(t *testing.T, router http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newMockSender(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContactForm(t *testing.T) {
	t.Run("valid json submission", func(t *testing.T) {
		sender := newMockSender()
		store := &mockStore{}
		router := newTestRouter(sender, store)

		rec := postJSON(t, router, "/contact/",
			`{"name":"John","email":"john@example.com","subject":"Hi","message":"Hello"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp contactResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Success)

		require.Len(t, sender.notifications, 1)
		assert.Equal(t, "John|john@example.com|Hi|Hello", sender.notifications[0])

		require.Len(t, store.created, 1)
		assert.Equal(t, "John", store.created[0].Name)
		require.Len(t, store.sent, 1)
		assert.Equal(t, store.created[0].ID, store.sent[0])
	})

	t.Run("form encoded submission", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		form := url.Values{}
		form.Set("name", "Jane")
		form.Set("email", "jane@example.com")
		form.Set("subject", "Question")
		form.Set("message", "How are you?")

		req := httptest.NewRequest(http.MethodPost, "/contact/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, sender.notifications, 1)
		assert.Contains(t, sender.notifications[0], "jane@example.com")
	})

	t.Run("missing fields rejected without notification", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/contact/",
			`{"name":"","email":"john@example.com","subject":"Hi","message":"Hello"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, sender.notifications)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/contact/",
			`{"name":"John","email":"not-an-email","subject":"Hi","message":"Hello"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp contactResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Empty(t, sender.notifications)
	})

	t.Run("bad json rejected", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/contact/", `not json at all`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("notification failure softens the response", func(t *testing.T) {
		sender := newMockSender()
		sender.failSend = true
		store := &mockStore{}
		router := newTestRouter(sender, store)

		rec := postJSON(t, router, "/contact/",
			`{"name":"John","email":"john@example.com","subject":"Hi","message":"Hello"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp contactResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Message, "could not send notification")

		// persisted, but never marked sent
		require.Len(t, store.created, 1)
		assert.Empty(t, store.sent)
	})

	t.Run("database failure does not block the notification", func(t *testing.T) {
		sender := newMockSender()
		store := &mockStore{failNext: true}
		router := newTestRouter(sender, store)

		rec := postJSON(t, router, "/contact/",
			`{"name":"John","email":"john@example.com","subject":"Hi","message":"Hello"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp contactResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Success)
		require.Len(t, sender.notifications, 1)
	})
}

func TestWebhookUpdate(t *testing.T) {
	updateJSON := func(chatID int64, firstName, text string) string {
		update := map[string]any{
			"update_id": 1,
			"message": map[string]any{
				"message_id": 10,
				"date":       1700000000,
				"chat":       map[string]any{"id": chatID, "type": "private"},
				"from":       map[string]any{"id": chatID, "first_name": firstName},
				"text":       text,
			},
		}
		b, _ := json.Marshal(update)
		return string(b)
	}

	t.Run("start command greets by name", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/bot/update/", updateJSON(42, "Aziz", "/start"))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, sender.userMessages[42], 1)
		assert.Contains(t, sender.userMessages[42][0], "Hello Aziz!")
	})

	t.Run("help command lists commands", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		postJSON(t, router, "/bot/update/", updateJSON(42, "Aziz", "/help"))

		require.Len(t, sender.userMessages[42], 1)
		reply := sender.userMessages[42][0]
		assert.Contains(t, reply, "/start")
		assert.Contains(t, reply, "/help")
		assert.Contains(t, reply, "/status")
	})

	t.Run("status command", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		postJSON(t, router, "/bot/update/", updateJSON(42, "Aziz", "/status"))

		require.Len(t, sender.userMessages[42], 1)
		assert.Contains(t, sender.userMessages[42][0], "running")
	})

	t.Run("plain text is echoed", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		postJSON(t, router, "/bot/update/", updateJSON(42, "Aziz", "good morning"))

		require.Len(t, sender.userMessages[42], 1)
		assert.Contains(t, sender.userMessages[42][0], "good morning")
		assert.Contains(t, sender.userMessages[42][0], "Aziz")
	})

	t.Run("missing sender name falls back", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		body := `{"update_id":1,"message":{"message_id":10,"date":1,"chat":{"id":42,"type":"private"},"text":"/start"}}`
		postJSON(t, router, "/bot/update/", body)

		require.Len(t, sender.userMessages[42], 1)
		assert.Contains(t, sender.userMessages[42][0], "Hello Unknown!")
	})

	t.Run("update without message is acknowledged", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/bot/update/", `{"update_id":2}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, sender.userMessages)
	})

	t.Run("bad json returns 400", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/bot/update/", `{{{`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("send failure still acknowledges the update", func(t *testing.T) {
		sender := newMockSender()
		sender.failSend = true
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/bot/update/", updateJSON(42, "Aziz", "/start"))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestWebhookAdmin(t *testing.T) {
	t.Run("status page shows registration", func(t *testing.T) {
		sender := newMockSender()
		sender.info = &notifier.WebhookInfo{URL: "https://ikramov.uz/bot/update/", PendingUpdateCount: 3}
		router := newTestRouter(sender, nil)

		req := httptest.NewRequest(http.MethodGet, "/bot/webhook/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://ikramov.uz/bot/update/")
	})

	t.Run("register success", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/bot/webhook/", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("register failure maps to 502", func(t *testing.T) {
		sender := newMockSender()
		sender.webhookOK = false
		router := newTestRouter(sender, nil)

		rec := postJSON(t, router, "/bot/webhook/", "")

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHomePage(t *testing.T) {
	t.Run("renders the contact form", func(t *testing.T) {
		router := newTestRouter(newMockSender(), nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="email"`)
	})

	t.Run("post shows success flash", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		form := url.Values{}
		form.Set("name", "John")
		form.Set("email", "john@example.com")
		form.Set("subject", "Hi")
		form.Set("message", "Hello")

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "sent successfully")
		require.Len(t, sender.notifications, 1)
	})

	t.Run("post with invalid data shows error flash", func(t *testing.T) {
		sender := newMockSender()
		router := newTestRouter(sender, nil)

		form := url.Values{}
		form.Set("email", "john@example.com")

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "flash error")
		assert.Empty(t, sender.notifications)
	})
}
