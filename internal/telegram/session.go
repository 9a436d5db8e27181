package telegram

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"

	"github.com/ikramov/sitebot/internal/config"
)

// SessionPath returns the sqlite database file backing the user-identity
// session. The bot identity never touches this file.
func SessionPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, cfg.UserSessionName+".db")
}

// ConvertSession converts raw gotd session data into the storage row
// gotgproto expects, so a session obtained through QR login can seed the
// same database the Reader uses.
func ConvertSession(data *session.Data) (*storage.Session, error) {
	if data == nil {
		return nil, fmt.Errorf("session data is nil")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}

	return &storage.Session{
		Version: storage.LatestVersion,
		Data:    raw,
	}, nil
}
