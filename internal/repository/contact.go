// Package repository provides persistence for contact form submissions.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactMessage is a persisted contact form submission.
type ContactMessage struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Email          string    `gorm:"not null" json:"email"`
	Subject        string    `gorm:"not null" json:"subject"`
	Message        string    `gorm:"not null" json:"message"`
	SentToTelegram bool      `gorm:"default:false" json:"sent_to_telegram"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate assigns an id when the caller did not.
func (m *ContactMessage) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ContactMessagesRepository stores contact messages via GORM.
type ContactMessagesRepository struct {
	db *gorm.DB
}

// NewContactMessagesRepository creates a repository backed by the given DB.
func NewContactMessagesRepository(db *gorm.DB) *ContactMessagesRepository {
	return &ContactMessagesRepository{db: db}
}

// Create persists a new contact message.
func (r *ContactMessagesRepository) Create(ctx context.Context, msg *ContactMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("create contact message: %w", err)
	}
	return nil
}

// MarkSent flags a message as relayed to Telegram.
func (r *ContactMessagesRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&ContactMessage{}).
		Where("id = ?", id).
		Update("sent_to_telegram", true).Error
	if err != nil {
		return fmt.Errorf("mark contact message sent: %w", err)
	}
	return nil
}

// Recent returns the latest submissions, newest first.
func (r *ContactMessagesRepository) Recent(ctx context.Context, limit int) ([]ContactMessage, error) {
	var out []ContactMessage
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return out, nil
}
