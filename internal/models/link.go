// ===========================================
// Package models - Domain Models
// ===========================================
// Data shapes shared by the handler, service and repository layers.
// The gorm tags drive the SQLite schema; Postgres uses the SQL
// migrations under internal/database/migrations.
// ===========================================

package models

import (
	"time"

	"github.com/google/uuid"
)

// Link maps a short code to its destination together with the policy
// flags that decide whether it may still be resolved.
type Link struct {
	ID           uuid.UUID  `json:"id" gorm:"column:id;type:text;primaryKey"`
	ShortCode    string     `json:"shortCode" gorm:"column:short_code;type:text;uniqueIndex;not null"`
	OriginalURL  string     `json:"originalUrl" gorm:"column:original_url;type:text;not null"`
	IsActive     bool       `json:"isActive" gorm:"column:is_active;not null"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty" gorm:"column:expires_at;index"`
	MaxClicks    *int       `json:"maxClicks,omitempty" gorm:"column:max_clicks"`
	IsOneTime    bool       `json:"isOneTime" gorm:"column:is_one_time;not null"`
	Clicks       int64      `json:"clicks" gorm:"column:clicks;not null;default:0"`
	UserID       *string    `json:"userId,omitempty" gorm:"column:user_id;type:text;index"`
	QRCode       string     `json:"qrCode,omitempty" gorm:"column:qr_code;type:text"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"column:created_at;not null"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"column:updated_at;not null"`
	LastAccessAt *time.Time `json:"lastAccessAt,omitempty" gorm:"column:last_access_at"`
}

// TableName pins the gorm table name.
func (Link) TableName() string { return "links" }

// IsExpired reports whether the link's expiry has passed at now.
// A link without an expiry never expires.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// QuotaExhausted reports whether the click limit has been used up.
func (l *Link) QuotaExhausted() bool {
	return l.MaxClicks != nil && l.Clicks >= int64(*l.MaxClicks)
}

// OwnedBy reports whether userID owns the link. Anonymous links have no owner.
func (l *Link) OwnedBy(userID string) bool {
	return l.UserID != nil && *l.UserID == userID
}

// ConsumeResult is the outcome of the atomic click accounting step.
type ConsumeResult struct {
	// Accepted is false when the conditional update matched no row: the
	// link was deactivated, expired or exhausted by a concurrent request.
	Accepted bool
	// Clicks is the counter value after the increment.
	Clicks int64
	// Deactivated is set when a one-time link was consumed in place.
	Deactivated bool
	// Deleted is set when a one-time link was consumed under the delete policy.
	Deleted bool
}
