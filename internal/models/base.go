// Package models defines the budget entities and their invariants.
//
// These are plain values: they carry no persistence tags. The repository
// package owns the storage encoding and round-trips every field defined here.
package models

import (
	"time"

	"envelope/internal/uuid"
)

// Base contains the identity and audit columns shared by all entities.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnsureID assigns a UUIDv7 if the entity has no id yet and stamps the
// creation and update times.
func (b *Base) EnsureID(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Touch updates the modification time.
func (b *Base) Touch(now time.Time) {
	b.UpdatedAt = now
}
