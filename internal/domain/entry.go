// Package domain contains the core types of the Daybook server.
package domain

import (
	"strings"
	"time"
)

// Entry represents a single diary entry owned by a user.
type Entry struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Photos     []Photo   `json:"photos"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entry.
func (e *Entry) InitTimestamps() {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the entry changes. CreatedAt never moves.
func (e *Entry) Touch() {
	e.UpdatedAt = time.Now()
}

// Matches reports whether the entry matches a case-insensitive
// substring search over title and content.
func (e *Entry) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(e.Title), term) ||
		strings.Contains(strings.ToLower(e.Content), term)
}

// Photo represents an image attached to a diary entry.
// FileName is the stored name under the uploads directory,
// not the name the client uploaded.
type Photo struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entry_id"`
	FileName  string    `json:"file_name"`
	BlurHash  string    `json:"blur_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// URLPath returns the server path the photo is served from.
func (p *Photo) URLPath() string {
	return "/uploads/" + p.FileName
}
