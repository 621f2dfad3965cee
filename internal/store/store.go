// Package store defines the persistence interface for the Daybook server.
package store

import (
	"context"
	"time"

	"github.com/daybookapp/daybook-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error

	// Auth Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	DeleteAllUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Entries
	CreateEntry(ctx context.Context, entry *domain.Entry) error
	GetEntry(ctx context.Context, ownerID, id string) (*domain.Entry, error)
	ListEntries(ctx context.Context, ownerID string, params PageParams) (*PagedResult[*domain.Entry], error)
	SearchEntries(ctx context.Context, ownerID, term string) ([]*domain.Entry, error)
	ListFavoriteEntries(ctx context.Context, ownerID string) ([]*domain.Entry, error)
	UpdateEntry(ctx context.Context, entry *domain.Entry) error
	SetEntryFavorite(ctx context.Context, ownerID, id string, favorite bool, updatedAt time.Time) error
	DeleteEntry(ctx context.Context, ownerID, id string) error
	ListOwnerPhotoFiles(ctx context.Context, ownerID string) ([]string, error)

	// Photos
	AddPhotos(ctx context.Context, ownerID, entryID string, photos []domain.Photo, updatedAt time.Time) error
	GetPhoto(ctx context.Context, ownerID, photoID string) (*domain.Photo, error)
	DeletePhoto(ctx context.Context, ownerID, photoID string) error
}
