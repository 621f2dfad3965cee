package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/daybookapp/daybook-server/internal/domain"
	"github.com/daybookapp/daybook-server/internal/store"
)

// photoColumns is the ordered list of columns selected in photo queries.
// Must match the scan order in scanPhoto.
const photoColumns = `id, entry_id, file_name, blur_hash, created_at`

// scanPhoto scans a sql.Row (or sql.Rows via its Scan method) into a domain.Photo.
func scanPhoto(scanner interface{ Scan(dest ...any) error }) (*domain.Photo, error) {
	var p domain.Photo

	var (
		blurHash  sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&p.ID,
		&p.EntryID,
		&p.FileName,
		&blurHash,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if blurHash.Valid {
		p.BlurHash = blurHash.String
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// AddPhotos appends photos to an entry and bumps its updated_at, in one
// transaction. The entry must belong to the given owner.
// Returns store.ErrNotFound if the entry does not exist or belongs to someone else.
func (s *Store) AddPhotos(ctx context.Context, ownerID, entryID string, photos []domain.Photo, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Ownership check doubles as the existence check.
	result, err := tx.ExecContext(ctx,
		`UPDATE entries SET updated_at = ? WHERE id = ? AND owner_id = ?`,
		formatTime(updatedAt), entryID, ownerID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	for _, photo := range photos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO photos (id, entry_id, file_name, blur_hash, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			photo.ID,
			entryID,
			photo.FileName,
			nullString(photo.BlurHash),
			formatTime(photo.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert photo %s: %w", photo.ID, err)
		}
	}

	return tx.Commit()
}

// GetPhoto retrieves a photo by ID, scoped to the owner of its entry.
// Returns store.ErrNotFound if the photo does not exist or the entry
// belongs to someone else.
func (s *Store) GetPhoto(ctx context.Context, ownerID, photoID string) (*domain.Photo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.entry_id, p.file_name, p.blur_hash, p.created_at
		FROM photos p
		JOIN entries e ON e.id = p.entry_id
		WHERE p.id = ? AND e.owner_id = ?`, photoID, ownerID)

	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePhoto removes a photo row, scoped to the owner of its entry.
// Returns store.ErrNotFound if the photo does not exist or the entry
// belongs to someone else.
func (s *Store) DeletePhoto(ctx context.Context, ownerID, photoID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM photos WHERE id = ? AND entry_id IN (
			SELECT id FROM entries WHERE owner_id = ?
		)`, photoID, ownerID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
