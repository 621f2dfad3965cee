package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/daybookapp/daybook-server/internal/domain"
	"github.com/daybookapp/daybook-server/internal/store"
)

// entryColumns is the ordered list of columns selected in entry queries.
// Must match the scan order in scanEntry.
const entryColumns = `id, owner_id, title, content, is_favorite, created_at, updated_at`

// scanEntry scans a sql.Row (or sql.Rows via its Scan method) into a domain.Entry.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.Entry, error) {
	var e domain.Entry

	var (
		isFavorite int
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&e.ID,
		&e.OwnerID,
		&e.Title,
		&e.Content,
		&isFavorite,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.IsFavorite = isFavorite != 0

	// Parse timestamps.
	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// loadEntryPhotos loads the photos for an entry, oldest first.
func (s *Store) loadEntryPhotos(ctx context.Context, entryID string) ([]domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE entry_id = ? ORDER BY created_at, id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

// CreateEntry inserts a new entry and its photos in one transaction.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (
			id, owner_id, title, content, is_favorite, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OwnerID,
		entry.Title,
		entry.Content,
		boolToInt(entry.IsFavorite),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	for _, photo := range entry.Photos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO photos (id, entry_id, file_name, blur_hash, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			photo.ID,
			entry.ID,
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

// GetEntry retrieves an entry by ID, scoped to its owner, including photos.
// Returns store.ErrNotFound if the entry does not exist or belongs to someone else.
func (s *Store) GetEntry(ctx context.Context, ownerID, id string) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Photos, err = s.loadEntryPhotos(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load entry photos: %w", err)
	}

	return e, nil
}

// queryEntries runs an entry query, scans every row, and loads photos.
func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range entries {
		e.Photos, err = s.loadEntryPhotos(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("load photos for %s: %w", e.ID, err)
		}
	}

	return entries, nil
}

// listEntriesPage runs a count plus a page query for the given WHERE clause.
func (s *Store) listEntriesPage(ctx context.Context, where string, args []any, params store.PageParams) (*store.PagedResult[*domain.Entry], error) {
	params.Validate()

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), params.PageSize, params.Offset())

	entries, err := s.queryEntries(ctx, query, pageArgs...)
	if err != nil {
		return nil, err
	}

	return store.NewPagedResult(entries, params, total), nil
}

// listEntriesAll returns every entry matching the WHERE clause, newest first.
func (s *Store) listEntriesAll(ctx context.Context, where string, args []any) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + where +
		` ORDER BY created_at DESC, id DESC`
	return s.queryEntries(ctx, query, args...)
}

// ListEntries returns one page of a user's entries, newest first.
func (s *Store) ListEntries(ctx context.Context, ownerID string, params store.PageParams) (*store.PagedResult[*domain.Entry], error) {
	return s.listEntriesPage(ctx, `owner_id = ?`, []any{ownerID}, params)
}

// escapeLike escapes LIKE wildcards in a search term so it matches literally.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

// SearchEntries returns all of a user's entries whose title or content
// contains the term, case-insensitively, newest first. Results are not
// paginated. An empty term matches everything.
func (s *Store) SearchEntries(ctx context.Context, ownerID, term string) ([]*domain.Entry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.listEntriesAll(ctx, `owner_id = ?`, []any{ownerID})
	}

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	where := `owner_id = ? AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`
	return s.listEntriesAll(ctx, where, []any{ownerID, pattern, pattern})
}

// ListFavoriteEntries returns all of a user's favorite entries, newest first.
// Results are not paginated.
func (s *Store) ListFavoriteEntries(ctx context.Context, ownerID string) ([]*domain.Entry, error) {
	return s.listEntriesAll(ctx, `owner_id = ? AND is_favorite = 1`, []any{ownerID})
}

// UpdateEntry updates an entry's mutable fields, scoped to its owner.
// CreatedAt and photos are not touched here.
// Returns store.ErrNotFound if the entry does not exist or belongs to someone else.
func (s *Store) UpdateEntry(ctx context.Context, entry *domain.Entry) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries SET
			title = ?,
			content = ?,
			is_favorite = ?,
			updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		entry.Title,
		entry.Content,
		boolToInt(entry.IsFavorite),
		formatTime(entry.UpdatedAt),
		entry.ID,
		entry.OwnerID,
	)
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

// SetEntryFavorite flips the favorite flag on an entry, scoped to its owner.
// Returns store.ErrNotFound if the entry does not exist or belongs to someone else.
func (s *Store) SetEntryFavorite(ctx context.Context, ownerID, id string, favorite bool, updatedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries SET is_favorite = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		boolToInt(favorite),
		formatTime(updatedAt),
		id,
		ownerID,
	)
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

// DeleteEntry performs a hard delete on an entry, scoped to its owner.
// The ON DELETE CASCADE on photos removes the photo rows; callers are
// responsible for cleaning up backing files.
// Returns store.ErrNotFound if the entry does not exist or belongs to someone else.
func (s *Store) DeleteEntry(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
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

// ListOwnerPhotoFiles returns the stored file names of every photo across
// all of a user's entries. Used for file cleanup when an account goes away.
func (s *Store) ListOwnerPhotoFiles(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.file_name FROM photos p
		JOIN entries e ON e.id = p.entry_id
		WHERE e.owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}
