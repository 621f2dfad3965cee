package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybookapp/daybook-server/internal/domain"
	domainerrors "github.com/daybookapp/daybook-server/internal/errors"
	"github.com/daybookapp/daybook-server/internal/id"
	"github.com/daybookapp/daybook-server/internal/media/images"
	"github.com/daybookapp/daybook-server/internal/store"
	"github.com/daybookapp/daybook-server/internal/validation"
)

// DiaryService implements the diary entry lifecycle: owner-scoped CRUD,
// favorites, search, and photo attachment management.
type DiaryService struct {
	store     store.Store
	uploads   *images.Storage
	validator *validation.Validator
	logger    *slog.Logger
}

// NewDiaryService creates a new diary service.
func NewDiaryService(
	store store.Store,
	uploads *images.Storage,
	validator *validation.Validator,
	logger *slog.Logger,
) *DiaryService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DiaryService{
		store:     store,
		uploads:   uploads,
		validator: validator,
		logger:    logger,
	}
}

// PhotoUpload carries one uploaded photo through the service layer.
type PhotoUpload struct {
	FileName  string
	MediaType string
	Data      []byte
}

// CreateEntryRequest contains the data for a new diary entry.
type CreateEntryRequest struct {
	Title      string        `json:"title" validate:"required,max=200"`
	Content    string        `json:"content" validate:"required"`
	IsFavorite bool          `json:"is_favorite"`
	Photos     []PhotoUpload `json:"-"`
}

// UpdateEntryRequest contains partial updates for an entry.
// Nil fields are left unchanged.
type UpdateEntryRequest struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content    *string `json:"content" validate:"omitempty,min=1"`
	IsFavorite *bool   `json:"is_favorite"`
}

// SkippedUpload records a photo that was rejected during AddPhotos.
type SkippedUpload struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// AddPhotosResult reports which uploads were stored and which were skipped.
type AddPhotosResult struct {
	Added   []domain.Photo  `json:"added"`
	Skipped []SkippedUpload `json:"skipped"`
}

// List returns a page of the owner's entries, newest first.
func (s *DiaryService) List(ctx context.Context, ownerID string, params store.PageParams) (*store.PagedResult[*domain.Entry], error) {
	result, err := s.store.ListEntries(ctx, ownerID, params)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return result, nil
}

// Search returns every entry of the owner whose title or content contains
// term, case-insensitively, newest first. No pagination is applied; an
// empty term matches everything.
func (s *DiaryService) Search(ctx context.Context, ownerID, term string) ([]*domain.Entry, error) {
	entries, err := s.store.SearchEntries(ctx, ownerID, term)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return entries, nil
}

// ListFavorites returns every favorite entry of the owner, newest first.
// No pagination is applied.
func (s *DiaryService) ListFavorites(ctx context.Context, ownerID string) ([]*domain.Entry, error) {
	entries, err := s.store.ListFavoriteEntries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list favorite entries: %w", err)
	}
	return entries, nil
}

// GetByID returns one of the owner's entries with its photos.
func (s *DiaryService) GetByID(ctx context.Context, ownerID, entryID string) (*domain.Entry, error) {
	entry, err := s.store.GetEntry(ctx, ownerID, entryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("entry not found")
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Create stores a new entry with its photos. Photo validation is
// all-or-nothing: if any upload fails the size or media-type check,
// nothing is stored.
func (s *DiaryService) Create(ctx context.Context, ownerID string, req CreateEntryRequest) (*domain.Entry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Reject the whole request before touching disk.
	for _, upload := range req.Photos {
		if err := images.Validate(upload.Data, upload.MediaType); err != nil {
			return nil, domainerrors.Validationf("photo %s: %v", upload.FileName, err)
		}
	}

	entryID, err := id.Generate("entry")
	if err != nil {
		return nil, fmt.Errorf("generate entry ID: %w", err)
	}

	entry := &domain.Entry{
		ID:         entryID,
		OwnerID:    ownerID,
		Title:      req.Title,
		Content:    req.Content,
		IsFavorite: req.IsFavorite,
	}
	entry.InitTimestamps()

	savedFiles, photos, err := s.storeUploads(entryID, req.Photos)
	if err != nil {
		s.removeFiles(savedFiles)
		return nil, err
	}
	entry.Photos = photos

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		s.removeFiles(savedFiles)
		return nil, fmt.Errorf("create entry: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Entry created",
			"entry_id", entryID,
			"owner_id", ownerID,
			"photos", len(photos),
		)
	}

	return entry, nil
}

// Update applies partial changes to an entry. CreatedAt never changes.
func (s *DiaryService) Update(ctx context.Context, ownerID, entryID string, req UpdateEntryRequest) (*domain.Entry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	entry, err := s.GetByID(ctx, ownerID, entryID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.IsFavorite != nil {
		entry.IsFavorite = *req.IsFavorite
	}
	entry.Touch()

	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("entry not found")
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}

	return entry, nil
}

// SetFavorite marks or unmarks an entry as a favorite.
func (s *DiaryService) SetFavorite(ctx context.Context, ownerID, entryID string, favorite bool) error {
	if err := s.store.SetEntryFavorite(ctx, ownerID, entryID, favorite, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("entry not found")
		}
		return fmt.Errorf("set favorite: %w", err)
	}
	return nil
}

// AddPhotos attaches uploads to an existing entry. Unlike Create, invalid
// uploads are skipped rather than failing the whole request, so a batch
// with one oversized photo still stores the rest.
func (s *DiaryService) AddPhotos(ctx context.Context, ownerID, entryID string, uploads []PhotoUpload) (*AddPhotosResult, error) {
	if len(uploads) == 0 {
		return nil, domainerrors.Validation("no photos supplied")
	}

	// Check the entry exists and belongs to the caller before saving files.
	if _, err := s.store.GetEntry(ctx, ownerID, entryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("entry not found")
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}

	result := &AddPhotosResult{}
	var valid []PhotoUpload
	for _, upload := range uploads {
		if err := images.Validate(upload.Data, upload.MediaType); err != nil {
			result.Skipped = append(result.Skipped, SkippedUpload{
				FileName: upload.FileName,
				Reason:   err.Error(),
			})
			continue
		}
		valid = append(valid, upload)
	}

	if len(valid) == 0 {
		return result, nil
	}

	savedFiles, photos, err := s.storeUploads(entryID, valid)
	if err != nil {
		s.removeFiles(savedFiles)
		return nil, err
	}

	if err := s.store.AddPhotos(ctx, ownerID, entryID, photos, time.Now()); err != nil {
		s.removeFiles(savedFiles)
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("entry not found")
		}
		return nil, fmt.Errorf("add photos: %w", err)
	}
	result.Added = photos

	if s.logger != nil {
		s.logger.Info("Photos added",
			"entry_id", entryID,
			"added", len(result.Added),
			"skipped", len(result.Skipped),
		)
	}

	return result, nil
}

// DeletePhoto removes a photo record and its backing file. The file delete
// is idempotent, so a record whose file already vanished still cleans up.
func (s *DiaryService) DeletePhoto(ctx context.Context, ownerID, photoID string) error {
	photo, err := s.store.GetPhoto(ctx, ownerID, photoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("photo not found")
		}
		return fmt.Errorf("get photo: %w", err)
	}

	if err := s.store.DeletePhoto(ctx, ownerID, photoID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("photo not found")
		}
		return fmt.Errorf("delete photo: %w", err)
	}

	if err := s.uploads.Delete(photo.FileName); err != nil && s.logger != nil {
		s.logger.Warn("Failed to delete photo file",
			"photo_id", photoID,
			"file", photo.FileName,
			"error", err,
		)
	}

	return nil
}

// Delete removes an entry, its photo records (FK cascade), and their
// backing files. File removal is best-effort after the row delete succeeds.
func (s *DiaryService) Delete(ctx context.Context, ownerID, entryID string) error {
	entry, err := s.store.GetEntry(ctx, ownerID, entryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("entry not found")
		}
		return fmt.Errorf("get entry: %w", err)
	}

	if err := s.store.DeleteEntry(ctx, ownerID, entryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("entry not found")
		}
		return fmt.Errorf("delete entry: %w", err)
	}

	for _, photo := range entry.Photos {
		if err := s.uploads.Delete(photo.FileName); err != nil && s.logger != nil {
			s.logger.Warn("Failed to delete photo file",
				"entry_id", entryID,
				"file", photo.FileName,
				"error", err,
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("Entry deleted",
			"entry_id", entryID,
			"owner_id", ownerID,
		)
	}

	return nil
}

// storeUploads writes uploads to disk and builds their photo records.
// Returns the saved file names so the caller can roll back on failure.
func (s *DiaryService) storeUploads(entryID string, uploads []PhotoUpload) ([]string, []domain.Photo, error) {
	var savedFiles []string
	var photos []domain.Photo

	for _, upload := range uploads {
		fileName, err := s.uploads.Save(upload.Data, upload.FileName)
		if err != nil {
			return savedFiles, nil, fmt.Errorf("save photo: %w", err)
		}
		savedFiles = append(savedFiles, fileName)

		photoID, err := id.Generate("photo")
		if err != nil {
			return savedFiles, nil, fmt.Errorf("generate photo ID: %w", err)
		}

		// BlurHash is a nicety; a photo without one still works.
		blurHash, err := images.ComputeBlurHash(upload.Data)
		if err != nil {
			blurHash = ""
			if s.logger != nil {
				s.logger.Warn("Failed to compute blur hash",
					"file", fileName,
					"error", err,
				)
			}
		}

		photos = append(photos, domain.Photo{
			ID:        photoID,
			EntryID:   entryID,
			FileName:  fileName,
			BlurHash:  blurHash,
			CreatedAt: time.Now(),
		})
	}

	return savedFiles, photos, nil
}

// removeFiles deletes saved files after a failed operation.
func (s *DiaryService) removeFiles(fileNames []string) {
	for _, name := range fileNames {
		if err := s.uploads.Delete(name); err != nil && s.logger != nil {
			s.logger.Warn("Failed to remove orphaned photo file",
				"file", name,
				"error", err,
			)
		}
	}
}
