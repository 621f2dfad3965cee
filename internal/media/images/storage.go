// Package images provides photo validation, storage, and placeholder generation.
package images

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MaxPhotoBytes is the largest photo upload we accept.
const MaxPhotoBytes = 2 << 20 // 2 MiB

// ErrTooLarge is returned when a photo exceeds MaxPhotoBytes.
var ErrTooLarge = fmt.Errorf("photo exceeds %d bytes", MaxPhotoBytes)

// ErrNotImage is returned when an upload is not an image media type.
var ErrNotImage = fmt.Errorf("photo must be an image")

// Validate checks an upload against the size and media-type rules.
// mediaType may carry parameters ("image/jpeg; charset=utf-8").
func Validate(data []byte, mediaType string) error {
	if len(data) == 0 {
		return fmt.Errorf("photo data cannot be empty")
	}
	if len(data) > MaxPhotoBytes {
		return ErrTooLarge
	}

	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return ErrNotImage
	}
	if !strings.HasPrefix(mt, "image/") {
		return ErrNotImage
	}

	return nil
}

// Storage manages photo files on disk.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage rooted at basePath (the uploads directory).
// The directory is created if it doesn't exist.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
	}, nil
}

// Save writes photo data to a new file and returns the generated file name.
// Names are random UUIDs so uploads can never collide or be guessed,
// with the extension taken from the original file name.
func (s *Storage) Save(data []byte, originalName string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("photo data cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	fileName := uuid.NewString() + ext

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(fileName), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}

	return fileName, nil
}

// Get retrieves photo data by file name.
func (s *Storage) Get(fileName string) ([]byte, error) {
	if fileName == "" {
		return nil, fmt.Errorf("file name cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("photo not found: %s: %w", fileName, err)
		}
		return nil, fmt.Errorf("failed to read photo file: %w", err)
	}

	return data, nil
}

// Exists checks whether a photo file is on disk.
func (s *Storage) Exists(fileName string) bool {
	if fileName == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(fileName))
	return err == nil
}

// Delete removes a photo file. Deleting a missing file is not an error.
func (s *Storage) Delete(fileName string) error {
	if fileName == "" {
		return fmt.Errorf("file name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(fileName)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete photo file: %w", err)
	}

	return nil
}

// Path returns the full filesystem path for a photo file.
// The file name is stripped to its base so a crafted name can't
// escape the uploads directory.
func (s *Storage) Path(fileName string) string {
	return filepath.Join(s.basePath, filepath.Base(fileName))
}
