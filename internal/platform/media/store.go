// Package media stores uploaded documents and their extracted images on the
// local filesystem. Files are stored flat with a session-ID prefix so all
// files belonging to a session can be removed together.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/config"
)

// ErrEmptyFilename is returned when a save is attempted without a filename.
var ErrEmptyFilename = errors.New("filename cannot be empty")

// Store is a filesystem-backed media store rooted at a configured directory,
// with uploads/ and images/ subdirectories.
type Store struct {
	uploadDir string
	imageDir  string
	logger    *slog.Logger
}

// NewStore creates the store's directories if they do not exist.
func NewStore(cfg config.MediaConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Dir == "" {
		return nil, errors.New("media directory cannot be empty")
	}

	uploadDir := filepath.Join(cfg.Dir, "uploads")
	imageDir := filepath.Join(cfg.Dir, "images")
	for _, dir := range []string{uploadDir, imageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating media directory %s: %w", dir, err)
		}
	}

	return &Store{
		uploadDir: uploadDir,
		imageDir:  imageDir,
		logger:    logger.With("component", "media_store"),
	}, nil
}

// SaveUpload stores an uploaded document and returns its absolute path.
func (s *Store) SaveUpload(ctx context.Context, sessionID uuid.UUID, filename string, r io.Reader) (string, error) {
	name, err := storedName(sessionID, filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.uploadDir, name)
	size, err := writeFile(path, r)
	if err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}

	s.logger.DebugContext(ctx, "stored upload",
		"session_id", sessionID.String(),
		"path", path,
		"size", size)
	return path, nil
}

// SaveImage stores an extracted image and returns the stored filename and
// its size in bytes. The stored filename, not a path, is persisted on
// CardImage rows; resolve it with ImagePath.
func (s *Store) SaveImage(ctx context.Context, sessionID uuid.UUID, filename string, r io.Reader) (string, int64, error) {
	name, err := storedName(sessionID, filename)
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(s.imageDir, name)
	size, err := writeFile(path, r)
	if err != nil {
		return "", 0, fmt.Errorf("saving image: %w", err)
	}

	s.logger.DebugContext(ctx, "stored image",
		"session_id", sessionID.String(),
		"stored_filename", name,
		"size", size)
	return name, size, nil
}

// ImagePath resolves a stored image filename to its absolute path.
func (s *Store) ImagePath(storedFilename string) string {
	return filepath.Join(s.imageDir, filepath.Base(storedFilename))
}

// Open opens a stored file for reading. The path must be one previously
// returned by SaveUpload or ImagePath.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stored file: %w", err)
	}
	return f, nil
}

// RemoveSession deletes the stored upload and all images belonging to a
// session. Missing files are not an error.
func (s *Store) RemoveSession(ctx context.Context, sessionID uuid.UUID) error {
	prefix := sessionID.String() + "_"
	var removed int

	for _, dir := range []string{s.uploadDir, s.imageDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("listing media directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", entry.Name(), err)
			}
			removed++
		}
	}

	s.logger.DebugContext(ctx, "removed session media",
		"session_id", sessionID.String(),
		"file_count", removed)
	return nil
}

// storedName builds the session-prefixed filename, stripping any directory
// components and replacing spaces.
func storedName(sessionID uuid.UUID, filename string) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", ErrEmptyFilename
	}
	return sessionID.String() + "_" + strings.ReplaceAll(base, " ", "_"), nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return size, nil
}
