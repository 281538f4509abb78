package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Storage areas under the base path
const (
	AreaUploads = "uploads"
	AreaOutputs = "outputs"
)

// LocalStorage keeps uploaded workbooks and generated outputs on the local
// filesystem, one directory per upload
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// LocalStorageConfig for local storage
type LocalStorageConfig struct {
	BasePath string // Base directory (e.g., "/var/lib/outage-analytics")
}

// FileMetadata contains information about stored files
type FileMetadata struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"stored_path"`
	Size         int64     `json:"size"`
	Hash         string    `json:"hash"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// SaveUpload stores an uploaded workbook and returns its metadata
func (s *LocalStorage) SaveUpload(ctx context.Context, uploadID string, filename string, reader io.Reader) (*FileMetadata, error) {
	uploadDir := s.Path(AreaUploads, uploadID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Sanitize filename
	safeName := filepath.Base(filename)
	destPath := filepath.Join(uploadDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	// Calculate hash while copying
	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(destFile, hash), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	metadata := &FileMetadata{
		ID:           uploadID,
		OriginalName: filename,
		StoredPath:   destPath,
		Size:         size,
		Hash:         hex.EncodeToString(hash.Sum(nil)),
		ContentType:  ContentType(filename),
		CreatedAt:    domain.Now(),
	}

	s.logger.Info("file uploaded successfully",
		slog.String("upload_id", uploadID),
		slog.String("filename", safeName),
		slog.Int64("size", size),
		slog.String("hash", metadata.Hash))

	return metadata, nil
}

// GetUpload opens an uploaded file
func (s *LocalStorage) GetUpload(ctx context.Context, uploadID string, filename string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(s.Path(AreaUploads, uploadID), filepath.Base(filename)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.RecordNotFound("upload " + uploadID)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// OutputPath returns where an output of uploadID named filename is written,
// creating its directory
func (s *LocalStorage) OutputPath(uploadID string, filename string) (string, error) {
	dir := s.Path(AreaOutputs, uploadID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, filepath.Base(filename)), nil
}

// SaveOutput writes a generated file (sync workbook, score export)
func (s *LocalStorage) SaveOutput(ctx context.Context, uploadID string, filename string, data []byte) (string, error) {
	filePath, err := s.OutputPath(uploadID, filename)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}

	s.logger.Info("output file saved",
		slog.String("upload_id", uploadID),
		slog.String("filename", filepath.Base(filename)),
		slog.Int("size", len(data)))

	return filePath, nil
}

// GetOutput reads a generated file
func (s *LocalStorage) GetOutput(ctx context.Context, uploadID string, filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Path(AreaOutputs, uploadID), filepath.Base(filename)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.RecordNotFound("output " + uploadID + "/" + filename)
		}
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}
	return data, nil
}

// Delete removes every file of an upload
func (s *LocalStorage) Delete(ctx context.Context, uploadID string) error {
	for _, area := range []string{AreaUploads, AreaOutputs} {
		if err := os.RemoveAll(s.Path(area, uploadID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s directory: %w", area, err)
		}
	}

	s.logger.Info("upload deleted", slog.String("upload_id", uploadID))
	return nil
}

// CleanupOldFiles removes upload directories last modified before the
// retention window
func (s *LocalStorage) CleanupOldFiles(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoffTime := domain.Now().Add(-olderThan)

	removed := 0
	for _, area := range []string{AreaUploads, AreaOutputs} {
		n, err := s.cleanupDirectory(filepath.Join(s.basePath, area), cutoffTime)
		if err != nil {
			return removed, fmt.Errorf("failed to cleanup %s: %w", area, err)
		}
		removed += n
	}

	s.logger.Info("cleanup completed",
		slog.Duration("older_than", olderThan),
		slog.Int("removed", removed))

	return removed, nil
}

// cleanupDirectory removes directories older than cutoff time
func (s *LocalStorage) cleanupDirectory(dir string, cutoffTime time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to get file info",
				slog.String("path", dirPath),
				slog.Any("error", err))
			continue
		}

		if !info.ModTime().Before(cutoffTime) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			s.logger.Warn("failed to remove directory",
				slog.String("path", dirPath),
				slog.Any("error", err))
			continue
		}
		removed++
		s.logger.Debug("removed old directory",
			slog.String("path", dirPath),
			slog.Time("mod_time", info.ModTime()))
	}

	return removed, nil
}

// Path returns the directory of an upload within an area
func (s *LocalStorage) Path(area string, uploadID string) string {
	return filepath.Join(s.basePath, area, filepath.Base(uploadID))
}

// ContentType returns the content type based on file extension
func ContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
