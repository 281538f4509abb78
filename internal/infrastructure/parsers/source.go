package parsers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Source is a readable workbook, either on disk or already in memory.
// Loaders only see this interface.
type Source interface {
	// Name is the file name, used for format detection and logs
	Name() string

	// Open returns a fresh reader positioned at the start
	Open() (io.ReadCloser, error)

	// Fingerprint is the hex sha256 of the content
	Fingerprint() (string, error)
}

// PathSource reads a workbook from the filesystem
type PathSource struct {
	Path string
}

// NewPathSource creates a source for path
func NewPathSource(path string) *PathSource {
	return &PathSource{Path: path}
}

func (s *PathSource) Name() string {
	return filepath.Base(s.Path)
}

func (s *PathSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	return f, nil
}

func (s *PathSource) Fingerprint() (string, error) {
	f, err := s.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", s.Path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BufferSource holds an uploaded workbook in memory
type BufferSource struct {
	name string
	data []byte
}

// NewBufferSource creates a source over data
func NewBufferSource(name string, data []byte) *BufferSource {
	return &BufferSource{name: name, data: data}
}

// ReadSource drains r into a BufferSource, rejecting content above maxSize
// when maxSize is positive.
func ReadSource(name string, r io.Reader, maxSize int64) (*BufferSource, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.FileParseError(err, name)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, apperrors.FileTooLarge((maxSize + 1<<20 - 1) >> 20)
	}
	return NewBufferSource(name, data), nil
}

func (s *BufferSource) Name() string {
	return s.name
}

func (s *BufferSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *BufferSource) Fingerprint() (string, error) {
	sum := sha256.Sum256(s.data)
	return hex.EncodeToString(sum[:]), nil
}

// Size returns the content length in bytes
func (s *BufferSource) Size() int64 {
	return int64(len(s.data))
}

// readAll loads a source honoring the configured size limit
func readAll(src Source, maxSize int64) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, apperrors.FileParseError(err, src.Name())
	}
	defer rc.Close()

	buf, err := ReadSource(src.Name(), rc, maxSize)
	if err != nil {
		return nil, err
	}
	return buf.data, nil
}
