package parsers

import (
	"context"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// ParseResult contains the parsed workbook and parsing statistics
type ParseResult struct {
	Workbook    *domain.Workbook
	TotalRows   int
	SkippedRows int
	Format      string
	Fingerprint string
}

// WorkbookParser is the interface all parsers must implement
type WorkbookParser interface {
	// Parse reads every sheet of the source
	Parse(ctx context.Context, src Source) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// SkipEmptyRows determines if empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    100 * 1024 * 1024, // 100 MB
	}
}
