package parsers

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// FormatCSV names the CSV format in results and metrics
const FormatCSV = "CSV"

// CSVParser parses CSV exports into a single-sheet workbook named after the file
type CSVParser struct {
	config *ParserConfig
}

// NewCSVParser creates a new CSV parser
func NewCSVParser(config *ParserConfig) *CSVParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &CSVParser{
		config: config,
	}
}

// Parse reads the CSV source. Semicolon-separated exports, common with a
// decimal comma locale, are detected from the header line.
func (p *CSVParser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	data, err := readAll(src, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.Comma = detectDelimiter(data)
	csvReader.TrimLeadingSpace = p.config.TrimWhitespace
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields per record

	var rows [][]string
	malformed := 0
	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(rows) == 0 {
				return nil, apperrors.FileParseError(err, src.Name())
			}
			// Skip malformed rows but continue parsing
			malformed++
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, apperrors.InvalidFile("CSV file has no header row")
	}

	name := strings.TrimSuffix(src.Name(), filepath.Ext(src.Name()))
	table, total, skipped := buildTable(name, rows, p.config)

	fingerprint, err := NewBufferSource(src.Name(), data).Fingerprint()
	if err != nil {
		return nil, err
	}

	return &ParseResult{
		Workbook:    &domain.Workbook{Name: src.Name(), Sheets: []*domain.Table{table}},
		TotalRows:   total + malformed,
		SkippedRows: skipped + malformed,
		Format:      FormatCSV,
		Fingerprint: fingerprint,
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *CSVParser) SupportedFormats() []string {
	return []string{".csv"}
}

func detectDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}
