package parsers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// FormatXLSX names the Excel format in results and metrics
const FormatXLSX = "XLSX"

// ExcelParser parses Excel workbooks (.xlsx, .xlsm)
type ExcelParser struct {
	config *ParserConfig
}

// NewExcelParser creates a new Excel parser
func NewExcelParser(config *ParserConfig) *ExcelParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &ExcelParser{
		config: config,
	}
}

// Parse reads every sheet of the workbook. Cells are read raw, so dates
// arrive as Excel serials and numbers without display formatting.
func (p *ExcelParser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	data, err := readAll(src, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.FileParseError(err, src.Name())
	}
	defer f.Close()

	wb := &domain.Workbook{Name: src.Name()}
	result := &ParseResult{Workbook: wb, Format: FormatXLSX}

	for _, sheetName := range f.GetSheetList() {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.FileParseError(fmt.Errorf("sheet %s: %w", sheetName, err), src.Name())
		}

		table, total, skipped := buildTable(sheetName, rows, p.config)
		wb.Sheets = append(wb.Sheets, table)
		result.TotalRows += total
		result.SkippedRows += skipped
	}

	if len(wb.Sheets) == 0 {
		return nil, apperrors.InvalidFile("no sheets found in Excel file")
	}

	result.Fingerprint, err = NewBufferSource(src.Name(), data).Fingerprint()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *ExcelParser) SupportedFormats() []string {
	return []string{".xlsx", ".xlsm"}
}
