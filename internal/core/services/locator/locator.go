package locator

import (
	"log/slog"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Result combines the line header info with the span drawing.
type Result struct {
	Line   LineLength `json:"line"`
	View   *SpanView  `json:"view"`
	Reason string     `json:"warning,omitempty"`
}

// Service locates faults on the lines of a locator workbook.
type Service struct {
	logger *slog.Logger
}

// NewService creates a locator service
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Catalog reads the concession and line lists of a workbook.
func (s *Service) Catalog(wb *domain.Workbook) (*LineCatalog, error) {
	sheet, ok := wb.Sheet(SheetCatalog)
	if !ok {
		return nil, apperrors.MissingSheet(SheetCatalog)
	}
	return ReadLineCatalog(sheet)
}

// Locate builds the span view for req. The KM_LT and figure sheets are optional.
func (s *Service) Locate(wb *domain.Workbook, req Request) (*Result, error) {
	if _, err := s.Catalog(wb); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lengthsSheet, _ := wb.Sheet(SheetLengths)
	result := &Result{Line: ReadLineLengths(lengthsSheet).Lookup(req.Line)}

	var figures TowerFigures
	if figSheet, ok := wb.Sheet(SheetFigures); ok {
		var err error
		figures, err = ReadTowerFigures(figSheet)
		if err != nil {
			s.logger.Warn("tower figures ignored", slog.Any("error", err))
			result.Reason = err.Error()
		}
	}

	lineSheet, ok := wb.Sheet(req.Line)
	if !ok {
		return nil, apperrors.MissingSheet(req.Line)
	}

	view, err := BuildSpanView(lineSheet, req, figures)
	if err != nil {
		return nil, err
	}
	result.View = view

	s.logger.Info("fault located",
		slog.String("lt", req.Line),
		slog.Float64("search_km", req.SearchKm),
		slog.Float64("central_km", view.CentralKm),
		slog.Int("towers", len(view.Towers)))
	return result, nil
}
