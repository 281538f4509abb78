// Package export writes criticality rankings to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// WriteScores writes a header row and one row per score, in order
func WriteScores(w io.Writer, scores []domain.CriticalityScore) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(domain.CriticalityScore{}); err != nil {
		return fmt.Errorf("failed to encode score header: %w", err)
	}
	if len(scores) > 0 {
		if err := enc.Encode(scores); err != nil {
			return fmt.Errorf("failed to encode scores: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write scores: %w", err)
	}
	return nil
}

// ReadScores decodes a file written by WriteScores
func ReadScores(r io.Reader) ([]domain.CriticalityScore, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return []domain.CriticalityScore{}, nil
		}
		return nil, fmt.Errorf("failed to create score decoder: %w", err)
	}

	scores := []domain.CriticalityScore{}
	if err := dec.Decode(&scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}
	return scores, nil
}
