package prepare

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

func table(columns []string, rows ...[]string) *domain.Table {
	t := &domain.Table{Name: "test", Columns: columns}
	for _, cells := range rows {
		row := make(domain.Row, len(columns))
		for i, c := range columns {
			if i < len(cells) {
				row[c] = cells[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestParseLocaleFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12,5", 12.5, true},
		{"12.5", 12.5, true},
		{" 7,25 Ω", 7.25, true},
		{"-3,0", -3, true},
		{"40", 40, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"-", 0, false},
		{"1.234,5", 0, false},
		{"1" + strings.Repeat("0", 400), 0, false},
		{"-1" + strings.Repeat("0", 400), 0, false},
	}
	for _, tt := range tests {
		name := tt.in
		if len(name) > 20 {
			name = name[:20] + "..."
		}
		t.Run(name, func(t *testing.T) {
			got, ok := ParseLocaleFloat(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05/03/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-05 10:30:00", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), true},
		{"45356", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"ontem", time.Time{}, false},
		{"0", time.Time{}, false},
		{"-5", time.Time{}, false},
		{"2024", time.Time{}, false},
		{"9999", time.Time{}, false},
		{"10000", time.Date(1927, 5, 18, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"14:05", "14:05:00", true},
		{"14:05:09", "14:05:09", true},
		{"0.5", "12:00:00", true},
		{"2:30 PM", "14:30:00", true},
		{"2024-03-05 08:15:00", "08:15:00", true},
		{"", "", false},
		{"tarde", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClock(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrepareOutages(t *testing.T) {
	in := table(
		[]string{" torre ", "FT", "Causa", "Fase", "Obs"},
		[]string{"Torre 05", "LT 500kV Serra da Mesa - Samambaia", "Descarga Atmosférica", "ABG", "chuva"},
		[]string{"PÓRTICO 1", "LT 500kV Serra da Mesa - Samambaia", "Queimada", "A"},
		[]string{"sem torre", "LT X", "Outros", "B"},
		[]string{"T012", "Linha nova", "Causa desconhecida", "ZZ"},
	)

	out, stats, err := NewPreparer(lookup.Default(), nil).Outages(in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0]
	id, ok := first.Tower.Number()
	require.True(t, ok)
	assert.Equal(t, 5, id)
	assert.Equal(t, "Torre 05", first.Tower.RawLabel)
	assert.Equal(t, "LT SMSB C3", first.LineID)
	assert.Equal(t, "DAT", first.Cause)
	assert.Equal(t, "ABN", first.Phase)
	assert.Equal(t, "chuva", first.Extra["obs"])

	// Unmapped values pass through.
	assert.Equal(t, "Linha nova", out[1].LineID)
	assert.Equal(t, "Causa desconhecida", out[1].Cause)
	assert.Equal(t, "ZZ", out[1].Phase)

	assert.Equal(t, 4, stats.Input)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 1, stats.Dropped[DropStructure])
	assert.Equal(t, 1, stats.Dropped[DropNoTower])
}

func TestPrepareOutages_DateColumnDropsInvalidDates(t *testing.T) {
	in := table(
		[]string{"Torre", "FT", "Data", "Horário"},
		[]string{"T1", "LT A", "2024-01-10", "0.25"},
		[]string{"T2", "LT A", "data ruim", "10:00"},
		[]string{"T3", "LT A", ""},
	)

	out, stats, err := NewPreparer(nil, nil).Outages(in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2024, out[0].Year())
	assert.Equal(t, time.January, out[0].Month())
	assert.Equal(t, "06:00:00", out[0].Time)
	assert.Equal(t, 2, stats.Dropped[DropNoDate])
}

func TestPrepareOutages_EmptyAndSchema(t *testing.T) {
	out, err := PrepareOutages(&domain.Table{Columns: []string{"anything"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = PrepareOutages(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = PrepareOutages(table([]string{"Torre", "Causa"}, []string{"T1", "X"}), nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchemaMismatch))
	assert.Contains(t, err.Error(), FieldLine)
}

func TestPrepareResistance(t *testing.T) {
	in := table(
		[]string{"Linha de Transmissão", "Torre", "Última Medição Resistência de aterramento (Ω)", "Medição Paralelo Antes (Ω)", "Data Medição"},
		[]string{"LT SMSB", "005", "12,5", "3,2", "10/02/2023"},
		[]string{"LT SMSB", "PORTICO 2", "1,0"},
		[]string{"LT SMSB", "T7", ""},
		[]string{"LT SMSB", "", "8"},
	)

	out, stats, err := NewPreparer(nil, nil).Resistance(in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	m := out[0]
	id, _ := m.Tower.Number()
	assert.Equal(t, 5, id)
	assert.Equal(t, "LT SMSB", m.LineID)
	require.NotNil(t, m.ResistanceOhms)
	assert.InDelta(t, 12.5, *m.ResistanceOhms, 1e-9)
	require.NotNil(t, m.ParallelBefore)
	assert.InDelta(t, 3.2, *m.ParallelBefore, 1e-9)
	require.NotNil(t, m.ImprovedAt)
	assert.Equal(t, 2023, m.ImprovedAt.Year())

	assert.Nil(t, out[1].ResistanceOhms)
	assert.Equal(t, 1, stats.Dropped[DropStructure])
	assert.Equal(t, 1, stats.Dropped[DropNoTower])
}

func TestPrepareResistance_FallbackColumn(t *testing.T) {
	in := table(
		[]string{"Torre", "Valor Resistividade medido"},
		[]string{"T3", "9,75"},
	)

	out, err := PrepareResistance(in, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].ResistanceOhms)
	assert.InDelta(t, 9.75, *out[0].ResistanceOhms, 1e-9)
}

func TestPrepareResistance_OverflowIsAbsent(t *testing.T) {
	in := table(
		[]string{"Torre", "Resistência"},
		[]string{"2", "1" + strings.Repeat("0", 400)},
	)

	out, err := PrepareResistance(in, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].ResistanceOhms)
}

func TestPrepareResistance_MissingColumns(t *testing.T) {
	_, err := PrepareResistance(table([]string{"Torre", "Supervisor"}, []string{"T1", "Ana"}), nil)
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSchemaMismatch, appErr.Code)
	assert.Equal(t, []string{FieldResistance}, appErr.Details["missing"])
}

func TestCleanOutages(t *testing.T) {
	in := table(
		[]string{"Concessão", "Data", "FT", "Causa", "Fase", "Torre"},
		[]string{"BRASNORTE", "2023-05-01", "LT 230 kV BRASNORTE - NOVA MUTUM 1", "Vegetação", "C", ""},
		[]string{"", "2023-05-02", "LT X", "Outros", "A", "T1"},
		[]string{"Sutiã Transmissora", "2023-05-03", "LT X", "Outros", "A", "T1"},
		[]string{"BRASNORTE", "", "LT X", "Outros", "A", "T1"},
	)

	out, stats, err := NewPreparer(nil, nil).Clean(in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "LT BNNM C1", out[0].LineID)
	assert.Equal(t, "VGT", out[0].Cause)
	assert.Equal(t, "CN", out[0].Phase)
	assert.Nil(t, out[0].Tower.ID)
	assert.Equal(t, 1, stats.Dropped[DropNoConcession])
	assert.Equal(t, 1, stats.Dropped[DropExcludedConcession])
	assert.Equal(t, 1, stats.Dropped[DropNoDate])

	_, err = CleanOutages(table([]string{"Concessão", "FT"}, []string{"A", "B"}), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchemaMismatch))
}

func TestResolveHeaders_FirstMatchWins(t *testing.T) {
	h := resolveHeaders([]string{"Concessao", "CONCESSÃO", "Hora"}, outageAliases)
	assert.Equal(t, "Concessao", h.byField[FieldConcession])
	assert.Equal(t, "Hora", h.byField[FieldTime])
	_, mapped := h.byHeader["CONCESSÃO"]
	assert.False(t, mapped)
}
