package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

func TestLocateBracket(t *testing.T) {
	distances := []float64{0, 10, 20, 30}

	tests := []struct {
		name   string
		target float64
		want   Bracket
		wantOK bool
	}{
		{"middle", 15, Bracket{1, 2}, true},
		{"first span", 5, Bracket{0, 1}, true},
		{"on a tower picks first span", 10, Bracket{0, 1}, true},
		{"last tower", 30, Bracket{2, 3}, true},
		{"below range", -1, Bracket{}, false},
		{"above range", 35, Bracket{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LocateBracket(tt.target, distances)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := LocateBracket(1, []float64{1})
	assert.False(t, ok)
	_, ok = LocateBracket(1, nil)
	assert.False(t, ok)
}

func TestInterpolate(t *testing.T) {
	assert.InDelta(t, 5, Interpolate(15, 10, 20, 0, 10), 1e-9)
	assert.InDelta(t, 2, Interpolate(12, 10, 20, 3, -2), 1e-9)

	// Two towers at the same distance.
	assert.Equal(t, 7.0, Interpolate(10, 10, 10, 7, 99))
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{1}, linspace(1, 9, 1))
	assert.Equal(t, []float64{1, 5, 9}, linspace(1, 9, 3))
	assert.InDeltaSlice(t, []float64{1, 2.6, 4.2, 5.8, 7.4, 9}, linspace(1, 9, 6), 1e-9)
	assert.Nil(t, linspace(1, 9, 0))
}

func lineSheet() *domain.Table {
	cols := []string{"KM ", "Fases", "Vão", "Descrição"}
	rows := [][]string{
		{"40", "ABC", "", "T8"},
		{"0,5", "ABC", "", "T1"},
		{"5", "ABC", "", "T2"},
		{"10", "BCA", "", "T3"},
		{"x", "ABC", "", "lixo"},
		{"15", "CAB", "", "T4"},
		{"20", "ABC", "", "T5"},
		{"25", "J1", "", "T6"},
		{"30", "ABC", "", "T7"},
	}
	t := &domain.Table{Name: "LT JUJB C2", Columns: cols}
	for _, r := range rows {
		row := domain.Row{}
		for i, c := range cols {
			row[c] = r[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestBuildSpanView(t *testing.T) {
	view, err := BuildSpanView(lineSheet(), Request{Concession: "X", Line: "LT JUJB C2", Phase: "AG", SearchKm: 12}, nil)
	require.NoError(t, err)

	// Central tower is T4 at km 15, window is T1..T7.
	assert.Equal(t, 15.0, view.CentralKm)
	require.Len(t, view.Towers, 7)
	assert.Equal(t, "T1", view.Towers[0].Label)
	assert.Equal(t, "T7", view.Towers[6].Label)
	assert.True(t, view.Towers[3].Central)
	assert.Equal(t, view.Towers[3].X, view.CentralX)
	assert.InDelta(t, 1.0, view.Towers[0].X, 1e-9)
	assert.InDelta(t, 9.0, view.Towers[6].X, 1e-9)

	// Search km 12 sits between T3 (km 10) and T4 (km 15).
	x3, x4 := view.Towers[2].X, view.Towers[3].X
	assert.InDelta(t, x3+0.4*(x4-x3), view.SearchX, 1e-9)

	// J1 is not a three-letter sequence, so T6 adds no phase points.
	assert.Len(t, view.PhaseLines["A"], 6)
	assert.Equal(t, []string{"A", "B", "C"}, view.PhaseOrder)

	// Phase A is at height 1 on T3 (BCA) and 2 on T4 (CAB).
	require.NotNil(t, view.Marker)
	assert.InDelta(t, 1+0.4, view.Marker.Y, 1e-9)

	require.Len(t, view.Rows, 7)
	assert.Equal(t, SpanRow{Km: 15, Tower: "T4", Sequence: "CAB", Status: "Central"}, view.Rows[3])
	assert.Equal(t, "", view.Rows[0].Status)
}

func TestBuildSpanView_SearchOnCentralTower(t *testing.T) {
	view, err := BuildSpanView(lineSheet(), Request{Line: "L", Phase: "bg", SearchKm: 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, view.CentralKm)
	assert.Len(t, view.Towers, 4)
	assert.Equal(t, view.CentralX, view.SearchX)
	require.NotNil(t, view.Marker)
	assert.InDelta(t, 2, view.Marker.Y, 1e-9)
}

func TestBuildSpanView_Errors(t *testing.T) {
	_, err := BuildSpanView(lineSheet(), Request{Line: "L", Phase: "AG", SearchKm: 41}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNoTowerFound))

	_, err = BuildSpanView(lineSheet(), Request{Line: "L", Phase: "AG", SearchKm: 0}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = BuildSpanView(lineSheet(), Request{Line: "L", Phase: "AB", SearchKm: 3}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	noPhases := &domain.Table{Name: "L", Columns: []string{"KM", "Seq", "B", "Desc"}}
	_, err = BuildSpanView(noPhases, Request{Line: "L", Phase: "AG", SearchKm: 3}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchemaMismatch))

	narrow := &domain.Table{Name: "L", Columns: []string{"KM", "Fases"}}
	_, err = BuildSpanView(narrow, Request{Line: "L", Phase: "AG", SearchKm: 3}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestBuildSpanView_Figures(t *testing.T) {
	figures := TowerFigures{"J1": {Figure: "F1", Sequence: "CBA", ImagePath: "img/j1.png"}}

	view, err := BuildSpanView(lineSheet(), Request{Concession: "BRASNORTE", Line: "L", Phase: "CG", SearchKm: 25}, figures)
	require.NoError(t, err)
	assert.Equal(t, "CBA", view.Towers[3].Sequence)
	assert.Equal(t, "img/j1.png", view.CentralImage)
	assert.Equal(t, "J1", view.Rows[3].Sequence)

	other, err := BuildSpanView(lineSheet(), Request{Concession: "OUTRA", Line: "L", Phase: "CG", SearchKm: 25}, figures)
	require.NoError(t, err)
	assert.Equal(t, "J1", other.Towers[3].Sequence)
	assert.Empty(t, other.CentralImage)
}

func TestCatalogReaders(t *testing.T) {
	catalog, err := ReadLineCatalog(&domain.Table{
		Columns: []string{"CONCESSÕES", "LT"},
		Rows: []domain.Row{
			{"CONCESSÕES": "JAURU", "LT": "LT JUJB C2"},
			{"CONCESSÕES": "BRASNORTE", "LT": "LT BNNM C2"},
			{"CONCESSÕES": "BRASNORTE", "LT": "LT BNNM C1"},
			{"CONCESSÕES": "BRASNORTE", "LT": "LT BNNM C1"},
			{"CONCESSÕES": "BRASNORTE", "LT": ""},
			{"CONCESSÕES": " ", "LT": "LT X"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"BRASNORTE", "JAURU"}, catalog.Concessions())
	assert.Equal(t, []string{"LT BNNM C1", "LT BNNM C2"}, catalog.Lines("BRASNORTE"))
	assert.Empty(t, catalog.Lines("NADA"))

	_, err = ReadLineCatalog(&domain.Table{Columns: []string{"LT"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchemaMismatch))

	lengths := ReadLineLengths(&domain.Table{
		Columns: []string{"LT", "KM", "Terminal A"},
		Rows: []domain.Row{
			{"LT": "LT JUJB C2", "KM": "120.5", "Terminal A": "SE Jauru"},
			{"LT": "LT SEM KM", "KM": "", "Terminal A": "SE X"},
		},
	})
	got := lengths.Lookup("LT JUJB C2")
	require.NotNil(t, got.LengthKm)
	assert.Equal(t, 120.5, *got.LengthKm)
	assert.Equal(t, "SE Jauru", got.TerminalA)
	assert.Nil(t, lengths.Lookup("LT SEM KM").LengthKm)
	assert.Equal(t, TerminalNotFound, lengths.Lookup("LT ???").TerminalA)
	assert.Equal(t, TerminalNotFound, ReadLineLengths(nil).Lookup("LT JUJB C2").TerminalA)

	_, err = ReadTowerFigures(&domain.Table{Columns: []string{"a", "b", "c"}})
	assert.Error(t, err)
	figs, err := ReadTowerFigures(&domain.Table{
		Columns: []string{"Código", "Figura", "Sequência", "Obs", "Imagem"},
		Rows:    []domain.Row{{"Código": "J1", "Figura": "F1", "Sequência": "cba", "Imagem": "a.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, TowerFigure{Figure: "F1", Sequence: "CBA", ImagePath: "a.png"}, figs["J1"])
}

func TestService_Locate(t *testing.T) {
	wb := &domain.Workbook{Sheets: []*domain.Table{
		{Name: SheetCatalog, Columns: []string{"CONCESSÕES", "LT"},
			Rows: []domain.Row{{"CONCESSÕES": "JAURU", "LT": "LT JUJB C2"}}},
		{Name: SheetLengths, Columns: []string{"LT", "KM", "Terminal"},
			Rows: []domain.Row{{"LT": "LT JUJB C2", "KM": "31", "Terminal": "SE Jauru"}}},
		{Name: SheetFigures, Columns: []string{"a", "b"}},
		lineSheet(),
	}}

	svc := NewService(logger.Discard())
	res, err := svc.Locate(wb, Request{Concession: "JAURU", Line: "LT JUJB C2", Phase: "AG", SearchKm: 12})
	require.NoError(t, err)
	assert.Equal(t, "SE Jauru", res.Line.TerminalA)
	assert.Equal(t, 15.0, res.View.CentralKm)
	assert.NotEmpty(t, res.Reason)

	_, err = svc.Locate(wb, Request{Concession: "JAURU", Line: "LT NOPE", Phase: "AG", SearchKm: 12})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingSheet))

	_, err = svc.Locate(&domain.Workbook{}, Request{Line: "LT JUJB C2", Phase: "AG", SearchKm: 12})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingSheet))
}
