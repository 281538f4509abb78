package locator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Faulted phases that can be requested.
var validPhases = map[string]bool{"AG": true, "BG": true, "CG": true}

// Only this concession uses the tower figures sheet.
const figuresConcession = "BRASNORTE"

const (
	windowRadius = 3
	xStart       = 1.0
	xEnd         = 9.0
	statusCenter = "Central"
)

// Phase heights by position in a three-letter sequence.
var phaseHeights = [3]float64{3, 2, 1}

// Request selects a line and a fault distance.
type Request struct {
	Concession string  `json:"concession" form:"concession"`
	Line       string  `json:"lt" form:"lt"`
	Phase      string  `json:"phase" form:"phase"`
	SearchKm   float64 `json:"km" form:"km"`
}

// Validate checks the phase and the distance.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Line) == "" {
		return apperrors.InvalidInput("lt is required")
	}
	if !validPhases[strings.ToUpper(r.Phase)] {
		return apperrors.InvalidInput(fmt.Sprintf("phase must be one of AG, BG, CG, got %q", r.Phase))
	}
	if r.SearchKm <= 0 {
		return apperrors.InvalidInput("search km must be greater than 0")
	}
	return nil
}

// phaseLetter is the conductor letter of the requested phase ("AG" -> "A").
func (r Request) phaseLetter() string {
	return strings.ToUpper(r.Phase)[:1]
}

// Point is a position on the span drawing.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SpanTower is one tower of the drawing window.
type SpanTower struct {
	Km        float64 `json:"km"`
	Label     string  `json:"label"`
	Code      string  `json:"code"`
	Sequence  string  `json:"sequence"`
	X         float64 `json:"x"`
	Central   bool    `json:"central"`
	ImagePath string  `json:"image_path,omitempty"`
}

// SpanRow is one line of the tower table shown next to the drawing.
type SpanRow struct {
	Km       float64 `json:"KM"`
	Tower    string  `json:"Torre"`
	Sequence string  `json:"Sequência de Fases"`
	Status   string  `json:"Status"`
}

// SpanView is everything a client needs to draw the fault position.
type SpanView struct {
	Request      Request            `json:"request"`
	Towers       []SpanTower        `json:"towers"`
	CentralKm    float64            `json:"central_km"`
	CentralX     float64            `json:"central_x"`
	SearchX      float64            `json:"search_x"`
	PhaseLines   map[string][]Point `json:"phase_lines"`
	PhaseOrder   []string           `json:"phase_order"`
	Marker       *Point             `json:"marker,omitempty"`
	CentralImage string             `json:"central_image,omitempty"`
	Rows         []SpanRow          `json:"rows"`
}

type spanRow struct {
	km    float64
	label string
	code  string
	raw   string
}

// BuildSpanView reads a line sheet and builds the window of towers around the
// first tower at or beyond the search distance. figures may be nil.
func BuildSpanView(sheet *domain.Table, req Request, figures TowerFigures) (*SpanView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, apperrors.MissingSheet(req.Line)
	}

	rows, err := readSpanRows(sheet)
	if err != nil {
		return nil, err
	}

	central := -1
	for i, r := range rows {
		if r.km >= req.SearchKm {
			central = i
			break
		}
	}
	if central < 0 {
		return nil, apperrors.NoTowerFound(req.SearchKm, req.Line)
	}

	start := max(0, central-windowRadius)
	end := min(len(rows)-1, central+windowRadius)
	window := rows[start : end+1]
	xs := linspace(xStart, xEnd, len(window))

	view := &SpanView{
		Request:    req,
		Towers:     make([]SpanTower, 0, len(window)),
		CentralKm:  rows[central].km,
		PhaseLines: make(map[string][]Point),
		Rows:       make([]SpanRow, 0, len(window)),
	}

	useFigures := req.Concession == figuresConcession
	for i, r := range window {
		tower := SpanTower{
			Km:       r.km,
			Label:    r.label,
			Code:     r.code,
			Sequence: r.code,
			X:        xs[i],
			Central:  start+i == central,
		}
		if fig, ok := figures[r.code]; ok && useFigures {
			tower.Sequence = fig.Sequence
			tower.ImagePath = fig.ImagePath
		}
		if tower.Central {
			view.CentralX = tower.X
			view.CentralImage = tower.ImagePath
		}
		view.addPhasePoints(tower)
		view.Towers = append(view.Towers, tower)

		status := ""
		if r.km == view.CentralKm {
			status = statusCenter
		}
		view.Rows = append(view.Rows, SpanRow{Km: r.km, Tower: r.label, Sequence: r.raw, Status: status})
	}

	view.SearchX = view.searchX(req.SearchKm)
	view.Marker = view.marker(req.phaseLetter())
	return view, nil
}

// readSpanRows folds headers, keeps rows with a numeric km and sorts them by km.
func readSpanRows(sheet *domain.Table) ([]spanRow, error) {
	folded := make(map[string]string, len(sheet.Columns))
	for _, c := range sheet.Columns {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(c), " ", ""))
		if _, dup := folded[key]; !dup {
			folded[key] = c
		}
	}

	kmCol, hasKm := folded["km"]
	phasesCol, hasPhases := folded["fases"]
	if !hasKm || !hasPhases {
		var missing []string
		if !hasKm {
			missing = append(missing, "km")
		}
		if !hasPhases {
			missing = append(missing, "fases")
		}
		return nil, apperrors.MissingColumns(sheet.Name, missing...)
	}
	if len(sheet.Columns) < 4 {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("sheet %q needs at least 4 columns with the description in column D", sheet.Name))
	}
	descCol := sheet.Columns[3]

	rows := make([]spanRow, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		km, err := strconv.ParseFloat(strings.ReplaceAll(row.Get(kmCol), ",", "."), 64)
		if err != nil {
			continue
		}
		raw := row.Get(phasesCol)
		rows = append(rows, spanRow{
			km:    km,
			label: row.Get(descCol),
			code:  strings.ToUpper(raw),
			raw:   raw,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].km < rows[j].km })
	return rows, nil
}

// addPhasePoints places each letter of a three-letter sequence at its height.
// A letter repeated in the sequence keeps its last height.
func (v *SpanView) addPhasePoints(t SpanTower) {
	letters := []rune(t.Sequence)
	if len(letters) != 3 {
		return
	}

	heights := make(map[string]float64, 3)
	order := make([]string, 0, 3)
	for i, r := range letters {
		letter := string(r)
		if _, seen := heights[letter]; !seen {
			order = append(order, letter)
		}
		heights[letter] = phaseHeights[i]
	}

	for _, letter := range order {
		if _, known := v.PhaseLines[letter]; !known {
			v.PhaseOrder = append(v.PhaseOrder, letter)
		}
		v.PhaseLines[letter] = append(v.PhaseLines[letter], Point{X: t.X, Y: heights[letter]})
	}
}

// searchX maps the search distance onto the drawing axis using the window towers.
func (v *SpanView) searchX(searchKm float64) float64 {
	if searchKm == v.CentralKm {
		return v.CentralX
	}

	kms := make([]float64, len(v.Towers))
	for i, t := range v.Towers {
		kms[i] = t.Km
	}
	b, ok := LocateBracket(searchKm, kms)
	if !ok {
		return v.CentralX
	}
	lo, hi := v.Towers[b.Lower], v.Towers[b.Upper]
	return Interpolate(searchKm, lo.Km, hi.Km, lo.X, hi.X)
}

// marker finds the height of the faulted phase line at the search position.
func (v *SpanView) marker(letter string) *Point {
	points := v.PhaseLines[letter]
	if len(points) == 0 {
		return nil
	}

	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
	}
	b, ok := LocateBracket(v.SearchX, xs)
	if !ok {
		return nil
	}
	p0, p1 := points[b.Lower], points[b.Upper]
	return &Point{X: v.SearchX, Y: Interpolate(v.SearchX, p0.X, p1.X, p0.Y, p1.Y)}
}
