package assistant

import (
	"fmt"
	"strings"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// DefaultMaxRows caps how many outages are sent to the model.
const DefaultMaxRows = 400

// promptOverheadTokens approximates the instructions around the data.
const promptOverheadTokens = 300

// contextColumns are the outage fields shared with the model, in order.
var contextColumns = []struct {
	name  string
	value func(domain.Outage) string
}{
	{"Concessão", func(o domain.Outage) string { return o.Concession }},
	{"Data", func(o domain.Outage) string {
		if o.OccurredAt == nil {
			return ""
		}
		return o.OccurredAt.Format("2006-01-02")
	}},
	{"FT", func(o domain.Outage) string { return o.LineID }},
	{"Causa", func(o domain.Outage) string { return o.Cause }},
	{"Equipamento", func(o domain.Outage) string { return o.Equipment }},
	{"Fase", func(o domain.Outage) string { return o.Phase }},
}

// DataContext is the outage sample embedded in the system prompt.
type DataContext struct {
	Columns         []string `json:"columns"`
	Markdown        string   `json:"-"`
	Note            string   `json:"note,omitempty"`
	Rows            int      `json:"rows"`
	TotalRows       int      `json:"total_rows"`
	EstimatedTokens int      `json:"estimated_tokens"`
}

// BuildContext renders outages as a markdown table. Columns with no value
// in any row are left out. Above maxRows only the first and last halves are
// kept and a note tells the model it sees a sample.
func BuildContext(outages []domain.Outage, maxRows int) *DataContext {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	sample := outages
	note := ""
	if len(outages) > maxRows {
		half := maxRows / 2
		sample = make([]domain.Outage, 0, maxRows)
		sample = append(sample, outages[:half]...)
		sample = append(sample, outages[len(outages)-(maxRows-half):]...)
		note = fmt.Sprintf("(Nota: Exibindo amostra de %d linhas de um total de %d).", maxRows, len(outages))
	}

	var cols []int
	for i, c := range contextColumns {
		for _, o := range outages {
			if c.value(o) != "" {
				cols = append(cols, i)
				break
			}
		}
	}

	var b strings.Builder
	names := make([]string, 0, len(cols))
	for _, i := range cols {
		names = append(names, contextColumns[i].name)
	}
	writeMarkdownRow(&b, names)
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = ":---"
	}
	writeMarkdownRow(&b, seps)
	for _, o := range sample {
		cells := make([]string, 0, len(cols))
		for _, i := range cols {
			cells = append(cells, contextColumns[i].value(o))
		}
		writeMarkdownRow(&b, cells)
	}

	md := b.String()
	return &DataContext{
		Columns:         names,
		Markdown:        md,
		Note:            note,
		Rows:            len(sample),
		TotalRows:       len(outages),
		EstimatedTokens: len(md)/4 + promptOverheadTokens,
	}
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	if len(cells) == 0 {
		return
	}
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(c), "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
