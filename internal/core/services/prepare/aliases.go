package prepare

import "strings"

// Canonical field names shared by both datasets.
const (
	FieldTower = "torre"
	FieldLine  = "ft"
	FieldDate  = "data"
)

// Outage fields.
const (
	FieldConcession = "concessao"
	FieldEquipment  = "equipamento"
	FieldPhase      = "fase"
	FieldTime       = "horario"
	FieldProblem    = "problema"
	FieldKmReal     = "km_real"
	FieldCause      = "causa"
)

// Resistance fields.
const (
	FieldMeasLine          = "linha"
	FieldTowerType         = "tipo_torre"
	FieldGroundingPhase    = "fase_aterramento"
	FieldMeasuredAt        = "data_medicao_resistencia"
	FieldResistance        = "resistencia"
	FieldSupervisor        = "supervisor"
	FieldImprovement       = "melhoria"
	FieldImprovedAt        = "data_medicao"
	FieldParallelBefore    = "paralelo_antes"
	FieldParallelAfter     = "paralelo_depois"
	FieldOppositeBefore    = "oposto_antes"
	FieldOppositeAfter     = "oposto_depois"
	FieldPhasesImplemented = "fases_implementadas"
)

type alias struct {
	field string
	names []string
}

// outageAliases maps "Ocorrências" headers to canonical fields.
var outageAliases = []alias{
	{FieldConcession, []string{"Concessão", "Concessao"}},
	{FieldEquipment, []string{"Equipamento"}},
	{FieldLine, []string{"FT", "LT", "Linha"}},
	{FieldPhase, []string{"Fase"}},
	{FieldDate, []string{"Data"}},
	{FieldTime, []string{"Horário", "Horario", "Hora"}},
	{FieldProblem, []string{"Problema"}},
	{"terminal_a_prot_km", []string{"Terminal A - Prot. (km)"}},
	{"terminal_a_tw", []string{"Terminal A - TW"}},
	{"terminal_b_prot_km", []string{"Terminal B - Prot. (km)"}},
	{"terminal_b_tw", []string{"Terminal B - TW"}},
	{FieldTower, []string{"Torre"}},
	{FieldKmReal, []string{"KM Real"}},
	{FieldCause, []string{"Causa"}},
	{"rm", []string{"RM"}},
	{"obs", []string{"Obs"}},
}

// resistanceAliases maps "LT Torre" headers to canonical fields.
var resistanceAliases = []alias{
	{FieldMeasLine, []string{"Linha de Transmissão", "Linha de transmissao"}},
	{FieldTower, []string{"Torre", "Número Operação", "Numero Operacao"}},
	{FieldTowerType, []string{"Tipo de Torre"}},
	{FieldGroundingPhase, []string{"Fase de Aterramento"}},
	{FieldMeasuredAt, []string{
		"Data da medição da resistência de aterramento",
		"Data da medição da resistência do aterramento",
	}},
	{FieldResistance, []string{
		"Última Medição Resistência de aterramento (Ω)",
		"Ultima Medicao Resistencia",
		"Resistência",
		"Resistencia",
	}},
	{FieldSupervisor, []string{"Supervisor"}},
	{FieldImprovement, []string{"Melhoria Aterramento"}},
	{FieldImprovedAt, []string{"Data Medição"}},
	{FieldParallelBefore, []string{"Medição Paralelo Antes (Ω)"}},
	{FieldParallelAfter, []string{"Medição Paralelo Depois (Ω)"}},
	{FieldOppositeBefore, []string{"Medição Oposto Antes (Ω)"}},
	{FieldOppositeAfter, []string{"Medição Oposto Depois (Ω)"}},
	{FieldPhasesImplemented, []string{"Fases Implementadas"}},
}

// headers is the result of matching a sheet's columns against an alias list.
type headers struct {
	byField  map[string]string // canonical field -> original header
	byHeader map[string]string // original header -> canonical field
}

// resolveHeaders matches columns case-insensitively on trimmed text. When two
// columns match the same field the first one is used.
func resolveHeaders(columns []string, aliases []alias) headers {
	h := headers{
		byField:  make(map[string]string),
		byHeader: make(map[string]string),
	}
	for _, col := range columns {
		name := strings.TrimSpace(col)
		for _, a := range aliases {
			if _, taken := h.byField[a.field]; taken {
				continue
			}
			if matchesAny(name, a.names) {
				h.byField[a.field] = col
				h.byHeader[col] = a.field
				break
			}
		}
	}
	return h
}

func matchesAny(name string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(name, strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}

func (h headers) has(field string) bool {
	_, ok := h.byField[field]
	return ok
}

// bind maps field to header unless the field is already bound.
func (h headers) bind(field, header string) {
	if h.has(field) {
		return
	}
	h.byField[field] = header
	h.byHeader[header] = field
}

func (h headers) missing(fields ...string) []string {
	var out []string
	for _, f := range fields {
		if !h.has(f) {
			out = append(out, f)
		}
	}
	return out
}
