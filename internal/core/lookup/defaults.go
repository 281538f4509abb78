package lookup

var defaultCauses = []Pair{
	{"Não se Aplica", "NA"},
	{"Descarga Atmosférica", "DAT"},
	{"Queimada", "QMD"},
	{"Queimadas", "QMD"},
	{"Curicaca / Aves", "CRC"},
	{"Excremento de Pássaro", "CRC"},
	{"Vegetação", "VGT"},
	{"Outros", "OTR"},
	{"EXPLOSÃO", "EXP"},
	{"ACIDENTAL", "DAC"},
	{"PROTEÇÃO, MEDIÇÃO E CONTROLE", "PMC"},
	{"FALHA EM ACESSÓRIOS E COMPONENTES", "FAC"},
	{"Equipamentos e Acessórios", "FAC"},
	{"INDETERMINADA", "IND"},
	{"Causa indeterminada", "IND"},
	{"CONDIÇÕES ANORMAIS DE OPERAÇÃO", "CAO"},
	{"ERRO DE AJUSTE", "EDA"},
	{"RAJADA DE VENTO", "RDV"},
	{"Queda de Torre", "QTR"},
	{"Condições Metereológicas Adversas", "CMA"},
	{"Falhas humanas", "FHU"},
	{"Colisão Avião Agricola", "CAA"},
	{"Causa Externa a FT", "CEFT"},
}

var defaultLines = []Pair{
	{"LT 500kV Serra da Mesa - Samambaia", "LT SMSB C3"},
	{"LT 500kV Serra da Mesa - Gurupi", "LT SMGU C2"},
	{"LT 500kV Gurupi - Miracema", "LT GUMC C2"},
	{"LT 500kV Colinas - Miracema", "LT COMC C2"},
	{"LT 500kV Imperatriz - Colinas", "LT IZCO C2"},
	{"LT 500kV Serra da Mesa - Serra da Mesa 2", "LT SMSD"},
	{"LT 500kV Serra da Mesa 2 - Rio das Éguas", "LT SDRDE"},
	{"LT 500kV Rio das Éguas - Bom Jesus da Lapa", "LT RDEBJD"},
	{"LT 500kV MIRACEMA-GURUPI C2", "LT GUMC C2"},
	{"LT 500kV RIO DAS ÉGUAS-B JESUS LAPA II", "LT RDEBJD"},
	{"LT 500kV LAJEADO-MIRACEMA C1", "LT LJMC C1"},
	{"LT 500kV GURUPI-SERRA DA MESA C2", "LT SMGU C2"},
	{"LT 500kV SERRA DA MESA II-RIO DAS ÉGUAS", "LT SDRDE"},
	{"LT 230 kV BRASNORTE - NOVA MUTUM 1", "LT BNNM C1"},
	{"LT 230 kV BRASNORTE - NOVA MUTUM 2", "LT BNNM C2"},
	{"LT 230kV BARREIRAS/RIO GRANDE II C1", "LT RGDBRA C1"},
	{"LT 230kV BARREIRAS II/RIO GRANDE II C1", "LT BRABRD C1"},
	{"LT 500kV COLINAS-MIRACEMA C2", "LT COMC C2"},
	{"LT 230kV LAJEADO-PALMAS C1", "LT LJPL C1"},
	{"LT 500kV SERRA DA MESA-SAMAMBAIA C3", "LT SMSB C3"},
	{"LT 500kV LAJEADO-MIRACEMA C2", "LT LJMC C2"},
	{"LT 500kV SERRA DA MESA-SERRA DA MESA II", "LT SMSD"},
	{"LT 230kV JAURU-JUBA C2", "LT JUJB C2"},
	// TODO(product): confirm C1 really maps to the C2 code.
	{"LT 230kV JAURU-JUBA C1", "LT JUJB C2"},
	{"LT 230kV LAJEADO-PALMAS C2", "LT LJPL C2"},
	{"LT 230 kV BRASNORTE - NOVA MUTUM 1 / LT 230 kV BRASNORTE - NOVA MUTUM 2", "LT BNNM C1 / LT BNNM C2 "},
}

// Declaration order matters: the second block redefines ABG, ABT, BCG, BCT,
// CAG and CAT, and the later value wins. Pending product-owner review.
var defaultPhases = []Pair{
	{"A", "AN"},
	{"AG", "AN"},
	{"AT", "AN"},
	{"B", "BN"},
	{"BG", "BN"},
	{"BT", "BN"},
	{"C", "CN"},
	{"CG", "CN"},
	{"CT", "CN"},
	{"V", "CN"},
	{"FV", "CN"},
	{"ABN", "AB"},
	{"ABG", "AB"},
	{"ABT", "AB"},
	{"BCN", "BC"},
	{"BCG", "BC"},
	{"BCT", "BC"},
	{"CAN", "CA"},
	{"CAG", "CA"},
	{"CAT", "CA"},
	{"ABG", "ABN"},
	{"ABT", "ABN"},
	{"BCG", "BCN"},
	{"BCT", "BCN"},
	{"CAG", "CAN"},
	{"CAT", "CAN"},
}

// Whole-cell replacements for bare tower prefixes in the sync output.
var defaultTowers = []Pair{
	{"T", "Torre "},
	{"TORRE", "Torre "},
}

var defaultLegend = []Pair{
	{"DAT", "Descarga Atmosférica"},
	{"QMD", "Queimada / Incêndio"},
	{"CRC", "Curicaca / Aves / Excrementos"},
	{"VGT", "Vegetação"},
	{"OTR", "Outros / Diversos"},
	{"EXP", "Explosão"},
	{"DAC", "Acidental / Colisão"},
	{"PMC", "Proteção, Medição e Controle"},
	{"FAC", "Falha em Acessórios / Equipamentos"},
	{"IND", "Causa Indeterminada"},
	{"CAO", "Condições Anormais de Operação"},
	{"EDA", "Erro de Ajuste"},
	{"RDV", "Rajada de Vento / Vendaval"},
	{"QTR", "Queda de Torre"},
	{"CMA", "Condições Metereológicas Adversas"},
	{"FHU", "Falha Humana"},
	{"CAA", "Colisão Avião Agrícola"},
	{"CEFT", "Causa Externa à FT"},
}
