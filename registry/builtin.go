package registry

// DipresLeyHeader is the 9-column header the DIPRES budget-law CSV carries.
// The header check is byte equality after whitespace trimming; the accented
// Ítem is part of the contract.
var DipresLeyHeader = []string{
	"Partida",
	"Capitulo",
	"Programa",
	"Subtitulo",
	"Ítem",
	"Asignacion",
	"Denominacion",
	"Monto Pesos",
	"Monto Dolar",
}

// dipresLeySource builds the DIPRES ley source for one budget year.
// Monto Dolar stays unmapped until a USD metric is registered.
func dipresLeySource(id string, year int) *Source {
	return &Source{
		ID:        id,
		MimeType:  "text/csv",
		Delimiter: ";",
		Encoding:  "utf-8",
		Strategy:  StrategyDipresLeyCSV,
		Header:    DipresLeyHeader,
		Mapping: Mapping{
			EntityKeyColumn:  "Partida",
			EntityNameColumn: "Denominacion",
			ValueColumn:      "Monto Pesos",
			BreakdownColumn:  "Subtitulo",
			RequiredColumns:  []string{"Partida", "Denominacion", "Monto Pesos"},
		},
		MetricKey:  "presupuesto_ley",
		Year:       year,
		EntityType: "partida",
	}
}

// builtinSources returns the sources shipped with the binary. File-based
// registration can extend or override these.
func builtinSources() []*Source {
	return []*Source{
		dipresLeySource("dipres_ley_2024", 2024),
		dipresLeySource("dipres_ley_2025", 2025),
		dipresLeySource("dipres_ley_2026", 2026),
	}
}
