package pipeline

import (
	"belfiore/internal"
	"belfiore/internal/source"
)

// BuiltinRegistry returns a registry with the two official feeds: the ANPR
// municipality archive (semicolon CSV) and the foreign states grid table.
func BuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(ComuneProfile())
	r.Register(StatoProfile())
	return r
}

func ComuneProfile() Profile {
	return Profile{
		Name:   "comune",
		Driver: DriverCSV,
		Source: source.Request{
			Kind:     source.KindURL,
			Location: "https://www.anagrafenazionale.interno.it/wp-content/uploads/ANPR_archivio_comuni.csv",
		},
		Options: ParseOptions{
			Delimiter: ";",
			Quote:     `"`,
			Escape:    `\`,
			HasHeader: true,
			Encoding:  "ISO-8859-1",
		},
		Fields: []FieldSpec{
			{Field: "codice_catastale", Column: "codcatastale"},
			{Field: "denominazione_it", Column: "denominazione_it"},
			{Field: "denominazione_de", Column: "altradenominazione"},
			{Field: "altra_denominazione", Column: "denomtraslitterata"},
			{Field: "codice_istat", Column: "codistat"},
			{Field: "provincia", Column: "siglaprovincia"},
			{Field: "regione", Column: "idregione"},
			{Field: "cap", Column: "cap"},
			{Field: "valid_from", Column: "dataistituzione", Transform: "date_dmy_slash"},
			{Field: "valid_to", Column: "datacessazione", Transform: "date_dmy_slash"},
			{Field: "last_change", Column: "dataultimoagg", Transform: "date_dmy_slash"},
		},
		Defaults: map[string]string{
			"stato": "IT",
			"fonte": "ANPR",
			"tipo":  "Comune",
		},
	}
}

func StatoProfile() Profile {
	return Profile{
		Name:   "stato",
		Driver: DriverRST,
		Source: source.Request{
			Kind:     source.KindURL,
			Location: "https://www.anagrafenazionale.interno.it/wp-content/uploads/tabella_stati_territori.txt",
		},
		Options: ParseOptions{
			Encoding: "UTF-8",
		},
		Fields: []FieldSpec{
			{Field: "codice_catastale", Column: "CODCATASTALE", Fallbacks: []string{"CODAT"}},
			{Field: "denominazione_it", Column: "DENOMINAZIONE_IT"},
			{Field: "denominazione_en", Column: "DENOMINAZIONE_EN"},
			{Field: "altra_denominazione", Column: "ALTRADENOMINAZIONE"},
			{Field: "codice_istat", Column: "CODISTAT"},
			{Field: "codice_min", Column: "CODMIN"},
			{Field: "codice_iso", Column: "CODISO"},
			{Field: "stato", Column: "CODISO"},
			{Field: "cittadinanza", Column: "CITTADINANZA", Transform: "bool_s_n"},
			{Field: "nascita", Column: "NASCITA", Transform: "bool_s_n"},
			{Field: "residenza", Column: "RESIDENZA", Transform: "bool_s_n"},
			{Field: "valid_from", Column: "DATAINIZIOVALIDITA", Transform: "date_dmy_slash"},
			{Field: "valid_to", Column: "DATAFINEVALIDITA", Transform: "date_dmy_slash"},
		},
		Defaults: map[string]string{
			"fonte": "ANPR",
			"tipo":  "Stato estero",
		},
		Discriminator: &Discriminator{
			Column: "TIPO",
			Codes: map[string]TypeClass{
				"S": {ItemType: internal.TypeStato, IsForeign: true},
				"T": {ItemType: internal.TypeTerritorio, IsForeign: true},
				"C": {ItemType: internal.TypeComune, IsForeign: false},
			},
		},
	}
}
