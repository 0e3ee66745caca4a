package pipeline

import (
	"testing"

	"belfiore/internal"
)

func row(pairs ...string) *internal.RawRow {
	r := internal.NewRawRow()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func TestMapComuneRow(t *testing.T) {
	m := NewMapper(ComuneProfile())

	rec, outcome := m.Map(row(
		"codcatastale", "h501",
		"denominazione_it", "ROMA",
		"siglaprovincia", "RM",
		"codistat", "058091",
		"cap", "00100",
		"dataistituzione", "13/10/1946",
		"datacessazione", "",
	), internal.TypeComune, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.CodiceCatastale != "H501" {
		t.Fatalf("key not upper-cased: %q", rec.CodiceCatastale)
	}
	if rec.DenominazioneIT != "Roma" {
		t.Fatalf("denomination not title-cased: %q", rec.DenominazioneIT)
	}
	if rec.ItemType != internal.TypeComune || rec.IsForeignState {
		t.Fatalf("type fields wrong: %+v", rec)
	}
	if rec.Provincia == nil || *rec.Provincia != "RM" {
		t.Fatalf("provincia: %+v", rec.Provincia)
	}
	if rec.Stato == nil || *rec.Stato != "IT" {
		t.Fatalf("stato default not applied: %+v", rec.Stato)
	}
	if rec.Tipo == nil || *rec.Tipo != "Comune" {
		t.Fatalf("tipo default not applied: %+v", rec.Tipo)
	}
	if rec.Fonte == nil || *rec.Fonte != "ANPR" {
		t.Fatalf("fonte default not applied: %+v", rec.Fonte)
	}
	if rec.ValidFrom == nil || *rec.ValidFrom != "1946-10-13" {
		t.Fatalf("valid_from: %+v", rec.ValidFrom)
	}
	if rec.ValidTo != nil {
		t.Fatalf("empty date must stay absent, got %q", *rec.ValidTo)
	}
}

func TestMapStatoFallbackAndBooleans(t *testing.T) {
	m := NewMapper(StatoProfile())

	rec, outcome := m.Map(row(
		"DENOMINAZIONE_IT", "ALBANIA",
		"CODAT", "Z100",
		"TIPO", "S",
		"CITTADINANZA", "S",
		"NASCITA", "N",
	), internal.TypeStato, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.CodiceCatastale != "Z100" {
		t.Fatalf("fallback column not used: %q", rec.CodiceCatastale)
	}
	if rec.DenominazioneIT != "Albania" {
		t.Fatalf("denomination: %q", rec.DenominazioneIT)
	}
	if rec.ItemType != internal.TypeStato || !rec.IsForeignState {
		t.Fatalf("discriminator S must mean foreign state: %+v", rec)
	}
	if rec.Cittadinanza == nil || !*rec.Cittadinanza {
		t.Fatal("CITTADINANZA=S must map to true")
	}
	if rec.Nascita == nil || *rec.Nascita {
		t.Fatal("NASCITA=N must map to false")
	}
	if rec.Residenza != nil {
		t.Fatal("absent RESIDENZA column must stay nil")
	}
	if rec.Tipo == nil || *rec.Tipo != "Stato estero" {
		t.Fatalf("tipo default: %+v", rec.Tipo)
	}
}

func TestMapDiscriminatorTerritory(t *testing.T) {
	m := NewMapper(StatoProfile())

	rec, outcome := m.Map(row(
		"DENOMINAZIONE_IT", "GIBILTERRA",
		"CODAT", "Z113",
		"TIPO", "T",
	), internal.TypeStato, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.ItemType != internal.TypeTerritorio || !rec.IsForeignState {
		t.Fatalf("discriminator T must mean foreign territory: %+v", rec)
	}
}

func TestMapDiscriminatorDomesticCode(t *testing.T) {
	m := NewMapper(StatoProfile())

	rec, outcome := m.Map(row(
		"DENOMINAZIONE_IT", "CAMPIONE D'ITALIA",
		"CODAT", "B375",
		"TIPO", "C",
	), internal.TypeStato, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.ItemType != internal.TypeComune || rec.IsForeignState {
		t.Fatalf("discriminator C must mean domestic comune: %+v", rec)
	}
}

func TestMapDiscriminatorUnknownCodeFallsBackToSyncType(t *testing.T) {
	m := NewMapper(StatoProfile())

	rec, outcome := m.Map(row(
		"DENOMINAZIONE_IT", "ALBANIA",
		"CODAT", "Z100",
		"TIPO", "X",
	), internal.TypeStato, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.ItemType != internal.TypeStato || !rec.IsForeignState {
		t.Fatalf("unknown code must fall back to the sync type: %+v", rec)
	}
}

func TestMapItalySpecialCase(t *testing.T) {
	m := NewMapper(StatoProfile())

	rec, outcome := m.Map(row(
		"DENOMINAZIONE_IT", "ITALIA",
		"CODAT", "Z000",
		"TIPO", "S",
		"CITTADINANZA", "N",
	), internal.TypeStato, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.CodiceCatastale != internal.ItalyCode {
		t.Fatalf("home country must take the sentinel key, got %q", rec.CodiceCatastale)
	}
	if rec.IsForeignState {
		t.Fatal("home country must not be foreign")
	}
	for _, b := range []*bool{rec.Cittadinanza, rec.Nascita, rec.Residenza} {
		if b == nil || !*b {
			t.Fatal("home country capabilities must all be true")
		}
	}
	if rec.DenominazioneDE == nil || *rec.DenominazioneDE != "Italien" {
		t.Fatalf("denominazione_de: %+v", rec.DenominazioneDE)
	}
	if rec.DenominazioneEN == nil || *rec.DenominazioneEN != "Italy" {
		t.Fatalf("denominazione_en: %+v", rec.DenominazioneEN)
	}
}

func TestMapRejectsEmptyKey(t *testing.T) {
	m := NewMapper(ComuneProfile())

	_, outcome := m.Map(row(
		"codcatastale", "  ",
		"denominazione_it", "ROMA",
		"siglaprovincia", "RM",
	), internal.TypeComune, false)

	if outcome.Kept || outcome.Reason != internal.DropEmptyKey {
		t.Fatalf("expected empty_key drop, got %+v", outcome)
	}
}

func TestMapRejectsMissingDenominationColumn(t *testing.T) {
	m := NewMapper(ComuneProfile())

	_, outcome := m.Map(row(
		"codcatastale", "H501",
		"siglaprovincia", "RM",
	), internal.TypeComune, false)

	if outcome.Kept || outcome.Reason != internal.DropMissingColumns {
		t.Fatalf("expected missing_columns drop, got %+v", outcome)
	}
}

func TestMapFileBatchTypeGuess(t *testing.T) {
	m := NewMapper(ComuneProfile())

	// No two-letter province sigla, so the row looks like a state entry.
	stateish := row(
		"codcatastale", "Z100",
		"denominazione_it", "ALBANIA",
	)

	_, outcome := m.Map(stateish, internal.TypeComune, true)
	if outcome.Kept || outcome.Reason != internal.DropTypeMismatch {
		t.Fatalf("file batch must drop mismatched rows, got %+v", outcome)
	}

	_, outcome = m.Map(stateish, internal.TypeComune, false)
	if !outcome.Kept {
		t.Fatalf("url batch must skip the guess, got %+v", outcome)
	}
}

func TestMapDateWrongPatternIsAbsent(t *testing.T) {
	m := NewMapper(ComuneProfile())

	rec, outcome := m.Map(row(
		"codcatastale", "H501",
		"denominazione_it", "ROMA",
		"siglaprovincia", "RM",
		"dataistituzione", "1946-10-13",
	), internal.TypeComune, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.ValidFrom != nil {
		t.Fatalf("ISO input does not match DD/MM/YYYY, expected absent, got %q", *rec.ValidFrom)
	}
}

func TestMapDefaultsNeverOverrideMappedValues(t *testing.T) {
	p := Profile{
		Name:   "custom",
		Driver: DriverCSV,
		Fields: []FieldSpec{
			{Field: "codice_catastale", Column: "codcatastale"},
			{Field: "denominazione_it", Column: "denominazione_it"},
			{Field: "stato", Column: "stato"},
		},
		Defaults: map[string]string{"stato": "IT"},
	}
	m := NewMapper(p)

	rec, outcome := m.Map(row(
		"codcatastale", "Z110",
		"denominazione_it", "FRANCIA",
		"stato", "FR",
	), internal.TypeStato, false)

	if !outcome.Kept {
		t.Fatalf("row dropped: %s", outcome.Reason)
	}
	if rec.Stato == nil || *rec.Stato != "FR" {
		t.Fatalf("default replaced a mapped value: %+v", rec.Stato)
	}
}
