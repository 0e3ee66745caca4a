package pipeline

import (
	"strings"

	"belfiore/internal"
	"belfiore/internal/util"
)

// Outcome reports what the mapper did with one raw row. Dropping a row is
// routine control flow, never an error: the reasons surface as counts in the
// sync report.
type Outcome struct {
	Kept   bool
	Reason internal.DropReason
}

func kept() Outcome { return Outcome{Kept: true} }

func dropped(reason internal.DropReason) Outcome { return Outcome{Reason: reason} }

var denominationFields = map[string]bool{
	"denominazione_it":    true,
	"denominazione_de":    true,
	"denominazione_en":    true,
	"altra_denominazione": true,
}

type Mapper struct {
	profile Profile
}

func NewMapper(profile Profile) *Mapper {
	return &Mapper{profile: profile}
}

// Map applies the profile to one raw row and produces at most one canonical
// record. The discriminator runs before the field loop so that profile
// defaults can never override an explicit type classification. fromFile
// marks file-sourced batches, the only ones subject to the type-guess
// heuristic below.
func (m *Mapper) Map(row *internal.RawRow, syncType internal.ItemType, fromFile bool) (internal.GeoRecord, Outcome) {
	fields := make(map[string]string)
	var (
		itemType     internal.ItemType
		itemTypeSet  bool
		isForeign    bool
		isForeignSet bool
	)

	if d := m.profile.Discriminator; d != nil {
		if v, ok := row.Get(d.Column); ok {
			if cls, ok := d.Codes[strings.ToUpper(strings.TrimSpace(v))]; ok {
				itemType, itemTypeSet = cls.ItemType, true
				isForeign, isForeignSet = cls.IsForeign, true
			}
		}
	}

	for _, spec := range m.profile.Fields {
		value := columnValue(row, spec.Column)
		for _, fb := range spec.Fallbacks {
			if value != "" {
				break
			}
			value = columnValue(row, fb)
		}
		if value == "" {
			value = spec.Default
		}
		if value == "" {
			continue
		}

		value = util.SanitizeValue(value)
		if spec.Transform != "" {
			if fn, ok := transforms[spec.Transform]; ok {
				var present bool
				if value, present = fn(value); !present {
					continue
				}
			}
		}
		if value == "" {
			continue
		}
		if denominationFields[spec.Field] {
			value = util.TitleCase(value)
		}
		fields[spec.Field] = value
	}

	for field, def := range m.profile.Defaults {
		switch field {
		case "item_type":
			if !itemTypeSet {
				itemType, itemTypeSet = internal.ItemType(def), true
			}
		case "is_foreign_state":
			if !isForeignSet {
				isForeign, isForeignSet = coerceBool(def), true
			}
		default:
			if _, ok := fields[field]; !ok && def != "" {
				fields[field] = def
			}
		}
	}

	if !itemTypeSet {
		itemType = syncType
	}
	if !isForeignSet {
		isForeign = syncType == internal.TypeStato || syncType == internal.TypeTerritorio
	}

	// The home country appears in the foreign-states feed but must become
	// the reserved, non-foreign row every domestic birthplace resolves
	// against.
	if syncType == internal.TypeStato && strings.EqualFold(fields["denominazione_it"], "italia") {
		fields["codice_catastale"] = internal.ItalyCode
		isForeign = false
		fields["cittadinanza"] = "true"
		fields["nascita"] = "true"
		fields["residenza"] = "true"
		if fields["tipo"] == "" {
			fields["tipo"] = "Nazione"
		}
		if fields["denominazione_de"] == "" {
			fields["denominazione_de"] = "Italien"
		}
		if fields["denominazione_en"] == "" {
			fields["denominazione_en"] = "Italy"
		}
	}

	// A local file may carry either feed regardless of its profile, so
	// file batches guess the row's type from the shape of the province
	// column and drop rows that disagree with the type being synced.
	if fromFile && guessType(row) != syncType {
		return internal.GeoRecord{}, dropped(internal.DropTypeMismatch)
	}

	key := strings.ToUpper(strings.TrimSpace(fields["codice_catastale"]))
	if key == "" {
		return internal.GeoRecord{}, dropped(internal.DropEmptyKey)
	}

	// Both feeds must carry a denomination plus a catastale code column,
	// in the grid vocabulary (DENOMINAZIONE_IT with CODAT or CODCATASTALE)
	// or its lower-cased delimited twin.
	if !row.Has("denominazione_it") || (!row.Has("codat") && !row.Has("codcatastale")) {
		return internal.GeoRecord{}, dropped(internal.DropMissingColumns)
	}

	rec := internal.GeoRecord{
		ItemType:           itemType,
		DenominazioneIT:    fields["denominazione_it"],
		DenominazioneDE:    optString(fields, "denominazione_de"),
		DenominazioneEN:    optString(fields, "denominazione_en"),
		AltraDenominazione: optString(fields, "altra_denominazione"),
		CodiceCatastale:    key,
		Provincia:          optString(fields, "provincia"),
		Regione:            optString(fields, "regione"),
		Stato:              optString(fields, "stato"),
		IsForeignState:     isForeign,
		CodiceISTAT:        optString(fields, "codice_istat"),
		CodiceMin:          optString(fields, "codice_min"),
		CodiceISO:          optString(fields, "codice_iso"),
		Cittadinanza:       optBool(fields, "cittadinanza"),
		Nascita:            optBool(fields, "nascita"),
		Residenza:          optBool(fields, "residenza"),
		Tipo:               optString(fields, "tipo"),
		Fonte:              optString(fields, "fonte"),
		CAP:                optString(fields, "cap"),
		ValidFrom:          optString(fields, "valid_from"),
		ValidTo:            optString(fields, "valid_to"),
		LastChange:         optString(fields, "last_change"),
	}
	return rec, kept()
}

// columnValue resolves one column case-insensitively; whitespace-only
// values count as empty so fallbacks still apply.
func columnValue(row *internal.RawRow, column string) string {
	if column == "" {
		return ""
	}
	if v, ok := row.Get(column); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return ""
}

// guessType infers a row's type from the province column: a two-letter
// sigla means municipality, anything else means state.
func guessType(row *internal.RawRow) internal.ItemType {
	v, ok := row.Get("siglaprovincia")
	if !ok {
		v, _ = row.Get("sigla_provincia")
	}
	if len([]rune(strings.TrimSpace(v))) == 2 {
		return internal.TypeComune
	}
	return internal.TypeStato
}

func optString(fields map[string]string, key string) *string {
	if v, ok := fields[key]; ok && v != "" {
		return util.StringPtr(v)
	}
	return nil
}

func optBool(fields map[string]string, key string) *bool {
	v, ok := fields[key]
	if !ok || v == "" {
		return nil
	}
	return util.BoolPtr(coerceBool(v))
}

func coerceBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "s", "si", "sì", "yes":
		return true
	}
	return false
}
