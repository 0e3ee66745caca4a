package internal

import (
	"fmt"
	"strings"
)

type ItemType string

const (
	TypeComune     ItemType = "comune"
	TypeStato      ItemType = "stato"
	TypeProvincia  ItemType = "provincia"
	TypeRegione    ItemType = "regione"
	TypeTerritorio ItemType = "territorio"
)

// ParseItemTypes reads a comma-separated type list. "both" expands to the
// two standard feeds, and an empty list selects them as well.
func ParseItemTypes(raw string) ([]ItemType, error) {
	seen := make(map[ItemType]bool)
	var out []ItemType
	add := func(t ItemType) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	for _, part := range strings.Split(strings.ToLower(raw), ",") {
		switch strings.TrimSpace(part) {
		case "comune":
			add(TypeComune)
		case "stato":
			add(TypeStato)
		case "provincia":
			add(TypeProvincia)
		case "regione":
			add(TypeRegione)
		case "territorio":
			add(TypeTerritorio)
		case "both":
			add(TypeComune)
			add(TypeStato)
		case "":
		default:
			return nil, fmt.Errorf("unknown item type: %q", strings.TrimSpace(part))
		}
	}

	if len(out) == 0 {
		return []ItemType{TypeComune, TypeStato}, nil
	}
	return out, nil
}

// ItalyCode is the synthetic codice catastale of the domestic sentinel row.
// Domestic birthplaces carry the municipality code instead, so the value can
// never collide with a real Belfiore code.
const ItalyCode = "*"

type GeoRecord struct {
	ItemType           ItemType
	DenominazioneIT    string
	DenominazioneDE    *string
	DenominazioneEN    *string
	AltraDenominazione *string
	CodiceCatastale    string
	Provincia          *string
	Regione            *string
	Stato              *string
	IsForeignState     bool
	CodiceISTAT        *string
	CodiceMin          *string
	CodiceISO          *string
	Cittadinanza       *bool
	Nascita            *bool
	Residenza          *bool
	Tipo               *string
	Fonte              *string
	CAP                *string
	ValidFrom          *string
	ValidTo            *string
	LastChange         *string
}

func ItalyRecord() GeoRecord {
	t := true
	de := "Italien"
	en := "Italy"
	tipo := "Nazione"
	return GeoRecord{
		ItemType:        TypeStato,
		DenominazioneIT: "Italia",
		DenominazioneDE: &de,
		DenominazioneEN: &en,
		CodiceCatastale: ItalyCode,
		IsForeignState:  false,
		Cittadinanza:    &t,
		Nascita:         &t,
		Residenza:       &t,
		Tipo:            &tipo,
	}
}

// RawRow is one parsed source row: header -> cell pairs in source order.
// Rows without a usable header carry positional keys ("0", "1", ...).
type RawRow struct {
	keys   []string
	values map[string]string
}

func NewRawRow() *RawRow {
	return &RawRow{values: make(map[string]string)}
}

func (r *RawRow) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get resolves key exactly, then lower-cased, then upper-cased, so callers
// can use one vocabulary against both the grid feed (upper-case headers) and
// the delimited feed (headers lowered during parsing).
func (r *RawRow) Get(key string) (string, bool) {
	if v, ok := r.values[key]; ok {
		return v, true
	}
	if v, ok := r.values[strings.ToLower(key)]; ok {
		return v, true
	}
	if v, ok := r.values[strings.ToUpper(key)]; ok {
		return v, true
	}
	return "", false
}

func (r *RawRow) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

func (r *RawRow) Keys() []string {
	return r.keys
}

func (r *RawRow) Len() int {
	return len(r.keys)
}

type DropReason string

const (
	DropTypeMismatch   DropReason = "type_mismatch"
	DropEmptyKey       DropReason = "empty_key"
	DropMissingColumns DropReason = "missing_columns"
	DropDuplicateKey   DropReason = "duplicate_key"
)

// TypeStats accumulates one sync pass over a single item type.
type TypeStats struct {
	ItemType ItemType       `json:"itemType"`
	Parsed   int            `json:"parsed"`
	Mapped   int            `json:"mapped"`
	Dropped  map[string]int `json:"dropped,omitempty"`
	Deleted  int64          `json:"deleted"`
	Upserted int            `json:"upserted"`
}

func NewTypeStats(t ItemType) *TypeStats {
	return &TypeStats{ItemType: t, Dropped: make(map[string]int)}
}

func (s *TypeStats) Drop(reason DropReason) {
	s.Dropped[string(reason)]++
}

func (s *TypeStats) DropN(reason DropReason, n int) {
	if n > 0 {
		s.Dropped[string(reason)] += n
	}
}

func (s *TypeStats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// SyncReport is the outcome of one places:sync invocation.
type SyncReport struct {
	RunID      string
	DryRun     bool
	Types      []*TypeStats
	Sample     []GeoRecord
	DurationMS int64
}

func (r *SyncReport) TotalUpserted() int {
	n := 0
	for _, t := range r.Types {
		n += t.Upserted
	}
	return n
}

func (r *SyncReport) TotalMapped() int {
	n := 0
	for _, t := range r.Types {
		n += t.Mapped
	}
	return n
}
