package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"belfiore/internal"
)

type DB struct {
	conn *sql.DB

	// BatchSize caps the rows per multi-VALUES upsert statement.
	// UpdateColumns is the column list rewritten on a natural-key conflict.
	BatchSize     int
	UpdateColumns []string
}

var placeColumns = []string{
	"item_type", "denominazione_it", "denominazione_de", "denominazione_en",
	"altra_denominazione", "codice_catastale", "provincia", "regione", "stato",
	"is_foreign_state", "codice_istat", "codice_min", "codice_iso",
	"cittadinanza", "nascita", "residenza", "tipo", "fonte", "cap",
	"valid_from", "valid_to", "last_change",
}

// PlaceUpdateColumns is the default update list: every data column except
// the natural key.
func PlaceUpdateColumns() []string {
	out := make([]string, 0, len(placeColumns)-1)
	for _, c := range placeColumns {
		if c != "codice_catastale" {
			out = append(out, c)
		}
	}
	return out
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, BatchSize: 200, UpdateColumns: PlaceUpdateColumns()}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS places (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_type TEXT NOT NULL,
  denominazione_it TEXT NOT NULL,
  denominazione_de TEXT,
  denominazione_en TEXT,
  altra_denominazione TEXT,
  codice_catastale TEXT NOT NULL UNIQUE,
  provincia TEXT,
  regione TEXT,
  stato TEXT,
  is_foreign_state INTEGER NOT NULL DEFAULT 0,
  codice_istat TEXT,
  codice_min TEXT,
  codice_iso TEXT,
  cittadinanza INTEGER,
  nascita INTEGER,
  residenza INTEGER,
  tipo TEXT,
  fonte TEXT,
  cap TEXT,
  valid_from TEXT,
  valid_to TEXT,
  last_change TEXT,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_places_type ON places(item_type, is_foreign_state);
CREATE INDEX IF NOT EXISTS idx_places_denominazione ON places(denominazione_it);

CREATE TABLE IF NOT EXISTS sync_runs (
  id TEXT PRIMARY KEY,
  types TEXT NOT NULL,
  dry_run INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  counts_json TEXT NOT NULL,
  duration_ms INTEGER NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplacePlaces deletes the rows matching (item_type, is_foreign_state) and
// upserts the batch, all inside one transaction, so a failed sync never
// leaves a type half replaced. With truncate off the delete is skipped and
// existing rows are updated in place by natural key.
func (d *DB) ReplacePlaces(itemType internal.ItemType, isForeign, truncate bool, records []internal.GeoRecord) (int64, int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	if truncate {
		res, err := tx.Exec(`DELETE FROM places WHERE item_type = ? AND is_foreign_state = ?`, string(itemType), isForeign)
		if err != nil {
			return 0, 0, err
		}
		deleted, _ = res.RowsAffected()
	}

	upserted, err := d.upsertTx(tx, records)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return deleted, upserted, nil
}

func (d *DB) UpsertPlaces(records []internal.GeoRecord) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	upserted, err := d.upsertTx(tx, records)
	if err != nil {
		return 0, err
	}
	return upserted, tx.Commit()
}

func (d *DB) upsertTx(tx *sql.Tx, records []internal.GeoRecord) (int, error) {
	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	total := 0
	for start := 0; start < len(records); start += batchSize {
		batch := records[start:min(start+batchSize, len(records))]
		args := make([]any, 0, len(batch)*len(placeColumns))
		for _, rec := range batch {
			args = append(args, placeArgs(rec)...)
		}
		if _, err := tx.Exec(d.upsertSQL(len(batch)), args...); err != nil {
			return total, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		total += len(batch)
	}
	return total, nil
}

func (d *DB) upsertSQL(rows int) string {
	placeholders := "(?" + strings.Repeat(", ?", len(placeColumns)-1) + ")"
	values := placeholders + strings.Repeat(", "+placeholders, rows-1)

	sets := make([]string, 0, len(d.UpdateColumns)+1)
	for _, c := range d.UpdateColumns {
		sets = append(sets, c+"=excluded."+c)
	}
	sets = append(sets, "updated_at=CURRENT_TIMESTAMP")

	return "INSERT INTO places (" + strings.Join(placeColumns, ", ") + ") VALUES " + values +
		" ON CONFLICT(codice_catastale) DO UPDATE SET " + strings.Join(sets, ", ")
}

func placeArgs(rec internal.GeoRecord) []any {
	return []any{
		string(rec.ItemType), rec.DenominazioneIT, rec.DenominazioneDE, rec.DenominazioneEN,
		rec.AltraDenominazione, rec.CodiceCatastale, rec.Provincia, rec.Regione, rec.Stato,
		rec.IsForeignState, rec.CodiceISTAT, rec.CodiceMin, rec.CodiceISO,
		rec.Cittadinanza, rec.Nascita, rec.Residenza, rec.Tipo, rec.Fonte, rec.CAP,
		rec.ValidFrom, rec.ValidTo, rec.LastChange,
	}
}

func (d *DB) GetPlaceByCode(code string) (*internal.GeoRecord, error) {
	var rec internal.GeoRecord
	var itemType string
	err := d.conn.QueryRow(`
SELECT item_type, denominazione_it, denominazione_de, denominazione_en,
       altra_denominazione, codice_catastale, provincia, regione, stato,
       is_foreign_state, codice_istat, codice_min, codice_iso,
       cittadinanza, nascita, residenza, tipo, fonte, cap,
       valid_from, valid_to, last_change
FROM places WHERE codice_catastale = ?
`, code).Scan(
		&itemType, &rec.DenominazioneIT, &rec.DenominazioneDE, &rec.DenominazioneEN,
		&rec.AltraDenominazione, &rec.CodiceCatastale, &rec.Provincia, &rec.Regione, &rec.Stato,
		&rec.IsForeignState, &rec.CodiceISTAT, &rec.CodiceMin, &rec.CodiceISO,
		&rec.Cittadinanza, &rec.Nascita, &rec.Residenza, &rec.Tipo, &rec.Fonte, &rec.CAP,
		&rec.ValidFrom, &rec.ValidTo, &rec.LastChange,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.ItemType = internal.ItemType(itemType)
	return &rec, nil
}

// ListPlaces returns the reference rows in stable (item_type, codice) order.
// An empty itemType selects every row.
func (d *DB) ListPlaces(itemType internal.ItemType) ([]internal.GeoRecord, error) {
	query := `
SELECT item_type, denominazione_it, denominazione_de, denominazione_en,
       altra_denominazione, codice_catastale, provincia, regione, stato,
       is_foreign_state, codice_istat, codice_min, codice_iso,
       cittadinanza, nascita, residenza, tipo, fonte, cap,
       valid_from, valid_to, last_change
FROM places`
	args := []any{}
	if itemType != "" {
		query += ` WHERE item_type = ?`
		args = append(args, string(itemType))
	}
	query += ` ORDER BY item_type, codice_catastale`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.GeoRecord
	for rows.Next() {
		var rec internal.GeoRecord
		var it string
		if err := rows.Scan(
			&it, &rec.DenominazioneIT, &rec.DenominazioneDE, &rec.DenominazioneEN,
			&rec.AltraDenominazione, &rec.CodiceCatastale, &rec.Provincia, &rec.Regione, &rec.Stato,
			&rec.IsForeignState, &rec.CodiceISTAT, &rec.CodiceMin, &rec.CodiceISO,
			&rec.Cittadinanza, &rec.Nascita, &rec.Residenza, &rec.Tipo, &rec.Fonte, &rec.CAP,
			&rec.ValidFrom, &rec.ValidTo, &rec.LastChange,
		); err != nil {
			return nil, err
		}
		rec.ItemType = internal.ItemType(it)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) CountPlacesByType() (map[string]int, error) {
	rows, err := d.conn.Query(`SELECT item_type, COUNT(*) FROM places GROUP BY item_type ORDER BY item_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var itemType string
		var count int
		if err := rows.Scan(&itemType, &count); err != nil {
			return nil, err
		}
		out[itemType] = count
	}
	return out, rows.Err()
}

func (d *DB) InsertSyncRun(report internal.SyncReport, status string) error {
	countsJSON, _ := json.Marshal(report.Types)
	types := make([]string, 0, len(report.Types))
	for _, t := range report.Types {
		types = append(types, string(t.ItemType))
	}
	_, err := d.conn.Exec(`
INSERT INTO sync_runs (id, types, dry_run, status, counts_json, duration_ms)
VALUES (?, ?, ?, ?, ?, ?)
`, report.RunID, strings.Join(types, ","), report.DryRun, status, string(countsJSON), report.DurationMS)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
