package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"belfiore/internal"
)

func ExportPlacesToXLSX(records []internal.GeoRecord, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"item_type", "codice_catastale", "denominazione_it", "denominazione_de", "denominazione_en",
		"altra_denominazione", "provincia", "regione", "stato", "is_foreign_state",
		"codice_istat", "codice_min", "codice_iso", "cittadinanza", "nascita", "residenza",
		"tipo", "fonte", "cap", "valid_from", "valid_to", "last_change",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, string(rec.ItemType))
		set(2, rec.CodiceCatastale)
		set(3, rec.DenominazioneIT)
		set(4, derefString(rec.DenominazioneDE))
		set(5, derefString(rec.DenominazioneEN))
		set(6, derefString(rec.AltraDenominazione))
		set(7, derefString(rec.Provincia))
		set(8, derefString(rec.Regione))
		set(9, derefString(rec.Stato))
		set(10, rec.IsForeignState)
		set(11, derefString(rec.CodiceISTAT))
		set(12, derefString(rec.CodiceMin))
		set(13, derefString(rec.CodiceISO))
		set(14, derefBool(rec.Cittadinanza))
		set(15, derefBool(rec.Nascita))
		set(16, derefBool(rec.Residenza))
		set(17, derefString(rec.Tipo))
		set(18, derefString(rec.Fonte))
		set(19, derefString(rec.CAP))
		set(20, derefString(rec.ValidFrom))
		set(21, derefString(rec.ValidTo))
		set(22, derefString(rec.LastChange))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefBool(v *bool) any {
	if v == nil {
		return ""
	}
	return *v
}
