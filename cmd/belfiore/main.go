package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"belfiore/internal"
	"belfiore/internal/config"
	"belfiore/internal/logging"
	"belfiore/internal/pipeline"
	"belfiore/internal/source"
	"belfiore/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()
	if cfg.UpsertBatchSize > 0 {
		db.BatchSize = cfg.UpsertBatchSize
	}

	registry := pipeline.BuiltinRegistry()
	if cfg.ProfilesFile != "" {
		must(registry.LoadFile(cfg.ProfilesFile))
	}

	cmd := os.Args[1]
	switch cmd {
	case "places:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		typeFlag := fs.String("type", "both", "comune|stato|both")
		profile := fs.String("profile", "", "profile name override")
		dryRun := fs.Bool("dry-run", false, "map and report without writing")
		noTruncate := fs.Bool("no-truncate", false, "update in place, keep rows missing from the feed")
		_ = fs.Parse(os.Args[2:])

		types, err := internal.ParseItemTypes(*typeFlag)
		must(err)

		svc := pipeline.NewSyncService(db, source.NewFetcher(cfg), registry, cfg)
		report, err := svc.Run(context.Background(), pipeline.Options{
			Types:      types,
			Profile:    *profile,
			DryRun:     *dryRun,
			NoTruncate: *noTruncate,
		})
		if report != nil {
			for _, st := range report.Types {
				fmt.Printf("%s: parsed=%d candidates=%d dropped=%d deleted=%d upserted=%d\n",
					st.ItemType, st.Parsed, st.Mapped, st.DroppedTotal(), st.Deleted, st.Upserted)
			}
		}
		must(err)
		if *dryRun {
			fmt.Printf("dry run: %d candidate records, nothing written\n", report.TotalMapped())
			for i := range report.Sample {
				fmt.Println("sample record:")
				printPlace(&report.Sample[i])
			}
			return
		}
		fmt.Printf("sync complete run=%s upserted=%d in %dms\n", report.RunID, report.TotalUpserted(), report.DurationMS)
	case "places:lookup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		code := fs.String("code", "", "codice catastale, e.g. H501")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*code) == "" {
			must(fmt.Errorf("--code is required"))
		}

		rec, err := db.GetPlaceByCode(strings.ToUpper(strings.TrimSpace(*code)))
		must(err)
		if rec == nil {
			must(fmt.Errorf("no place for code %s", strings.ToUpper(strings.TrimSpace(*code))))
		}
		printPlace(rec)
	case "places:stats":
		counts, err := db.CountPlacesByType()
		must(err)
		types := make([]string, 0, len(counts))
		total := 0
		for t, n := range counts {
			types = append(types, t)
			total += n
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("%-12s %d\n", t, counts[t])
		}
		fmt.Printf("%-12s %d\n", "total", total)
		for _, t := range []string{"comune", "stato", "territorio"} {
			v, err := db.GetMetadata("sync.last_sync." + t)
			must(err)
			if v != nil {
				fmt.Printf("last sync %s: %s\n", t, *v)
			}
		}
	case "places:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		typeFlag := fs.String("type", "", "restrict to one item type")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}

		records, err := db.ListPlaces(internal.ItemType(strings.ToLower(strings.TrimSpace(*typeFlag))))
		must(err)
		if len(records) == 0 {
			must(fmt.Errorf("no places to export, run places:sync first"))
		}
		must(pipeline.ExportPlacesToXLSX(records, *out))
		fmt.Printf("exported %d places to %s\n", len(records), *out)
	case "profiles:list":
		for _, p := range registry.All() {
			location := p.Source.Location
			if p.Source.Selector != "" {
				location += " (via selector " + p.Source.Selector + ")"
			}
			fmt.Printf("%-12s %-5s %s\n", p.Name, p.Driver, location)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func printPlace(rec *internal.GeoRecord) {
	fmt.Printf("%s  %s (%s)\n", rec.CodiceCatastale, rec.DenominazioneIT, rec.ItemType)
	printOpt("denominazione_de", rec.DenominazioneDE)
	printOpt("denominazione_en", rec.DenominazioneEN)
	printOpt("altra_denominazione", rec.AltraDenominazione)
	printOpt("provincia", rec.Provincia)
	printOpt("regione", rec.Regione)
	printOpt("stato", rec.Stato)
	fmt.Printf("  is_foreign_state: %t\n", rec.IsForeignState)
	printOpt("codice_istat", rec.CodiceISTAT)
	printOpt("codice_min", rec.CodiceMin)
	printOpt("codice_iso", rec.CodiceISO)
	printOptBool("cittadinanza", rec.Cittadinanza)
	printOptBool("nascita", rec.Nascita)
	printOptBool("residenza", rec.Residenza)
	printOpt("tipo", rec.Tipo)
	printOpt("fonte", rec.Fonte)
	printOpt("cap", rec.CAP)
	printOpt("valid_from", rec.ValidFrom)
	printOpt("valid_to", rec.ValidTo)
	printOpt("last_change", rec.LastChange)
}

func printOpt(label string, v *string) {
	if v != nil {
		fmt.Printf("  %s: %s\n", label, *v)
	}
}

func printOptBool(label string, v *bool) {
	if v != nil {
		fmt.Printf("  %s: %t\n", label, *v)
	}
}

func usage() {
	fmt.Println("usage: belfiore <command>")
	fmt.Println("commands:")
	fmt.Println("  places:sync --type=comune|stato|both [--profile=name] [--dry-run] [--no-truncate]")
	fmt.Println("  places:lookup --code=H501")
	fmt.Println("  places:stats")
	fmt.Println("  places:export --out=./out/places.xlsx [--type=comune]")
	fmt.Println("  profiles:list")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
