package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"belfiore/internal"
	"belfiore/internal/config"
	"belfiore/internal/parser"
	"belfiore/internal/source"
)

// Store is the slice of the persistence layer the sync needs. ReplacePlaces
// must run the delete and the batched upserts inside one transaction.
type Store interface {
	ReplacePlaces(itemType internal.ItemType, isForeign, truncate bool, records []internal.GeoRecord) (deleted int64, upserted int, err error)
	UpsertPlaces(records []internal.GeoRecord) (int, error)
	SetMetadata(key, value string) error
	InsertSyncRun(report internal.SyncReport, status string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, req source.Request) ([]byte, error)
}

type SyncService struct {
	store    Store
	fetcher  Fetcher
	registry *Registry
	cfg      config.Config
}

func NewSyncService(store Store, fetcher Fetcher, registry *Registry, cfg config.Config) *SyncService {
	return &SyncService{store: store, fetcher: fetcher, registry: registry, cfg: cfg}
}

type Options struct {
	Types      []internal.ItemType
	Profile    string
	DryRun     bool
	NoTruncate bool
}

// Run processes the requested types strictly in order. Each type commits its
// own transaction, so a failure aborts the job but leaves previously
// committed types in place.
func (s *SyncService) Run(ctx context.Context, opts Options) (*internal.SyncReport, error) {
	start := time.Now()
	report := &internal.SyncReport{RunID: uuid.NewString(), DryRun: opts.DryRun}

	for _, itemType := range opts.Types {
		stats, sample, err := s.syncType(ctx, itemType, opts)
		report.Types = append(report.Types, stats)
		report.Sample = append(report.Sample, sample...)
		if err != nil {
			report.DurationMS = time.Since(start).Milliseconds()
			if !opts.DryRun {
				_ = s.store.InsertSyncRun(*report, "failed")
			}
			return report, err
		}
	}

	report.DurationMS = time.Since(start).Milliseconds()
	if !opts.DryRun {
		_ = s.store.InsertSyncRun(*report, "ok")
	}
	return report, nil
}

func (s *SyncService) syncType(ctx context.Context, itemType internal.ItemType, opts Options) (*internal.TypeStats, []internal.GeoRecord, error) {
	stats := internal.NewTypeStats(itemType)

	profile, err := s.registry.Resolve(opts.Profile, itemType)
	if err != nil {
		return stats, nil, err
	}
	if !profile.Driver.known() {
		return stats, nil, fmt.Errorf("profile %s: %w: %q", profile.Name, ErrUnsupportedDriver, profile.Driver)
	}
	src := s.sourceFor(profile, itemType)

	slog.Info("fetching source", "type", itemType, "profile", profile.Name, "kind", src.Kind, "location", src.Location)
	data, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return stats, nil, fmt.Errorf("fetch %s: %w", profile.Name, err)
	}

	table, err := parseTable(profile, data)
	if err != nil {
		return stats, nil, fmt.Errorf("parse %s: %w", profile.Name, err)
	}
	stats.Parsed = len(table.Rows)

	mapper := NewMapper(profile)
	fromFile := src.Kind == source.KindFile
	records := make([]internal.GeoRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec, outcome := mapper.Map(row, itemType, fromFile)
		if !outcome.Kept {
			stats.Drop(outcome.Reason)
			continue
		}
		records = append(records, rec)
	}

	candidates, emptyKey, duplicates := Reconcile(records)
	stats.DropN(internal.DropEmptyKey, emptyKey)
	stats.DropN(internal.DropDuplicateKey, duplicates)
	stats.Mapped = len(candidates)
	slog.Info("mapped source rows", "type", itemType, "parsed", stats.Parsed, "candidates", stats.Mapped, "dropped", stats.DroppedTotal())

	if opts.DryRun {
		if len(candidates) > 0 {
			return stats, candidates[:1], nil
		}
		return stats, nil, nil
	}

	deleted, upserted, err := s.store.ReplacePlaces(itemType, foreignFor(itemType), !opts.NoTruncate, candidates)
	if err != nil {
		return stats, nil, fmt.Errorf("replace %s: %w", itemType, err)
	}
	stats.Deleted, stats.Upserted = deleted, upserted

	// The home-country row must exist no matter what the feed contained,
	// so it is re-upserted after every states sync as a safety net.
	if itemType == internal.TypeStato {
		if _, err := s.store.UpsertPlaces([]internal.GeoRecord{internal.ItalyRecord()}); err != nil {
			return stats, nil, fmt.Errorf("upsert home country: %w", err)
		}
	}

	_ = s.store.SetMetadata("sync.last_sync."+string(itemType), time.Now().UTC().Format(time.RFC3339))
	slog.Info("type committed", "type", itemType, "deleted", stats.Deleted, "upserted", stats.Upserted)
	return stats, nil, nil
}

// sourceFor applies the per-type location override from the environment. An
// override always names the feed itself, never an index page, so any page
// selector from the profile is cleared.
func (s *SyncService) sourceFor(profile Profile, itemType internal.ItemType) source.Request {
	src := profile.Source
	var override string
	switch itemType {
	case internal.TypeComune:
		override = s.cfg.SourceComune
	case internal.TypeStato:
		override = s.cfg.SourceStato
	}
	if override == "" {
		return src
	}
	src.Location = override
	src.Selector = ""
	if strings.HasPrefix(override, "http://") || strings.HasPrefix(override, "https://") {
		src.Kind = source.KindURL
	} else {
		src.Kind = source.KindFile
	}
	return src
}

func parseTable(profile Profile, data []byte) (*parser.Table, error) {
	switch profile.Driver {
	case DriverCSV:
		return parser.ParseDelimited(data, profile.Options.delimited())
	case DriverRST:
		return parser.ParseGridTable(data, parser.GridOptions{Encoding: profile.Options.Encoding})
	case DriverXLSX:
		return parser.ParseXLSX(data, parser.XLSXOptions{Sheet: profile.Options.Sheet, HasHeader: profile.Options.HasHeader})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, profile.Driver)
	}
}

func foreignFor(itemType internal.ItemType) bool {
	return itemType == internal.TypeStato || itemType == internal.TypeTerritorio
}
