// Package pipeline maps the parsed official feeds onto the canonical places
// schema and drives the per-type sync against the store.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"belfiore/internal"
	"belfiore/internal/parser"
	"belfiore/internal/source"
)

type Driver string

const (
	DriverCSV  Driver = "csv"
	DriverRST  Driver = "rst"
	DriverXLSX Driver = "xlsx"
)

var (
	ErrNoProfile         = errors.New("no source profile")
	ErrUnsupportedDriver = errors.New("unsupported driver")
)

func (d Driver) known() bool {
	switch d {
	case DriverCSV, DriverRST, DriverXLSX:
		return true
	}
	return false
}

// FieldSpec declares how one canonical output field is resolved from a raw
// row: primary column, ordered fallbacks, a literal default when every
// column is empty, and an optional named transform.
type FieldSpec struct {
	Field     string   `json:"field"`
	Column    string   `json:"column"`
	Fallbacks []string `json:"fallbacks,omitempty"`
	Default   string   `json:"default,omitempty"`
	Transform string   `json:"transform,omitempty"`
}

// Discriminator reclassifies the item type from a coded raw column before
// field mapping runs, so per-field defaults can never override it.
type Discriminator struct {
	Column string               `json:"column"`
	Codes  map[string]TypeClass `json:"codes"`
}

type TypeClass struct {
	ItemType  internal.ItemType `json:"itemType"`
	IsForeign bool              `json:"isForeign"`
}

// ParseOptions configures the driver. Delimiter, quote and escape apply to
// csv, the encoding to csv and rst, sheet and the header flag to xlsx.
type ParseOptions struct {
	Delimiter string `json:"delimiter,omitempty"`
	Quote     string `json:"quote,omitempty"`
	Escape    string `json:"escape,omitempty"`
	HasHeader bool   `json:"hasHeader,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Sheet     string `json:"sheet,omitempty"`
}

func (o ParseOptions) delimited() parser.DelimitedOptions {
	return parser.DelimitedOptions{
		Delimiter: firstRune(o.Delimiter),
		Quote:     firstRune(o.Quote),
		Escape:    firstRune(o.Escape),
		HasHeader: o.HasHeader,
		Encoding:  o.Encoding,
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// Profile describes one source feed end to end: where the bytes come from,
// which driver parses them and how the columns map onto the canonical
// fields.
type Profile struct {
	Name          string            `json:"name"`
	Driver        Driver            `json:"driver"`
	Source        source.Request    `json:"source"`
	Options       ParseOptions      `json:"options"`
	Fields        []FieldSpec       `json:"fields"`
	Defaults      map[string]string `json:"defaults,omitempty"`
	Discriminator *Discriminator    `json:"discriminator,omitempty"`
}

// Registry holds the known profiles by name. Registering an existing name
// replaces it, which is how an operator overlay overrides a built-in.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
}

func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

func (r *Registry) All() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve picks the profile for one sync pass: the explicit override name
// first, then the type name, then the wildcard "*".
func (r *Registry) Resolve(override string, syncType internal.ItemType) (Profile, error) {
	if override != "" {
		if p, ok := r.Get(override); ok {
			return p, nil
		}
		return Profile{}, fmt.Errorf("%w: %q", ErrNoProfile, override)
	}
	if p, ok := r.Get(string(syncType)); ok {
		return p, nil
	}
	if p, ok := r.Get("*"); ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("%w for type %s", ErrNoProfile, syncType)
}

// LoadFile merges a JSON array of profiles over the registry, so operators
// can point at mirrors or re-map columns without a rebuild.
func (r *Registry) LoadFile(path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(blob, &profiles); err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}
	for _, p := range profiles {
		if p.Name == "" {
			return fmt.Errorf("profile without name in %s", path)
		}
		if !p.Driver.known() {
			return fmt.Errorf("profile %s: %w: %q", p.Name, ErrUnsupportedDriver, p.Driver)
		}
		r.Register(p)
	}
	return nil
}
