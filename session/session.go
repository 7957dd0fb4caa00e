package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spektr-org/opsboard/cache"
	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/engine"
	"github.com/spektr-org/opsboard/helpers"
	"github.com/spektr-org/opsboard/schema"
)

// ============================================================================
// SESSION — One uploaded workbook and everything the user did with it
// ============================================================================
// A session owns:
//   - the loaded workbook and the active sheet
//   - the classified (converted) table, including derived columns
//   - the filter builder, whose candidates come from the unfiltered table
//   - named favorites (saved FilterSpecs)
//
// Every method takes the session lock, so concurrent requests against the
// same upload see a consistent table / spec pair.
// ============================================================================

var (
	// ErrNotFound is returned for unknown sessions, sheets and favorites.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName is returned for empty favorite names.
	ErrInvalidName = errors.New("invalid name")
)

// Derived records a derived column added to the active sheet.
type Derived struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// Favorite is a named, saved FilterSpec.
type Favorite struct {
	Name    string            `json:"name"`
	Filters engine.FilterSpec `json:"filters"`
	Label   string            `json:"label"`
	SavedAt time.Time         `json:"savedAt"`
}

// Info is the JSON view of a session's state.
type Info struct {
	ID             string                 `json:"id"`
	File           string                 `json:"file"`
	Sheets         []string               `json:"sheets"`
	ActiveSheet    string                 `json:"activeSheet"`
	Rows           int                    `json:"rows"`
	Classification *schema.Classification `json:"classification"`
	Candidates     *engine.CandidateSet   `json:"candidates"`
	Filters        engine.FilterSpec      `json:"filters"`
	FilterLabel    string                 `json:"filterLabel"`
	Derived        []Derived              `json:"derived"`
	Favorites      []string               `json:"favorites"`
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id       string
	workbook *helpers.Workbook
	opts     []engine.Option

	active      string
	table       *dataset.Table
	cls         *schema.Classification
	builder     *engine.Builder
	derived     []Derived
	fingerprint uint64

	favorites map[string]Favorite
	touched   time.Time
}

// New opens a session on the first sheet of wb.
func New(id string, wb *helpers.Workbook, opts ...engine.Option) (*Session, error) {
	if wb == nil || len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", helpers.ErrInvalidWorkbook)
	}
	s := &Session{
		id:        id,
		workbook:  wb,
		opts:      opts,
		favorites: make(map[string]Favorite),
	}
	s.activate(wb.First())
	return s, nil
}

// activate classifies a sheet and resets filters and derived columns.
func (s *Session) activate(sheet *dataset.Table) {
	cls, converted := schema.Classify(sheet)
	s.active = sheet.Name()
	s.table = converted
	s.cls = cls
	s.builder = engine.NewBuilder(converted, cls)
	s.derived = nil
	s.fingerprint = cache.TableFingerprint(converted)
	s.touched = time.Now()

	log.Printf("📄 Opsboard: session %s on sheet %q (%d rows, %d numeric, %d categorical)",
		s.id, s.active, converted.Len(), len(cls.Numeric), len(cls.Categorical))
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastUsed reports when the session was last touched.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Info returns a snapshot of the session state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	spec := s.builder.Build()
	derived := make([]Derived, len(s.derived))
	copy(derived, s.derived)
	return Info{
		ID:             s.id,
		File:           s.workbook.Name,
		Sheets:         s.workbook.SheetNames(),
		ActiveSheet:    s.active,
		Rows:           s.table.Len(),
		Classification: s.cls,
		Candidates:     s.builder.Candidates(),
		Filters:        spec,
		FilterLabel:    spec.Label(),
		Derived:        derived,
		Favorites:      s.favoriteNames(),
	}
}

// SelectSheet switches the active sheet. Filters and derived columns are
// dropped; favorites are kept.
func (s *Session) SelectSheet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, ok := s.workbook.Sheet(name)
	if !ok {
		return fmt.Errorf("%w: sheet %q", ErrNotFound, name)
	}
	s.activate(sheet)
	return nil
}

// ============================================================================
// FILTERS
// ============================================================================

// FilterRequest is one batch of selection changes. Reset runs first, then
// Clear, then the selections.
type FilterRequest struct {
	Reset   bool                     `json:"reset"`
	Clear   []string                 `json:"clear"`
	Select  map[string][]string      `json:"select"`
	Range   map[string][2]float64    `json:"range"`
	Between map[string]BetweenBounds `json:"between"`
}

// BetweenBounds are text date bounds; empty means the observed bound.
type BetweenBounds struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IsEmpty reports whether the request changes nothing.
func (r FilterRequest) IsEmpty() bool {
	return !r.Reset && len(r.Clear) == 0 && len(r.Select) == 0 && len(r.Range) == 0 && len(r.Between) == 0
}

// UpdateFilters applies a FilterRequest. On error the previous filters are
// kept.
func (s *Session) UpdateFilters(req FilterRequest) (engine.FilterSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	b := engine.NewBuilderFrom(s.builder.Candidates())
	if !req.Reset {
		if err := b.Apply(s.builder.Build()); err != nil {
			return nil, err
		}
	}
	for _, col := range req.Clear {
		b.Clear(col)
	}
	for _, col := range sortedKeys(req.Select) {
		if err := b.Select(col, req.Select[col]...); err != nil {
			return nil, err
		}
	}
	for _, col := range sortedKeys(req.Range) {
		r := req.Range[col]
		if err := b.Range(col, r[0], r[1]); err != nil {
			return nil, err
		}
	}
	for _, col := range sortedKeys(req.Between) {
		r := req.Between[col]
		if err := b.Between(col, r.From, r.To); err != nil {
			return nil, err
		}
	}

	s.builder = b
	return b.Build(), nil
}

// Filters returns the current FilterSpec.
func (s *Session) Filters() engine.FilterSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Build()
}

// ============================================================================
// VIEWS
// ============================================================================

// Snapshot runs the executor over the active sheet with the current filters.
func (s *Session) Snapshot(extra ...engine.Option) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	opts := append(append([]engine.Option{}, s.opts...), extra...)
	return engine.Execute(s.table, s.cls, s.builder.Build(), opts...)
}

// Filtered returns the filtered view of the active sheet.
func (s *Session) Filtered() dataset.RecordView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.ApplyFilters(s.table, s.builder.Build())
}

// Rows returns one page of the filtered table.
func (s *Session) Rows(offset, limit int) *engine.TableData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	view := engine.ApplyFilters(s.table, s.builder.Build())
	return engine.BuildTable(s.active, view, nil, offset, limit)
}

// Alerts evaluates maintenance alerts over the filtered view.
func (s *Session) Alerts(opts engine.AlertOptions) (*engine.AlertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	view := engine.ApplyFilters(s.table, s.builder.Build())
	return engine.Alerts(view, s.cls, opts)
}

// ActiveSheet returns the active sheet name.
func (s *Session) ActiveSheet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// CacheKey identifies the current table and filters for the snapshot cache.
func (s *Session) CacheKey(kind string, parts ...interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cache.Key(kind, s.fingerprint, append([]interface{}{s.builder.Build()}, parts...)...)
}

// ============================================================================
// DERIVED COLUMNS
// ============================================================================

// Derive adds a numeric column computed from expression. On error the
// active table is unchanged. Existing filters are re-applied against the
// new candidates.
func (s *Session) Derive(name, expression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	table, cls, err := engine.DeriveColumn(s.table, s.cls, name, expression)
	if err != nil {
		return err
	}
	b := engine.NewBuilder(table, cls)
	if err := b.Apply(s.builder.Build()); err != nil {
		return err
	}

	s.table = table
	s.cls = cls
	s.builder = b
	s.derived = append(s.derived, Derived{Name: strings.TrimSpace(name), Expression: expression})
	s.fingerprint = cache.TableFingerprint(table)
	return nil
}

// ============================================================================
// FAVORITES
// ============================================================================

// SaveFavorite stores the current filters under name, replacing any
// favorite with the same name.
func (s *Session) SaveFavorite(name string) (Favorite, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Favorite{}, fmt.Errorf("%w: favorite name is empty", ErrInvalidName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.builder.Build()
	fav := Favorite{Name: name, Filters: spec, Label: spec.Label(), SavedAt: time.Now()}
	s.favorites[name] = fav
	log.Printf("⭐ Opsboard: session %s saved favorite %q (%s)", s.id, name, fav.Label)
	return fav, nil
}

// Favorites lists saved favorites by name.
func (s *Session) Favorites() []Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Favorite, 0, len(s.favorites))
	for _, name := range s.favoriteNames() {
		f := s.favorites[name]
		f.Filters = f.Filters.Clone()
		out = append(out, f)
	}
	return out
}

// ApplyFavorite replaces the current filters with a saved favorite. The
// favorite is validated against the active sheet's candidates.
func (s *Session) ApplyFavorite(name string) (engine.FilterSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fav, ok := s.favorites[name]
	if !ok {
		return nil, fmt.Errorf("%w: favorite %q", ErrNotFound, name)
	}
	b := engine.NewBuilderFrom(s.builder.Candidates())
	if err := b.Apply(fav.Filters); err != nil {
		return nil, err
	}
	s.builder = b
	s.touched = time.Now()
	return b.Build(), nil
}

// DeleteFavorite removes a saved favorite.
func (s *Session) DeleteFavorite(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.favorites[name]; !ok {
		return fmt.Errorf("%w: favorite %q", ErrNotFound, name)
	}
	delete(s.favorites, name)
	return nil
}

func (s *Session) favoriteNames() []string {
	names := make([]string, 0, len(s.favorites))
	for name := range s.favorites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
