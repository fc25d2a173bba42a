// Package labels turns recorded session tables into discrete classification targets.
//
// A Normalizer is owned by its caller: construct one per dataset root and pass it to
// consumers. It caches the result of its first successful Run.
package labels

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
	"github.com/offlinefirst/gameplay-dagger/pkg/session"
)

// ErrNoSessions is returned when the table directory holds no session tables.
var ErrNoSessions = errors.New("no session tables found")

// Row is a sample record tagged with the session it came from.
type Row struct {
	Session string
	SampleRecord
}

// Table is the concatenation of session tables. Rows of one session stay contiguous
// and in recording order.
type Table struct {
	Rows []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Sessions lists session identifiers in order of first appearance.
func (t Table) Sessions() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		if _, ok := seen[r.Session]; ok {
			continue
		}
		seen[r.Session] = struct{}{}
		ids = append(ids, r.Session)
	}
	return ids
}

// Widths are the one-hot vector lengths of each head, frozen when labels are encoded.
type Widths struct {
	Click int `json:"click"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

// Total is the combined label vector length.
func (w Widths) Total() int { return w.Click + w.X + w.Y }

// Encoding holds the per-head one-hot matrices and their vocabularies. Matrices are
// nil when the table is empty.
type Encoding struct {
	ClickVocab Vocabulary
	XVocab     Vocabulary
	YVocab     Vocabulary

	Click *mat.Dense
	X     *mat.Dense
	Y     *mat.Dense
}

// Widths returns the realized one-hot widths.
func (e Encoding) Widths() Widths {
	return Widths{Click: e.ClickVocab.Width(), X: e.XVocab.Width(), Y: e.YVocab.Width()}
}

// Result is the output of a normalizer run.
type Result struct {
	Table    Table
	Encoding Encoding
	// Loaded and Dropped count rows before filtering and rows removed by the edge filter.
	Loaded  int
	Dropped int
}

// Options configure a Normalizer.
type Options struct {
	CSVDir      string
	ActionSpace ActionSpace
	Logger      *slog.Logger
}

// Normalizer loads, filters, discretizes, and encodes session tables.
type Normalizer struct {
	csvDir string
	space  ActionSpace
	logger *slog.Logger
	cached *Result
}

// NewNormalizer validates options and constructs a normalizer.
func NewNormalizer(opts Options) (*Normalizer, error) {
	if strings.TrimSpace(opts.CSVDir) == "" {
		return nil, errors.New("csv directory must not be empty")
	}
	space := opts.ActionSpace
	if len(space.X) == 0 && len(space.Y) == 0 {
		space = DefaultActionSpace()
	}
	if _, err := NewActionSpace(space.X, space.Y); err != nil {
		return nil, err
	}
	return &Normalizer{
		csvDir: opts.CSVDir,
		space:  space,
		logger: logging.OrDiscard(opts.Logger),
	}, nil
}

// ActionSpace returns the vocabularies deltas are quantized onto.
func (n *Normalizer) ActionSpace() ActionSpace { return n.space }

// Run executes load, filter, discretize, and encode. The first successful result is cached.
func (n *Normalizer) Run() (Result, error) {
	if n.cached != nil {
		return *n.cached, nil
	}
	table, err := n.Load()
	if err != nil {
		return Result{}, err
	}
	filtered := FilterEdges(table)
	discretized := n.Discretize(filtered)
	enc, err := Encode(discretized)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Table:    discretized,
		Encoding: enc,
		Loaded:   table.Len(),
		Dropped:  table.Len() - filtered.Len(),
	}
	n.logger.Info("labels normalized",
		"sessions", len(table.Sessions()),
		"rows", res.Loaded,
		"edge_rows_dropped", res.Dropped,
		"click_width", enc.ClickVocab.Width(),
		"x_width", enc.XVocab.Width(),
		"y_width", enc.YVocab.Width(),
	)
	n.cached = &res
	return res, nil
}

// Load concatenates every session table in directory enumeration order.
func (n *Normalizer) Load() (Table, error) {
	entries, err := os.ReadDir(n.csvDir)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, errors.Wrapf(ErrNoSessions, "%q does not exist", n.csvDir)
	}
	if err != nil {
		return Table{}, errors.Wrap(err, "list session tables")
	}
	var table Table
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		found++
		path := filepath.Join(n.csvDir, entry.Name())
		id, ok := session.IDFromCSV(entry.Name())
		if !ok {
			id = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		records, err := ReadRecords(path)
		if err != nil {
			return Table{}, err
		}
		for _, rec := range records {
			table.Rows = append(table.Rows, Row{Session: id, SampleRecord: rec})
		}
		n.logger.Debug("session table loaded", "session", id, "rows", len(records))
	}
	if found == 0 {
		return Table{}, errors.Wrapf(ErrNoSessions, "in %q", n.csvDir)
	}
	return table, nil
}

// FilterEdges drops every row recorded while the cursor was clamped at a boundary.
func FilterEdges(t Table) Table {
	out := Table{Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if r.HitEdge {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// Discretize replaces each delta with its nearest action-space bin.
func (n *Normalizer) Discretize(t Table) Table {
	out := Table{Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		r.DeltaX = n.space.X.Quantize(r.DeltaX)
		r.DeltaY = n.space.Y.Quantize(r.DeltaY)
		out.Rows[i] = r
	}
	return out
}

// Encode builds one-hot matrices for click, X, and Y against the values observed in t.
func Encode(t Table) (Encoding, error) {
	clicks := make([]int, len(t.Rows))
	xs := make([]int, len(t.Rows))
	ys := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		clicks[i] = boolToInt(r.Click)
		xs[i] = r.DeltaX
		ys[i] = r.DeltaY
	}

	enc := Encoding{
		ClickVocab: NewVocabulary(clicks),
		XVocab:     NewVocabulary(xs),
		YVocab:     NewVocabulary(ys),
	}
	var err error
	if enc.Click, err = enc.ClickVocab.OneHot(clicks); err != nil {
		return Encoding{}, errors.Wrap(err, "encode click")
	}
	if enc.X, err = enc.XVocab.OneHot(xs); err != nil {
		return Encoding{}, errors.Wrap(err, "encode x")
	}
	if enc.Y, err = enc.YVocab.OneHot(ys); err != nil {
		return Encoding{}, errors.Wrap(err, "encode y")
	}
	return enc, nil
}
