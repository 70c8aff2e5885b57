package efc

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/ledger"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
)

// Files is the part of the catalog the engine reads.
type Files interface {
	Languages() []string
	SortedByKind(kind catalog.Kind) ([]*catalog.FileDescriptor, error)
}

// History is the part of the ledger the engine reads.
type History interface {
	Refresh() (bool, error)
	Generation() uint64
	View() *ledger.View
}

// SortKey orders recommendations.
type SortKey string

const (
	SortFilepath SortKey = "filepath"
	SortLabel    SortKey = "label"
	SortScore    SortKey = "score"
	SortInitial  SortKey = "initial"
)

// Options configures an Engine.
type Options struct {
	Threshold        float64
	InitRevsCnt      int
	InitRevsInth     float64 // hours
	DaysToNewRev     float64
	CacheExpiryHours float64 // 0 disables the cache
	SortPrimary      SortKey
	SortSecondary    SortKey
	Search           SearchOptions
	Now              func() time.Time
}

// Recommendation is one item the user should study.
type Recommendation struct {
	Filepath    string
	Signature   string
	Language    string
	Score       float64
	IsInitial   bool
	NewRevision bool // a language is due for a fresh revision
	Label       string
}

// Row is one line of the EFC table.
type Row struct {
	Signature       string
	Filepath        string
	Language        string
	DaysSinceReview float64 // +Inf when never reviewed
	Score           float64
	IsInitial       bool
	DueHours        float64 // 0 unless prediction was requested
}

// Engine combines catalog revisions with ledger history.
type Engine struct {
	files  Files
	hist   History
	pred   Predictor
	opts   Options
	logger *slog.Logger

	cache *recCache
}

type recCache struct {
	at   time.Time
	gen  uint64
	recs []Recommendation
}

// New creates an Engine. A nil predictor means Decay.
func New(files Files, hist History, pred Predictor, opts Options, logger *slog.Logger) *Engine {
	if pred == nil {
		pred = Decay{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Search.MaxIterations == 0 {
		opts.Search = DefaultSearch
	}
	if opts.SortPrimary == "" {
		opts.SortPrimary = SortScore
	}
	if opts.SortSecondary == "" {
		opts.SortSecondary = SortFilepath
	}
	return &Engine{files: files, hist: hist, pred: pred, opts: opts, logger: logging.OrDefault(logger)}
}

// Invalidate drops cached recommendations.
func (e *Engine) Invalidate() { e.cache = nil }

// scored is the per-revision intermediate result.
type scored struct {
	fd       *catalog.FileDescriptor
	features Features
	history  bool
	initial  bool
	score    float64
}

// score computes a score for every revision file.
func (e *Engine) score(now time.Time) ([]scored, error) {
	revs, err := e.files.SortedByKind(catalog.Revision)
	if err != nil {
		return nil, fmt.Errorf("efc: list revisions: %w", err)
	}
	bySig := e.hist.View().BySignature()

	out := make([]scored, 0, len(revs))
	pending := make(map[string][]int) // language -> indexes awaiting the predictor
	for _, fd := range revs {
		s := scored{fd: fd}
		rows := bySig[fd.Signature]
		if len(rows) == 0 {
			// Never reviewed: maximally overdue.
			s.initial = true
			s.features.HoursSinceLastReview = math.Inf(1)
			out = append(out, s)
			continue
		}
		s.history = true
		s.features = features(rows, now)
		if int(s.features.Repeats) < e.opts.InitRevsCnt {
			s.initial = true
			if s.features.HoursSinceLastReview < e.opts.InitRevsInth {
				s.score = 100
			}
		} else {
			pending[fd.Language] = append(pending[fd.Language], len(out))
		}
		out = append(out, s)
	}

	for lng, idx := range pending {
		batch := make([]Features, len(idx))
		for i, j := range idx {
			batch[i] = out[j].features
		}
		scores, err := e.pred.Predict(batch, lng)
		if err != nil {
			return nil, fmt.Errorf("efc: predict %s: %w", lng, err)
		}
		if len(scores) != len(batch) {
			return nil, fmt.Errorf("%w: %d scores for %d records", ErrPredictorShape, len(scores), len(batch))
		}
		for i, j := range idx {
			out[j].score = scores[i]
		}
	}
	return out, nil
}

// features derives the predictor input from one signature's rows.
func features(rows []ledger.Record, now time.Time) Features {
	first, last := rows[0], rows[len(rows)-1]
	return Features{
		TotalCards:           float64(last.Total),
		PrevCardsPerMinute:   last.CardsPerMinute(0),
		HoursSinceCreation:   now.Sub(first.Timestamp).Hours(),
		HoursSinceLastReview: now.Sub(last.Timestamp).Hours(),
		Repeats:              float64(len(rows) - 1),
		PrevScore:            last.Score(),
	}
}

// Recommendations returns what is due: one "new revision" item per language
// whose newest revision is older than DaysToNewRev, plus every revision
// scoring below the threshold. Results are cached until the ledger changes
// or the expiry passes.
func (e *Engine) Recommendations() ([]Recommendation, error) {
	if _, err := e.hist.Refresh(); err != nil {
		return nil, err
	}
	now := e.opts.Now()
	if c := e.cache; c != nil && c.gen == e.hist.Generation() &&
		now.Sub(c.at).Hours() < e.opts.CacheExpiryHours {
		return slices.Clone(c.recs), nil
	}

	items, err := e.score(now)
	if err != nil {
		return nil, err
	}
	recs, err := e.newRevisionItems(items)
	if err != nil {
		return nil, err
	}
	for _, s := range items {
		if s.score >= e.opts.Threshold {
			continue
		}
		recs = append(recs, Recommendation{
			Filepath:  s.fd.Filepath,
			Signature: s.fd.Signature,
			Language:  s.fd.Language,
			Score:     s.score,
			IsInitial: s.initial,
			Label:     label(s),
		})
	}
	e.sort(recs)

	e.cache = &recCache{at: now, gen: e.hist.Generation(), recs: slices.Clone(recs)}
	e.logger.Debug("recommendations computed", "count", len(recs), "revisions", len(items))
	return recs, nil
}

// newRevisionItems emits one item per language whose newest revision is
// older than DaysToNewRev, or that has no reviewed revision at all. The
// item points at the first language file, the source of the next revision.
func (e *Engine) newRevisionItems(items []scored) ([]Recommendation, error) {
	newest := make(map[string]float64) // language -> hours since creation of newest revision
	for _, s := range items {
		if !s.history {
			continue
		}
		h, ok := newest[s.fd.Language]
		if !ok || s.features.HoursSinceCreation < h {
			newest[s.fd.Language] = s.features.HoursSinceCreation
		}
	}

	sources, err := e.files.SortedByKind(catalog.Language)
	if err != nil {
		return nil, fmt.Errorf("efc: list language files: %w", err)
	}
	var out []Recommendation
	for _, lng := range e.files.Languages() {
		if h, ok := newest[lng]; ok && h/24 <= e.opts.DaysToNewRev {
			continue
		}
		for _, fd := range sources {
			if fd.Language != lng {
				continue
			}
			out = append(out, Recommendation{
				Filepath:    fd.Filepath,
				Signature:   fd.Signature,
				Language:    lng,
				NewRevision: true,
				Label:       fmt.Sprintf("New %s revision from %s", lng, fd.Basename),
			})
			break
		}
	}
	return out, nil
}

func label(s scored) string {
	switch {
	case !s.history:
		return fmt.Sprintf("%s (never reviewed)", s.fd.Basename)
	case s.initial:
		return fmt.Sprintf("%s (initial, %.0f%%)", s.fd.Basename, s.score)
	default:
		return fmt.Sprintf("%s (%.0f%%)", s.fd.Basename, s.score)
	}
}

func (e *Engine) sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		for _, k := range []SortKey{e.opts.SortPrimary, e.opts.SortSecondary, SortFilepath} {
			if c := compareBy(k, recs[i], recs[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareBy(k SortKey, a, b Recommendation) int {
	switch k {
	case SortLabel:
		return strings.Compare(a.Label, b.Label)
	case SortScore:
		return cmp.Compare(a.Score, b.Score)
	case SortInitial:
		// Initial-phase items first.
		return cmp.Compare(boolRank(!a.IsInitial), boolRank(!b.IsInitial))
	default:
		return strings.Compare(a.Filepath, b.Filepath)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Table returns one row per revision in natural file order. With
// predictDue, DueHours is the estimated hours until the score crosses the
// threshold (negative when already below it).
func (e *Engine) Table(predictDue bool) ([]Row, error) {
	if _, err := e.hist.Refresh(); err != nil {
		return nil, err
	}
	items, err := e.score(e.opts.Now())
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(items))
	for _, s := range items {
		r := Row{
			Signature:       s.fd.Signature,
			Filepath:        s.fd.Filepath,
			Language:        s.fd.Language,
			DaysSinceReview: s.features.HoursSinceLastReview / 24,
			Score:           s.score,
			IsInitial:       s.initial,
		}
		if predictDue && s.history {
			if r.DueHours, err = e.due(s); err != nil {
				return nil, err
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// due estimates hours until s is due. The initial-phase step function is
// inverted directly; everything else goes through the predictor search.
func (e *Engine) due(s scored) (float64, error) {
	if s.initial {
		return e.opts.InitRevsInth - s.features.HoursSinceLastReview, nil
	}
	delta, calls, err := DueTimeSearch(e.pred, s.features, s.fd.Language, e.opts.Threshold, e.opts.Search)
	if err != nil {
		return 0, fmt.Errorf("efc: due time %s: %w", s.fd.Signature, err)
	}
	e.logger.Debug("due time searched", "signature", s.fd.Signature, "calls", calls, "hours", delta)
	return delta, nil
}
