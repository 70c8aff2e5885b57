package efc

import (
	"math"
	"testing"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/ledger"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
)

type fakeFiles struct {
	languages []string
	byKind    map[catalog.Kind][]*catalog.FileDescriptor
}

func (f *fakeFiles) Languages() []string { return f.languages }

func (f *fakeFiles) SortedByKind(k catalog.Kind) ([]*catalog.FileDescriptor, error) {
	return f.byKind[k], nil
}

type fakeHistory struct {
	records   []ledger.Record
	gen       uint64
	refreshes int
}

func (h *fakeHistory) Refresh() (bool, error) { h.refreshes++; return false, nil }
func (h *fakeHistory) Generation() uint64     { return h.gen }
func (h *fakeHistory) View() *ledger.View     { return ledger.NewView(h.records) }

func (h *fakeHistory) add(r ledger.Record) {
	h.records = append(h.records, r)
	h.gen++
}

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func revision(lang, sig string) *catalog.FileDescriptor {
	return &catalog.FileDescriptor{
		Basename: sig, Filepath: "/data/" + lang + "/rev/" + sig + ".csv",
		Language: lang, Kind: catalog.Revision, Extension: "csv", Signature: sig, Valid: true,
	}
}

func language(lang, name string) *catalog.FileDescriptor {
	return &catalog.FileDescriptor{
		Basename: name, Filepath: "/data/" + lang + "/lng/" + name + ".csv",
		Language: lang, Kind: catalog.Language, Extension: "csv", Signature: name, Valid: true,
	}
}

func review(sig string, hoursAgo float64, total, pos int) ledger.Record {
	return ledger.Record{
		Timestamp: now.Add(-time.Duration(hoursAgo * float64(time.Hour))),
		Signature: sig, Language: "EN", Total: total, Positives: pos, SecondsSpent: 60,
		Kind: catalog.Revision,
	}
}

func defaultOptions() Options {
	return Options{
		Threshold:        50,
		InitRevsCnt:      3,
		InitRevsInth:     12,
		DaysToNewRev:     5,
		CacheExpiryHours: 1,
		SortPrimary:      SortScore,
		SortSecondary:    SortFilepath,
		Search:           DefaultSearch,
		Now:              func() time.Time { return now },
	}
}

func newEngine(files *fakeFiles, hist *fakeHistory, pred Predictor, opts Options) *Engine {
	return New(files, hist, pred, opts, logging.Discard())
}

// fixedScores returns a score per signature through PrevScore lookup.
type fixedScores map[float64]float64

func (m fixedScores) Predict(records []Features, _ string) ([]float64, error) {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = m[r.TotalCards]
	}
	return out, nil
}

func TestTable_InitialPhaseStep(t *testing.T) {
	tests := []struct {
		name     string
		hoursAgo float64
		want     float64
	}{
		{"just reviewed", 1, 100},
		{"just under", 11.99, 100},
		{"at boundary", 12, 0},
		{"past", 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
				catalog.Revision: {revision("EN", "EN1")},
			}}
			hist := &fakeHistory{}
			first := review("EN1", tt.hoursAgo+48, 10, 5)
			first.IsFirst = true
			hist.add(first)
			hist.add(review("EN1", tt.hoursAgo, 10, 9))

			rows, err := newEngine(files, hist, nil, defaultOptions()).Table(false)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 || !rows[0].IsInitial {
				t.Fatalf("rows = %+v", rows)
			}
			if rows[0].Score != tt.want {
				t.Errorf("score = %v, want %v", rows[0].Score, tt.want)
			}
		})
	}
}

func TestTable_NoHistory(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "EN1")},
	}}
	rows, err := newEngine(files, &fakeHistory{}, nil, defaultOptions()).Table(true)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Score != 0 || !math.IsInf(rows[0].DaysSinceReview, 1) {
		t.Errorf("row = %+v, want score 0 and +Inf days", rows[0])
	}
	if rows[0].DueHours != 0 {
		t.Errorf("due = %v, want 0", rows[0].DueHours)
	}
}

func TestTable_PredictDue(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "EN1"), revision("EN", "EN2")},
	}}
	hist := &fakeHistory{}
	for _, h := range []float64{400, 300, 200, 100} {
		hist.add(review("EN1", h, 100, 65))
	}
	hist.add(review("EN2", 2, 10, 10))

	e := newEngine(files, hist, nil, defaultOptions())
	cheap, err := e.Table(false)
	if err != nil {
		t.Fatal(err)
	}
	if cheap[0].DueHours != 0 {
		t.Errorf("cheap path due = %v, want 0", cheap[0].DueHours)
	}

	rows, err := e.Table(true)
	if err != nil {
		t.Fatal(err)
	}
	f := Features{TotalCards: 100, Repeats: 3, PrevScore: 65}
	want := -24*Decay{}.Stability(f)*math.Log(0.5) - 100
	assertFloat(t, "EN1 due", rows[0].DueHours, want, 0.5)
	assertFloat(t, "EN1 days", rows[0].DaysSinceReview, 100.0/24, 1e-9)
	// EN2 is in its initial phase: due when init_revs_inth elapses.
	assertFloat(t, "EN2 due", rows[1].DueHours, 10, 1e-9)
}

func TestRecommendations_NoHistoryRanksFirst(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "A"), revision("EN", "B")},
	}}
	hist := &fakeHistory{}
	for _, h := range []float64{90, 70, 50, 30} {
		hist.add(review("B", h, 7, 5))
	}
	opts := defaultOptions()
	opts.Threshold = 60
	opts.DaysToNewRev = 100

	recs, err := newEngine(files, hist, fixedScores{7: 50}, opts).Recommendations()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("recs = %+v, want 2", recs)
	}
	if recs[0].Signature != "A" || recs[0].Score != 0 {
		t.Errorf("first = %+v, want never-reviewed A with score 0", recs[0])
	}
	if recs[1].Signature != "B" || recs[1].Score != 50 {
		t.Errorf("second = %+v, want B with score 50", recs[1])
	}
}

func TestRecommendations_ThresholdAndSort(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "R1"), revision("EN", "R2"), revision("EN", "R3")},
	}}
	hist := &fakeHistory{}
	for i, sig := range []string{"R1", "R2", "R3"} {
		for _, h := range []float64{90, 70, 50, 30} {
			hist.add(review(sig, h, i+1, 1))
		}
	}
	opts := defaultOptions()
	opts.DaysToNewRev = 100
	pred := fixedScores{1: 40, 2: 80, 3: 10}

	recs, err := newEngine(files, hist, pred, opts).Recommendations()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Signature != "R3" || recs[1].Signature != "R1" {
		t.Errorf("recs = %+v, want R3 then R1", recs)
	}

	opts.SortPrimary = SortFilepath
	recs, _ = newEngine(files, hist, pred, opts).Recommendations()
	if recs[0].Signature != "R1" {
		t.Errorf("filepath order first = %s, want R1", recs[0].Signature)
	}
}

func TestRecommendations_NewRevisionOncePerLanguage(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN", "DE"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "EN1"), revision("EN", "EN2")},
		catalog.Language: {language("EN", "words1"), language("EN", "words2"), language("DE", "worte")},
	}}
	hist := &fakeHistory{}
	// Both EN revisions were created over 5 days ago.
	for _, sig := range []string{"EN1", "EN2"} {
		for _, h := range []float64{300, 200, 150, 1} {
			hist.add(review(sig, h, 10, 10))
		}
	}

	recs, err := newEngine(files, hist, fixedScores{10: 99}, defaultOptions()).Recommendations()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range recs {
		if !r.NewRevision {
			t.Errorf("unexpected retention item %+v", r)
			continue
		}
		got = append(got, r.Language+":"+r.Signature)
	}
	want := []string{"DE:worte", "EN:words1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("new revision items = %v, want %v", got, want)
	}

	// A fresh EN revision suppresses the EN item.
	files.byKind[catalog.Revision] = append(files.byKind[catalog.Revision], revision("EN", "EN3"))
	hist.add(review("EN3", 24, 10, 10))
	recs, _ = newEngine(files, hist, fixedScores{10: 99}, defaultOptions()).Recommendations()
	for _, r := range recs {
		if r.NewRevision && r.Language == "EN" {
			t.Errorf("EN still due for a new revision: %+v", r)
		}
	}
}

func TestRecommendations_Cache(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "EN1")},
	}}
	hist := &fakeHistory{}
	clock := now
	opts := defaultOptions()
	opts.DaysToNewRev = 100
	opts.Now = func() time.Time { return clock }
	pred := &countingPredictor{score: 10}
	for _, h := range []float64{90, 70, 50, 30} {
		hist.add(review("EN1", h, 10, 5))
	}
	e := newEngine(files, hist, pred, opts)

	if _, err := e.Recommendations(); err != nil {
		t.Fatal(err)
	}
	_, _ = e.Recommendations()
	if pred.calls != 1 {
		t.Errorf("predictor calls = %d, want 1 (cached)", pred.calls)
	}

	hist.add(review("EN1", 0, 10, 10))
	_, _ = e.Recommendations()
	if pred.calls != 2 {
		t.Errorf("predictor calls = %d, want 2 after ledger write", pred.calls)
	}

	clock = clock.Add(2 * time.Hour)
	_, _ = e.Recommendations()
	if pred.calls != 3 {
		t.Errorf("predictor calls = %d, want 3 after expiry", pred.calls)
	}

	e.Invalidate()
	_, _ = e.Recommendations()
	if pred.calls != 4 {
		t.Errorf("predictor calls = %d, want 4 after Invalidate", pred.calls)
	}
	if hist.refreshes == 0 {
		t.Error("ledger never refreshed")
	}
}

func TestRecommendations_CallerCannotChangeCache(t *testing.T) {
	files := &fakeFiles{languages: []string{"EN"}, byKind: map[catalog.Kind][]*catalog.FileDescriptor{
		catalog.Revision: {revision("EN", "EN1"), revision("EN", "EN2")},
	}}
	hist := &fakeHistory{}
	opts := defaultOptions()
	opts.DaysToNewRev = 100
	e := newEngine(files, hist, &countingPredictor{score: 10}, opts)

	first, err := e.Recommendations()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("recommendations = %d, want 2", len(first))
	}
	want := first[0].Filepath
	first[0], first[1] = first[1], first[0]
	first[1].Label = "changed"

	again, _ := e.Recommendations()
	if again[0].Filepath != want {
		t.Errorf("first item = %s, want %s", again[0].Filepath, want)
	}
	for _, r := range again {
		if r.Label == "changed" {
			t.Errorf("cached item was modified: %+v", r)
		}
	}
}
