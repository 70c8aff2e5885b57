package ledger

import (
	"slices"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
)

// View is a filtered working copy of a ledger snapshot. Filters narrow the
// view in place and return it for chaining; they never touch the file.
// Every aggregate takes a signature filter where "" means all rows.
type View struct {
	records []Record
}

// NewView wraps records, which must be in chronological order.
func NewView(records []Record) *View {
	return &View{records: records}
}

// Records returns the rows in the view.
func (v *View) Records() []Record { return v.records }

// Len returns the row count.
func (v *View) Len() int { return len(v.records) }

func (v *View) filter(keep func(Record) bool) *View {
	out := make([]Record, 0, len(v.records))
	for _, r := range v.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	v.records = out
	return v
}

// Languages keeps rows whose language is in langs.
func (v *View) Languages(langs ...string) *View {
	return v.filter(func(r Record) bool { return slices.Contains(langs, r.Language) })
}

// NotFirst drops first-pass rows.
func (v *View) NotFirst() *View {
	return v.filter(func(r Record) bool { return !r.IsFirst })
}

// KindPositive keeps rows of kind with at least one positive answer.
func (v *View) KindPositive(kind catalog.Kind) *View {
	return v.filter(func(r Record) bool { return r.Kind == kind && r.Positives > 0 })
}

// Since keeps rows at or after t.
func (v *View) Since(t time.Time) *View {
	return v.filter(func(r Record) bool { return !r.Timestamp.Before(t) })
}

// rows returns the rows matching sig.
func (v *View) rows(sig string) []Record {
	if sig == "" {
		return v.records
	}
	var out []Record
	for _, r := range v.records {
		if r.Signature == sig {
			out = append(out, r)
		}
	}
	return out
}

// BySignature groups rows by signature, each group in file order.
func (v *View) BySignature() map[string][]Record {
	out := make(map[string][]Record)
	for _, r := range v.records {
		out[r.Signature] = append(out[r.Signature], r)
	}
	return out
}

// DistinctSignatures counts distinct signatures.
func (v *View) DistinctSignatures(sig string) int {
	seen := make(map[string]bool)
	for _, r := range v.rows(sig) {
		seen[r.Signature] = true
	}
	return len(seen)
}

// Count returns the number of matching rows.
func (v *View) Count(sig string) int { return len(v.rows(sig)) }

// Repeats is the row count minus the initial pass, never negative.
func (v *View) Repeats(sig string) int {
	return max(len(v.rows(sig))-1, 0)
}

// SecondsSpent sums time spent.
func (v *View) SecondsSpent(sig string) int {
	total := 0
	for _, r := range v.rows(sig) {
		total += r.SecondsSpent
	}
	return total
}

// TotalCards sums the TOTAL column.
func (v *View) TotalCards(sig string) int {
	total := 0
	for _, r := range v.rows(sig) {
		total += r.Total
	}
	return total
}

// TotalPositives sums the POSITIVES column.
func (v *View) TotalPositives(sig string) int {
	total := 0
	for _, r := range v.rows(sig) {
		total += r.Positives
	}
	return total
}

// Last returns the newest matching row. With skipFirst, first-pass rows
// are not considered.
func (v *View) Last(sig string, skipFirst bool) (Record, bool) {
	rows := v.rows(sig)
	for i := len(rows) - 1; i >= 0; i-- {
		if skipFirst && rows[i].IsFirst {
			continue
		}
		return rows[i], true
	}
	return Record{}, false
}

// LastN returns up to n newest matching rows, oldest first.
func (v *View) LastN(sig string, n int) []Record {
	rows := v.rows(sig)
	if n < len(rows) {
		rows = rows[len(rows)-n:]
	}
	return append([]Record(nil), rows...)
}

// LastPositives returns POSITIVES of the newest row, or 0.
func (v *View) LastPositives(sig string, skipFirst bool) int {
	r, _ := v.Last(sig, skipFirst)
	return r.Positives
}

// LastSecondsSpent returns SEC_SPENT of the newest row, or 0.
func (v *View) LastSecondsSpent(sig string, skipFirst bool) int {
	r, _ := v.Last(sig, skipFirst)
	return r.SecondsSpent
}

// MaxPositives returns the largest POSITIVES value recorded.
func (v *View) MaxPositives(sig string) int {
	best := 0
	for _, r := range v.rows(sig) {
		best = max(best, r.Positives)
	}
	return best
}

// FirstTimestamp returns the oldest matching timestamp.
func (v *View) FirstTimestamp(sig string) (time.Time, bool) {
	rows := v.rows(sig)
	if len(rows) == 0 {
		return time.Time{}, false
	}
	return rows[0].Timestamp, true
}

// LastTimestamp returns the newest matching timestamp.
func (v *View) LastTimestamp(sig string) (time.Time, bool) {
	rows := v.rows(sig)
	if len(rows) == 0 {
		return time.Time{}, false
	}
	return rows[len(rows)-1].Timestamp, true
}

// SinceCreation returns now minus the first timestamp.
func (v *View) SinceCreation(sig string, now time.Time) (time.Duration, bool) {
	t, ok := v.FirstTimestamp(sig)
	if !ok {
		return 0, false
	}
	return now.Sub(t), true
}

// SinceLastReview returns now minus the last timestamp.
func (v *View) SinceLastReview(sig string, now time.Time) (time.Duration, bool) {
	t, ok := v.LastTimestamp(sig)
	if !ok {
		return 0, false
	}
	return now.Sub(t), true
}

// ZeroTimeCount counts rows with no recorded time. Such rows make the
// speed statistics unreliable.
func (v *View) ZeroTimeCount(sig string) int {
	n := 0
	for _, r := range v.rows(sig) {
		if r.SecondsSpent == 0 {
			n++
		}
	}
	return n
}

// AverageCardsPerMinute is total cards over total minutes, or def when no
// time was recorded.
func (v *View) AverageCardsPerMinute(sig string, def float64) float64 {
	return perMinute(v.TotalCards(sig), v.SecondsSpent(sig), def)
}

// AverageScore is total positives over total cards, or def when there are
// no cards.
func (v *View) AverageScore(sig string, def float64) float64 {
	cards := v.TotalCards(sig)
	if cards == 0 {
		return def
	}
	return float64(v.TotalPositives(sig)) / float64(cards)
}

// DailyLast keeps only the last row of each calendar day, in order.
func (v *View) DailyLast(sig string) []Record {
	rows := v.rows(sig)
	var out []Record
	for i, r := range rows {
		if i+1 < len(rows) && sameDay(r.Timestamp, rows[i+1].Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ChartPositives is the POSITIVES series of DailyLast.
func (v *View) ChartPositives(sig string) []int {
	days := v.DailyLast(sig)
	out := make([]int, len(days))
	for i, r := range days {
		out[i] = r.Positives
	}
	return out
}

// ChartTimestamps is the TIMESTAMP series of DailyLast.
func (v *View) ChartTimestamps(sig string) []time.Time {
	days := v.DailyLast(sig)
	out := make([]time.Time, len(days))
	for i, r := range days {
		out[i] = r.Timestamp
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
