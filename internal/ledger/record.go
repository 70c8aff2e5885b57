// Package ledger is the append-only review history: one semicolon-delimited
// row per completed review, plus the aggregate queries the scheduler and
// the stats screens read.
package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
)

// Header is the first line of every ledger file.
const Header = "TIMESTAMP;SIGNATURE;LNG;TOTAL;POSITIVES;SEC_SPENT;KIND;IS_FIRST"

// TimeLayout is the TIMESTAMP column format.
const TimeLayout = "2006-01-02T15:04:05"

const (
	separator = ';'
	numFields = 8
)

// Record is one completed review.
type Record struct {
	Timestamp    time.Time
	Signature    string
	Language     string
	Total        int
	Positives    int
	SecondsSpent int
	Kind         catalog.Kind
	IsFirst      bool
}

// NewRecord builds a record for fd at now.
func NewRecord(fd *catalog.FileDescriptor, total, positives, secondsSpent int, isFirst bool, now time.Time) Record {
	return Record{
		Timestamp:    now,
		Signature:    fd.Signature,
		Language:     fd.Language,
		Total:        total,
		Positives:    positives,
		SecondsSpent: secondsSpent,
		Kind:         fd.Kind,
		IsFirst:      isFirst,
	}
}

// Score returns positives as a percentage of total, or 0 for an empty review.
func (r Record) Score() float64 {
	if r.Total == 0 {
		return 0
	}
	return 100 * float64(r.Positives) / float64(r.Total)
}

// CardsPerMinute returns total cards over minutes spent, or def when no
// time was recorded.
func (r Record) CardsPerMinute(def float64) float64 {
	return perMinute(r.Total, r.SecondsSpent, def)
}

func perMinute(cards, seconds int, def float64) float64 {
	if seconds <= 0 {
		return def
	}
	return float64(cards) / (float64(seconds) / 60)
}

func (r Record) fields() []string {
	first := "0"
	if r.IsFirst {
		first = "1"
	}
	return []string{
		r.Timestamp.Format(TimeLayout),
		r.Signature,
		r.Language,
		strconv.Itoa(r.Total),
		strconv.Itoa(r.Positives),
		strconv.Itoa(r.SecondsSpent),
		r.Kind.String(),
		first,
	}
}

func parseRecord(fields []string) (Record, error) {
	if len(fields) != numFields {
		return Record{}, fmt.Errorf("want %d fields, got %d", numFields, len(fields))
	}
	ts, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(fields[0]), time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("timestamp: %w", err)
	}
	var ints [3]int
	for i, name := range []string{"total", "positives", "seconds"} {
		if ints[i], err = parseCount(fields[3+i]); err != nil {
			return Record{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	kind, err := catalog.ParseKind(fields[6])
	if err != nil {
		return Record{}, err
	}
	first, err := parseBool(fields[7])
	if err != nil {
		return Record{}, err
	}
	return Record{
		Timestamp:    ts,
		Signature:    fields[1],
		Language:     fields[2],
		Total:        ints[0],
		Positives:    ints[1],
		SecondsSpent: ints[2],
		Kind:         kind,
		IsFirst:      first,
	}, nil
}

// parseCount accepts integers and integral floats such as "12.0".
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	return int(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true, nil
	case "0", "false", "":
		return false, nil
	default:
		return false, fmt.Errorf("is_first: not a boolean: %q", s)
	}
}
