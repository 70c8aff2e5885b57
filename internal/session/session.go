// Package session drives one review pass over the active dataset and turns
// the outcome into ledger records, mistakes and, for a completed language
// file, a new revision.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/dataset"
	"github.com/LISSConsulting/LISSTech.Revise/internal/ledger"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

// ErrNotStarted is returned by card operations before Begin.
var ErrNotStarted = errors.New("session: not started")

// ErrFinished is returned when answering past the last card.
var ErrFinished = errors.New("session: no cards left")

// Recorder receives completed reviews.
type Recorder interface {
	Append(rec ledger.Record) error
}

// Result summarizes a finished pass.
type Result struct {
	Signature    string
	Kind         catalog.Kind
	Total        int
	Positives    int
	SecondsSpent int
	Mistakes     int
	Recorded     bool   // a ledger row was written
	RevisionPath string // set when a language file became a revision
}

// Session is a single pass through the active file. It is not safe for
// concurrent use; callers serialize through app.App.Do.
type Session struct {
	store  *dataset.Store
	rec    Recorder
	sink   notify.Sink
	logger *slog.Logger
	now    func() time.Time

	fd        *catalog.FileDescriptor
	started   time.Time
	pos       int
	revealed  bool
	positives int
	mistakes  []table.Row
}

// New creates an idle Session.
func New(store *dataset.Store, rec Recorder, sink notify.Sink, logger *slog.Logger, now func() time.Time) *Session {
	if sink == nil {
		sink = notify.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &Session{store: store, rec: rec, sink: sink, logger: logging.OrDefault(logger), now: now}
}

// Begin activates fd and resets the counters. Files backed by a path are
// always read again so edits made since the last pass are picked up.
func (s *Session) Begin(fd *catalog.FileDescriptor) {
	if fd.Filepath != "" {
		s.store.Load(fd)
	} else {
		s.store.SetActive(fd)
	}
	s.fd = fd
	s.started = s.now()
	s.pos, s.positives, s.revealed = 0, 0, false
	s.mistakes = nil
	s.logger.Debug("session started", "file", fd.Key(), "cards", fd.Data.Len())
}

// File returns the file under review, or nil.
func (s *Session) File() *catalog.FileDescriptor { return s.fd }

// Progress returns answered cards and total cards.
func (s *Session) Progress() (done, total int) {
	if s.fd == nil {
		return 0, 0
	}
	return s.pos, s.fd.Data.Len()
}

// Positives returns the correct answers so far.
func (s *Session) Positives() int { return s.positives }

// Done reports whether every card has been answered.
func (s *Session) Done() bool {
	done, total := s.Progress()
	return s.fd != nil && done >= total
}

// Current returns the card being asked and whether its back is shown.
func (s *Session) Current() (table.Row, bool, error) {
	if s.fd == nil {
		return table.Row{}, false, ErrNotStarted
	}
	if s.Done() {
		return table.Row{}, false, ErrFinished
	}
	return s.fd.Data.Rows[s.pos], s.revealed, nil
}

// Reveal shows the back of the current card.
func (s *Session) Reveal() (string, error) {
	row, _, err := s.Current()
	if err != nil {
		return "", err
	}
	s.revealed = true
	return row[1], nil
}

// Answer grades the current card and moves to the next one. Wrong answers
// are kept for the mistakes log.
func (s *Session) Answer(correct bool) error {
	row, _, err := s.Current()
	if err != nil {
		return err
	}
	if correct {
		s.positives++
	} else {
		s.mistakes = append(s.mistakes, row)
	}
	s.pos++
	s.revealed = false
	return nil
}

// Finish closes the pass. A completed language file (or language slice) is
// written out as a new revision and recorded as its first pass; revisions
// and ephemeral sets get a normal record. Wrong answers from language and
// revision files go to the language's mistakes log. Incomplete passes,
// placeholders and revision slices are not recorded.
func (s *Session) Finish() (Result, error) {
	if s.fd == nil {
		return Result{}, ErrNotStarted
	}
	fd := s.fd
	s.fd = nil

	res := Result{
		Signature:    fd.Signature,
		Kind:         fd.Kind,
		Total:        s.pos,
		Positives:    s.positives,
		SecondsSpent: int(s.now().Sub(s.started).Seconds()),
		Mistakes:     len(s.mistakes),
	}
	if res.Total == 0 || (fd.Temporary && fd.Parent == nil && fd.Kind != catalog.Ephemeral) {
		return res, nil
	}
	complete := s.pos >= fd.Data.Len()

	if len(s.mistakes) > 0 && (fd.Kind == catalog.Language || fd.Kind == catalog.Revision) {
		if err := s.store.AppendMistakes(fd.Language, s.mistakes); err != nil {
			s.logger.Warn("mistakes not saved", "file", fd.Key(), "error", err)
		}
	}

	target, isFirst := fd, false
	switch {
	case !complete:
		s.logger.Info("partial pass not recorded", "file", fd.Key(), "answered", s.pos, "cards", fd.Data.Len())
		return res, nil
	case fd.Kind == catalog.Language:
		rev, err := s.promote(fd)
		if err != nil {
			return res, err
		}
		target, isFirst = rev, true
		res.RevisionPath = rev.Filepath
		res.Signature = rev.Signature
		res.Kind = rev.Kind
	case fd.Temporary && fd.Kind != catalog.Ephemeral:
		return res, nil
	}

	r := ledger.NewRecord(target, res.Total, res.Positives, res.SecondsSpent, isFirst, s.now())
	if err := s.rec.Append(r); err != nil {
		s.sink.Notify(fmt.Sprintf("Review not recorded: %v", err), notify.Error)
		return res, err
	}
	res.Recorded = true
	return res, nil
}

// promote writes the language file's cards as a new revision under a fresh
// signature and returns the new revision's descriptor.
func (s *Session) promote(fd *catalog.FileDescriptor) (*catalog.FileDescriptor, error) {
	cards := fd.Data.Clone()
	fd.Signature = s.store.GenerateSignature(fd.Language)
	path, err := s.store.CreateRevisionFile(cards)
	if err != nil {
		return nil, fmt.Errorf("session: create revision: %w", err)
	}
	rev := s.store.Active()
	s.sink.Notify(fmt.Sprintf("Created revision %s", rev.Signature), notify.Info)
	s.logger.Info("language file promoted", "source", fd.Key(), "revision", path)
	if !fd.Temporary {
		// The language file keeps its own name as signature.
		fd.Signature = fd.Basename
	}
	return rev, nil
}
