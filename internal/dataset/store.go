// Package dataset loads and saves the two-column datasets behind catalog
// entries and owns the single active-file slot.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

// SeedStore persists the last drawn shuffle seed.
type SeedStore interface {
	SaveSeed(seed int64) error
}

// Options configures a Store.
type Options struct {
	RevisionExt string            // extension for new revision files
	Signatures  map[string]string // language -> custom naming pattern
	PartSize    int               // rows per mistakes shard
	PartCnt     int               // shards kept per language
	Seeds       SeedStore         // nil = seeds are not persisted
	Now         func() time.Time  // nil = time.Now
}

// Store is the dataset layer. It holds at most one active descriptor;
// SetActive is the only place that slot changes.
type Store struct {
	cat    *catalog.Catalog
	opts   Options
	sink   notify.Sink
	logger *slog.Logger

	active   *catalog.FileDescriptor
	reserved map[string]bool // signatures handed out but not yet on disk
}

// New creates a Store over cat.
func New(cat *catalog.Catalog, opts Options, sink notify.Sink, logger *slog.Logger) *Store {
	if sink == nil {
		sink = notify.Discard{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RevisionExt == "" {
		opts.RevisionExt = "csv"
	}
	return &Store{
		cat:      cat,
		opts:     opts,
		sink:     sink,
		logger:   logging.OrDefault(logger),
		reserved: make(map[string]bool),
	}
}

// Catalog returns the catalog the store reads from.
func (s *Store) Catalog() *catalog.Catalog { return s.cat }

// Active returns the active descriptor, or nil.
func (s *Store) Active() *catalog.FileDescriptor { return s.active }

// SetActive makes fd the active file. Invalid or missing data is replaced
// with a one-row placeholder and fd is marked temporary; valid data clears
// that mark again for files backed by a path. The previous active file
// releases its table.
func (s *Store) SetActive(fd *catalog.FileDescriptor) {
	if !fd.Data.Valid() {
		if fd.Data != nil {
			s.sink.Notify(fmt.Sprintf("%s: %s", fd.Basename, fd.Data.Reason()), notify.Warning)
		}
		fd.Data = table.Placeholder()
		fd.Temporary = true
		fd.Valid = false
	} else {
		fd.Valid = true
		fd.Temporary = fd.Filepath == ""
	}

	if prev := s.active; prev != nil && prev != fd {
		prev.Data = nil
	}
	s.active = fd
	s.checkExclusive()
}

// checkExclusive warns when a descriptor other than the active one still
// holds a table. This points at a leak, not at data loss.
func (s *Store) checkExclusive() {
	holders := 0
	seenActive := false
	for _, fd := range s.cat.Loaded() {
		holders++
		if fd == s.active {
			seenActive = true
		}
	}
	if !seenActive && s.active != nil && s.active.Data != nil {
		holders++
	}
	if holders > 1 {
		s.logger.Warn("more than one file holds loaded data", "holders", holders, "active", s.active.Key())
	}
}

// Load reads fd from disk and activates it. Any failure is reported through
// the notification sink and an empty placeholder is activated instead, so
// callers always get a table back.
func (s *Store) Load(fd *catalog.FileDescriptor) *table.Table {
	t, err := ReadFile(fd.Filepath, fd.Extension)
	switch {
	case err == nil:
		fd.Data = t
	case errors.Is(err, os.ErrNotExist):
		s.sink.Notify(fmt.Sprintf("File not found: %s", fd.Filepath), notify.Error)
		fd.Data = nil
	case errors.Is(err, ErrUnsupportedExt):
		s.sink.Notify(fmt.Sprintf("Unsupported file type %q: %s", fd.Extension, fd.Basename), notify.Error)
		fd.Data = nil
	default:
		s.sink.Notify(fmt.Sprintf("Cannot read %s: %v", fd.Basename, err), notify.Error)
		fd.Data = nil
	}
	s.SetActive(fd)
	s.logger.Debug("dataset loaded", "file", fd.Key(), "rows", fd.Data.Len(), "valid", fd.Valid)
	return fd.Data
}

// Shuffle reorders the active table. With a nil seed one is drawn at
// random and persisted so the order can be replayed. Returns the seed used.
func (s *Store) Shuffle(seed *int64) (int64, error) {
	if s.active == nil || s.active.Data == nil {
		return 0, ErrNoActiveFile
	}
	var v int64
	if seed != nil {
		v = *seed
	} else {
		v = rand.Int63()
		if s.opts.Seeds != nil {
			if err := s.opts.Seeds.SaveSeed(v); err != nil {
				s.sink.Notify(fmt.Sprintf("Could not save shuffle seed: %v", err), notify.Warning)
			}
		}
	}

	rows := s.active.Data.Rows
	r := rand.New(rand.NewSource(v))
	r.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return v, nil
}

// LoadTemp activates an in-memory descriptor with no backing path. An empty
// basename gets a generated identifier.
func (s *Store) LoadTemp(t *table.Table, kind catalog.Kind, basename, language string, parent *catalog.Parent) *catalog.FileDescriptor {
	if basename == "" {
		basename = "TMP_" + uuid.NewString()[:8]
	}
	fd := &catalog.FileDescriptor{
		Basename:  basename,
		Language:  language,
		Kind:      kind,
		Signature: basename,
		Temporary: true,
		Parent:    parent,
		Data:      t,
	}
	s.SetActive(fd)
	// SetActive only forces Temporary for invalid data.
	fd.Temporary = true
	return fd
}

// LoadSlice activates rows [start, end) of fd as a temporary file that
// remembers its parent and the parent's length.
func (s *Store) LoadSlice(fd *catalog.FileDescriptor, start, end int) (*catalog.FileDescriptor, error) {
	full := fd.Data
	if full == nil {
		var err error
		if full, err = ReadFile(fd.Filepath, fd.Extension); err != nil {
			s.sink.Notify(fmt.Sprintf("Cannot read %s: %v", fd.Basename, err), notify.Error)
			return nil, fmt.Errorf("dataset: slice %s: %w", fd.Basename, err)
		}
	}
	if start < 0 || start >= full.Len() || end <= start {
		return nil, fmt.Errorf("dataset: slice [%d:%d] out of range for %d rows", start, end, full.Len())
	}
	part := full.Slice(start, end)
	name := fmt.Sprintf("%s_%d-%d", fd.Basename, start+1, start+part.Len())
	return s.LoadTemp(part, fd.Kind, name, fd.Language, &catalog.Parent{Filepath: fd.Filepath, Length: full.Len()}), nil
}

// DeleteRow removes row index from the active table. The backing file is
// not touched; call Save to persist.
func (s *Store) DeleteRow(index int) error {
	if s.active == nil || s.active.Data == nil {
		return ErrNoActiveFile
	}
	return s.active.Data.DeleteRow(index)
}

// Save writes fd's table back to its file.
func (s *Store) Save(fd *catalog.FileDescriptor) error {
	if fd.Temporary || fd.Filepath == "" {
		return fmt.Errorf("%w: %s", ErrTemporary, fd.Basename)
	}
	if fd.Data == nil {
		return fmt.Errorf("dataset: save %s: no data loaded", fd.Basename)
	}
	if err := WriteFile(fd.Filepath, fd.Extension, fd.Data); err != nil {
		s.sink.Notify(fmt.Sprintf("Save failed for %s: %v", fd.Basename, err), notify.Error)
		return err
	}
	s.logger.Info("dataset saved", "file", fd.Filepath, "rows", fd.Data.Len())
	return nil
}

// CreateRevisionFile writes t as a new revision file named after the active
// file's signature, rescans the catalog and activates the new descriptor.
func (s *Store) CreateRevisionFile(t *table.Table) (string, error) {
	if s.active == nil {
		return "", ErrNoActiveFile
	}
	src := s.active
	if src.Signature == "" {
		return "", fmt.Errorf("dataset: active file %s has no signature", src.Basename)
	}

	ext := s.opts.RevisionExt
	path := filepath.Join(s.cat.Dir(src.Language, catalog.Revision), src.Signature+"."+ext)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := WriteFile(path, ext, t); err != nil {
		s.sink.Notify(fmt.Sprintf("Could not create revision %s: %v", src.Signature, err), notify.Error)
		return "", err
	}
	delete(s.reserved, src.Signature)

	if _, err := s.cat.Rescan(); err != nil {
		return path, err
	}
	fd, ok, _ := s.cat.Lookup(path)
	if !ok {
		return path, fmt.Errorf("dataset: new revision %s not visible after rescan", path)
	}
	fd.Data = t
	s.SetActive(fd)
	s.logger.Info("revision created", "file", path, "rows", t.Len())
	return path, nil
}

// RenameFile renames fd on disk to newBase, keeping its extension, and
// invalidates the catalog. Returns the old signature.
func (s *Store) RenameFile(fd *catalog.FileDescriptor, newBase string) (string, error) {
	if fd.Temporary || fd.Filepath == "" {
		return "", fmt.Errorf("%w: %s", ErrTemporary, fd.Basename)
	}
	newPath := filepath.Join(filepath.Dir(fd.Filepath), newBase+"."+fd.Extension)
	if _, err := os.Stat(newPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	if err := os.Rename(fd.Filepath, newPath); err != nil {
		return "", fmt.Errorf("dataset: rename %s: %w", fd.Filepath, err)
	}
	old := fd.Signature
	fd.Filepath, fd.Basename, fd.Signature = newPath, newBase, newBase
	s.cat.Invalidate()
	return old, nil
}
