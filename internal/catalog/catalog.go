package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
)

// ErrNoRoot is returned when the data root cannot be used at all.
var ErrNoRoot = errors.New("catalog: data root unavailable")

// ignoredNames are platform files that never hold datasets.
var ignoredNames = map[string]bool{"desktop.ini": true, "thumbs.db": true}

// Options configures a Catalog.
type Options struct {
	Root         string
	Languages    []string
	LockPrefixes []string
}

// Catalog maps file paths to descriptors. Every cached view is tagged with
// the generation it was built at; Invalidate bumps the generation so all
// views go stale together.
type Catalog struct {
	opts   Options
	sink   notify.Sink
	logger *slog.Logger

	gen   uint64
	cache *snapshot
}

type snapshot struct {
	gen    uint64
	files  map[string]*FileDescriptor
	sorted map[Kind][]*FileDescriptor
}

// New creates a Catalog. Nothing is scanned until the first query.
func New(opts Options, sink notify.Sink, logger *slog.Logger) *Catalog {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Catalog{opts: opts, sink: sink, logger: logging.OrDefault(logger), gen: 1}
}

// Root returns the data root.
func (c *Catalog) Root() string { return c.opts.Root }

// Languages returns the configured languages.
func (c *Catalog) Languages() []string { return c.opts.Languages }

// Dir returns the directory holding files of kind for a language.
func (c *Catalog) Dir(language string, kind Kind) string {
	return filepath.Join(c.opts.Root, language, kind.String())
}

// Generation returns the current cache generation.
func (c *Catalog) Generation() uint64 { return c.gen }

// Invalidate marks every cached view stale. Call it after any change to
// the file set (add, rename, delete).
func (c *Catalog) Invalidate() {
	c.gen++
}

// Rescan walks {root}/{language}/{rev|lng|mst} and rebuilds the mapping.
// Missing language directories are created and reported; unreadable
// directories are skipped with a warning. Descriptors for paths that
// survive the rescan keep their identity so loaded data is not orphaned.
func (c *Catalog) Rescan() (map[string]*FileDescriptor, error) {
	info, err := os.Stat(c.opts.Root)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(c.opts.Root, 0755); mkErr != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrNoRoot, c.opts.Root, mkErr)
		}
		c.sink.Notify(fmt.Sprintf("Created data directory %s", c.opts.Root), notify.Info)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrNoRoot, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoRoot, c.opts.Root)
	}

	var previous map[string]*FileDescriptor
	if c.cache != nil {
		previous = c.cache.files
	}

	files := make(map[string]*FileDescriptor)
	for _, lng := range c.opts.Languages {
		for _, kind := range scanKinds {
			c.scanDir(lng, kind, previous, files)
		}
	}

	c.gen++
	c.cache = &snapshot{gen: c.gen, files: files, sorted: make(map[Kind][]*FileDescriptor)}
	c.logger.Debug("catalog rescanned", "files", len(files), "generation", c.gen)
	return files, nil
}

func (c *Catalog) scanDir(lng string, kind Kind, previous, into map[string]*FileDescriptor) {
	dir := c.Dir(lng, kind)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			c.logger.Warn("cannot create language directory", "dir", dir, "error", mkErr)
			return
		}
		c.sink.Notify(fmt.Sprintf("Created missing directory %s", dir), notify.Warning)
		return
	}
	if err != nil {
		c.logger.Warn("skipping unreadable directory", "dir", dir, "error", err)
		return
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || c.ignored(name) {
			continue
		}
		path := filepath.Join(dir, name)
		fd := build(path, lng, kind)
		if old, ok := previous[path]; ok && old.Kind == kind {
			// Reuse the descriptor so a loaded table stays attached.
			old.Basename, old.Language, old.Extension = fd.Basename, fd.Language, fd.Extension
			if old.Data == nil {
				old.Valid, old.Temporary = fd.Valid, false
			}
			fd = old
		}
		into[path] = fd
	}
}

func (c *Catalog) ignored(name string) bool {
	if strings.HasPrefix(name, ".") || ignoredNames[strings.ToLower(name)] {
		return true
	}
	for _, p := range c.opts.LockPrefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// build makes a descriptor for an on-disk file. The signature of a scanned
// file is its basename.
func build(path, lng string, kind Kind) *FileDescriptor {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return &FileDescriptor{
		Basename:  base,
		Filepath:  path,
		Language:  lng,
		Kind:      kind,
		Extension: ext,
		Valid:     SupportedExt(ext),
		Signature: base,
	}
}

// SupportedExt reports whether a dataset reader exists for ext.
func SupportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case "csv", "tsv", "txt", "xlsx", "xlsm":
		return true
	default:
		return false
	}
}

// Files returns the memoized mapping, rescanning if it is stale.
func (c *Catalog) Files() (map[string]*FileDescriptor, error) {
	if c.cache == nil || c.cache.gen != c.gen {
		return c.Rescan()
	}
	return c.cache.files, nil
}

// Lookup returns the descriptor for path.
func (c *Catalog) Lookup(path string) (*FileDescriptor, bool, error) {
	files, err := c.Files()
	if err != nil {
		return nil, false, err
	}
	fd, ok := files[path]
	return fd, ok, nil
}

// SortedByKind returns descriptors of one kind in natural basename order.
func (c *Catalog) SortedByKind(kind Kind) ([]*FileDescriptor, error) {
	files, err := c.Files()
	if err != nil {
		return nil, err
	}
	if v, ok := c.cache.sorted[kind]; ok {
		return v, nil
	}

	var out []*FileDescriptor
	for _, fd := range files {
		if fd.Kind == kind {
			out = append(out, fd)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Basename, out[j].Basename
		if natural.Less(a, b) {
			return true
		}
		if natural.Less(b, a) {
			return false
		}
		return out[i].Filepath < out[j].Filepath
	})
	c.cache.sorted[kind] = out
	return out, nil
}

// Basenames returns the set of every known basename, used to keep
// generated signatures unique.
func (c *Catalog) Basenames() (map[string]bool, error) {
	files, err := c.Files()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(files))
	for _, fd := range files {
		out[fd.Basename] = true
	}
	return out, nil
}

// MatchPattern returns the paths of language files whose file name matches
// pattern, skipping languages whose directory name matches exclude. An
// empty exclude skips nothing. The result is sorted.
func (c *Catalog) MatchPattern(pattern, exclude string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("catalog: pattern: %w", err)
	}
	var ex *regexp.Regexp
	if exclude != "" {
		if ex, err = regexp.Compile(exclude); err != nil {
			return nil, fmt.Errorf("catalog: exclude pattern: %w", err)
		}
	}

	files, err := c.SortedByKind(Language)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, fd := range files {
		if ex != nil && ex.MatchString(fd.Language) {
			continue
		}
		if re.MatchString(filepath.Base(fd.Filepath)) {
			out = append(out, fd.Filepath)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Loaded returns every catalogued descriptor currently holding a table.
func (c *Catalog) Loaded() []*FileDescriptor {
	if c.cache == nil {
		return nil
	}
	var out []*FileDescriptor
	for _, fd := range c.cache.files {
		if fd.Data != nil {
			out = append(out, fd)
		}
	}
	return out
}
