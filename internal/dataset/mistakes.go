package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/fsutil"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

// mistakesExt is the fixed extension of mistakes shards.
const mistakesExt = "csv"

// MistakesShardName returns the file name of shard n (1 = newest).
func MistakesShardName(language string, n int) string {
	return fmt.Sprintf("%s_mistakes_%d.%s", language, n, mistakesExt)
}

func (s *Store) shardPath(language string, n int) string {
	return filepath.Join(s.cat.Dir(language, catalog.Mistakes), MistakesShardName(language, n))
}

// shardNumbers lists every shard number present on disk for language,
// ascending, including shards beyond the configured count.
func (s *Store) shardNumbers(language string) ([]int, error) {
	entries, err := os.ReadDir(s.cat.Dir(language, catalog.Mistakes))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: list mistakes: %w", err)
	}
	re := regexp.MustCompile("^" + regexp.QuoteMeta(language) + `_mistakes_(\d+)\.` + mistakesExt + "$")
	var out []int
	for _, e := range entries {
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// readShards returns the rows of every shard, oldest first, and the rows
// of each shard keyed by number.
func (s *Store) readShards(language string) ([]table.Row, map[int][]table.Row, []string, error) {
	nums, err := s.shardNumbers(language)
	if err != nil {
		return nil, nil, nil, err
	}
	var (
		all    []table.Row
		header []string
		byNum  = make(map[int][]table.Row, len(nums))
	)
	for i := len(nums) - 1; i >= 0; i-- {
		n := nums[i]
		t, err := ReadFile(s.shardPath(language, n), mistakesExt)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("dataset: read mistakes shard %d: %w", n, err)
		}
		if n == 1 || header == nil {
			header = t.Header
		}
		byNum[n] = t.Rows
		all = append(all, t.Rows...)
	}
	return all, byNum, header, nil
}

// ReadMistakes returns every stored mistake for language, oldest first.
func (s *Store) ReadMistakes(language string) ([]table.Row, error) {
	rows, _, _, err := s.readShards(language)
	return rows, err
}

// CreateMistakesFile appends rows to the active file's language shards.
func (s *Store) CreateMistakesFile(rows []table.Row) error {
	if s.active == nil {
		return ErrNoActiveFile
	}
	return s.AppendMistakes(s.active.Language, rows)
}

// AppendMistakes appends rows to language's mistakes log. The log is a
// fixed-depth set of shards: shard 1 holds the newest PartSize rows, shard 2
// the PartSize rows before those, and so on up to PartCnt shards. Rows that
// fall off the oldest shard are discarded, as are shards numbered beyond
// PartCnt. Only shards whose content changed are rewritten, and none of
// them is replaced until all of them are written.
func (s *Store) AppendMistakes(language string, rows []table.Row) error {
	if len(rows) == 0 {
		return nil
	}
	size, cnt := s.opts.PartSize, s.opts.PartCnt
	if size < 1 || cnt < 1 {
		return fmt.Errorf("dataset: mistakes partition %dx%d is not usable", size, cnt)
	}

	existing, before, header, err := s.readShards(language)
	if err != nil {
		s.sink.Notify(fmt.Sprintf("Cannot read mistakes for %s: %v", language, err), notify.Error)
		return err
	}
	if len(header) != table.Columns {
		header = []string{"front", "back"}
	}

	combined := append(existing, rows...)
	if limit := size * cnt; len(combined) > limit {
		combined = combined[len(combined)-limit:]
	}

	after := partition(combined, size)
	var batch fsutil.Batch
	for i, part := range after {
		n := i + 1
		if old, ok := before[n]; ok && slices.Equal(old, part) {
			continue
		}
		t := table.New(header[0], header[1], part)
		if err := StageFile(&batch, s.shardPath(language, n), mistakesExt, t); err != nil {
			s.sink.Notify(fmt.Sprintf("Cannot write mistakes shard %d: %v", n, err), notify.Error)
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		s.sink.Notify(fmt.Sprintf("Cannot write mistakes for %s: %v", language, err), notify.Error)
		return err
	}
	for n := range before {
		if n <= len(after) {
			continue
		}
		if err := os.Remove(s.shardPath(language, n)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("dataset: remove mistakes shard %d: %w", n, err)
		}
	}

	s.cat.Invalidate()
	s.logger.Debug("mistakes appended", "language", language, "rows", len(rows), "shards", len(after), "kept", len(combined))
	return nil
}

// partition cuts rows into shards of at most size rows, filled from the
// newest end so shard 1 (index 0) holds the most recent rows.
func partition(rows []table.Row, size int) [][]table.Row {
	var out [][]table.Row
	for end := len(rows); end > 0; end -= size {
		start := max(end-size, 0)
		out = append(out, append([]table.Row(nil), rows[start:end]...))
	}
	return out
}

// MistakesReview activates the newest n mistakes of language as an
// ephemeral set. It returns nil when fewer than minRows mistakes are stored.
func (s *Store) MistakesReview(language string, n, minRows int) (*catalog.FileDescriptor, error) {
	rows, err := s.ReadMistakes(language)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows) < minRows {
		return nil, nil
	}
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	t := table.New("front", "back", append([]table.Row(nil), rows...))
	return s.LoadTemp(t, catalog.Ephemeral, "", language, nil), nil
}
