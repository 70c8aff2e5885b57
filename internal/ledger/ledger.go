package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/fsutil"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
)

// ErrMalformed is returned when the ledger file exists but cannot be parsed.
// It is never downgraded to an empty ledger.
var ErrMalformed = errors.New("ledger: malformed file")

// Ledger is the in-memory snapshot of the ledger file. Reads see the
// snapshot taken by the last Refresh; writes go to disk first and then
// reload the snapshot.
type Ledger struct {
	path   string
	logger *slog.Logger

	records []Record
	modTime time.Time
	size    int64
	gen     uint64
}

// Open loads the ledger at path. A missing file is an empty ledger; it is
// created on the first Append.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	l := &Ledger{path: path, logger: logging.OrDefault(logger)}
	if _, err := l.Refresh(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Generation increases every time the snapshot changes.
func (l *Ledger) Generation() uint64 { return l.gen }

// ModTime returns the modification time seen by the last reload.
func (l *Ledger) ModTime() time.Time { return l.modTime }

// Len returns the number of records in the snapshot.
func (l *Ledger) Len() int { return len(l.records) }

// Records returns a copy of the snapshot in file order.
func (l *Ledger) Records() []Record {
	return append([]Record(nil), l.records...)
}

// View returns a working copy of the snapshot for filtering and
// aggregation.
func (l *Ledger) View() *View {
	return &View{records: l.records}
}

// Refresh reloads the file if its modification time advanced (or its
// size changed) since the last load. Reports whether a reload happened.
func (l *Ledger) Refresh() (bool, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, os.ErrNotExist) {
		if l.records != nil || !l.modTime.IsZero() {
			l.records, l.modTime, l.size = nil, time.Time{}, 0
			l.gen++
			return true, nil
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger: stat: %w", err)
	}
	if !info.ModTime().After(l.modTime) && info.Size() == l.size {
		return false, nil
	}
	if err := l.reload(); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) reload() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("ledger: open: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("ledger: stat: %w", err)
	}

	records, err := parse(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, l.path, err)
	}
	l.records = records
	l.modTime = info.ModTime()
	l.size = info.Size()
	l.gen++
	l.logger.Debug("ledger loaded", "path", l.path, "records", len(records))
	return nil
}

func parse(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = separator
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var out []Record
	headerSeen := false
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if !headerSeen {
			headerSeen = true
			if strings.Join(fields, string(separator)) != Header {
				return nil, fmt.Errorf("line %d: unexpected header %q", line, strings.Join(fields, string(separator)))
			}
			continue
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append writes rec as a new row, creating the file with its header if
// needed, and reloads the snapshot. A zero timestamp is set to now. A row
// that cannot be encoded leaves the file untouched.
func (l *Ledger) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	row, err := encodeRow(rec)
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("ledger: mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("ledger: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger: stat: %w", err)
	}

	var sb strings.Builder
	if info.Size() == 0 {
		sb.WriteString(Header + "\n")
	}
	sb.WriteString(row)

	if _, err := f.WriteString(sb.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	l.logger.Info("review recorded", "signature", rec.Signature, "total", rec.Total, "positives", rec.Positives, "first", rec.IsFirst)
	return l.reload()
}

// encodeRow renders rec as one delimited line, quoting fields as needed.
func encodeRow(rec Record) (string, error) {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	cw.Comma = separator
	if err := cw.Write(rec.fields()); err != nil {
		return "", err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenameSignature replaces the signature of every row equal to old with
// new and rewrites the file atomically. Returns the number of rows changed.
func (l *Ledger) RenameSignature(old, new string) (int, error) {
	if _, err := l.Refresh(); err != nil {
		return 0, err
	}
	changed := 0
	next := make([]Record, len(l.records))
	for i, r := range l.records {
		if r.Signature == old {
			r.Signature = new
			changed++
		}
		next[i] = r
	}
	if changed == 0 {
		return 0, nil
	}

	err := fsutil.Write(l.path, 0644, func(w io.Writer) error {
		if _, err := io.WriteString(w, Header+"\n"); err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		cw.Comma = separator
		for _, r := range next {
			if err := cw.Write(r.fields()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return 0, fmt.Errorf("ledger: rewrite: %w", err)
	}
	l.logger.Info("ledger signature renamed", "old", old, "new", new, "rows", changed)
	return changed, l.reload()
}
