package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LISSConsulting/LISSTech.Revise/internal/fsutil"
	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

// delimiter returns the field separator for a delimited-text extension.
func delimiter(ext string) (rune, bool) {
	switch strings.ToLower(ext) {
	case "csv":
		return ',', true
	case "tsv", "txt":
		return '\t', true
	default:
		return 0, false
	}
}

func isSpreadsheet(ext string) bool {
	switch strings.ToLower(ext) {
	case "xlsx", "xlsm":
		return true
	default:
		return false
	}
}

// ReadFile parses the dataset at path, choosing the reader by ext.
func ReadFile(path, ext string) (*table.Table, error) {
	if comma, ok := delimiter(ext); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readDelimited(f, comma)
	}
	if isSpreadsheet(ext) {
		return readSpreadsheet(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
}

func readDelimited(r io.Reader, comma rune) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1 // ragged rows are reported as invalid shape, not a parse error
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse: %w", err)
	}
	return table.FromRecords(records), nil
}

// readSpreadsheet reads the first two columns of the first sheet.
func readSpreadsheet(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("dataset: workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("dataset: read sheet %q: %w", sheets[0], err)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := make([]string, table.Columns)
		copy(rec, row)
		records = append(records, rec)
	}
	return table.FromRecords(records), nil
}

// WriteFile replaces path with t encoded for ext.
func WriteFile(path, ext string, t *table.Table) error {
	enc, err := encoder(ext, t)
	if err != nil {
		return err
	}
	return fsutil.Write(path, 0644, enc)
}

// StageFile adds the replacement of path with t to b.
func StageFile(b *fsutil.Batch, path, ext string, t *table.Table) error {
	enc, err := encoder(ext, t)
	if err != nil {
		return err
	}
	return b.Stage(path, 0644, enc)
}

func encoder(ext string, t *table.Table) (func(w io.Writer) error, error) {
	if comma, ok := delimiter(ext); ok {
		return func(w io.Writer) error {
			cw := csv.NewWriter(w)
			cw.Comma = comma
			if err := cw.WriteAll(t.Records()); err != nil {
				return err
			}
			return cw.Error()
		}, nil
	}
	if isSpreadsheet(ext) {
		return func(w io.Writer) error { return writeSpreadsheet(w, t) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
}

func writeSpreadsheet(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, rec := range t.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("dataset: cell name: %w", err)
		}
		values := []any{rec[0], rec[1]}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("dataset: write row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}
