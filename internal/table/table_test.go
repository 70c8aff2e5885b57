package table

import "testing"

func TestFromRecords_Valid(t *testing.T) {
	tbl := FromRecords([][]string{{"en", "de"}, {"dog", "Hund"}, {"cat", "Katze"}})
	if !tbl.Valid() {
		t.Fatalf("expected valid table, reason %q", tbl.Reason())
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
	if tbl.Rows[1] != (Row{"cat", "Katze"}) {
		t.Errorf("row 1 = %v", tbl.Rows[1])
	}
}

func TestFromRecords_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
	}{
		{"empty", nil},
		{"three columns", [][]string{{"a", "b", "c"}, {"1", "2", "3"}}},
		{"ragged", [][]string{{"a", "b"}, {"1"}}},
		{"one column", [][]string{{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := FromRecords(tt.records)
			if tbl.Valid() {
				t.Error("expected invalid table")
			}
			if tbl.Reason() == "" {
				t.Error("invalid table should explain itself")
			}
		})
	}
}

func TestHeaderOnlyIsValid(t *testing.T) {
	tbl := FromRecords([][]string{{"front", "back"}})
	if !tbl.Valid() || tbl.Len() != 0 {
		t.Errorf("header-only table: valid=%v len=%d", tbl.Valid(), tbl.Len())
	}
}

func TestDeleteRow(t *testing.T) {
	tbl := New("f", "b", []Row{{"1", "a"}, {"2", "b"}, {"3", "c"}})
	if err := tbl.DeleteRow(1); err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 || tbl.Rows[1][0] != "3" {
		t.Errorf("rows after delete = %v", tbl.Rows)
	}
	if err := tbl.DeleteRow(5); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestSlice_Clamps(t *testing.T) {
	tbl := New("f", "b", []Row{{"1", "a"}, {"2", "b"}, {"3", "c"}})
	got := tbl.Slice(1, 10)
	if got.Len() != 2 || got.Rows[0][0] != "2" {
		t.Errorf("Slice(1, 10) = %v", got.Rows)
	}
	got.Rows[0][0] = "x"
	if tbl.Rows[1][0] != "2" {
		t.Error("Slice must not alias the source rows")
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder()
	if !p.Valid() || p.Len() != 1 {
		t.Errorf("placeholder valid=%v len=%d", p.Valid(), p.Len())
	}
}
