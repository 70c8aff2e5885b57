package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

func row(s string) table.Row { return table.Row{s, s + "-back"} }

func fronts(rows []table.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[0]
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAppendMistakes_Rotation(t *testing.T) {
	s, _, root := newTestStore(t, Options{PartSize: 2, PartCnt: 2})
	for _, f := range []string{"a", "b", "c", "d", "e"} {
		if err := s.AppendMistakes("EN", []table.Row{row(f)}); err != nil {
			t.Fatalf("AppendMistakes(%s): %v", f, err)
		}
	}

	dir := filepath.Join(root, "EN", "mst")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("shard files = %d, want 2", len(entries))
	}
	for n, want := range map[int][]string{1: {"d", "e"}, 2: {"b", "c"}} {
		tbl, err := ReadFile(filepath.Join(dir, MistakesShardName("EN", n)), "csv")
		if err != nil {
			t.Fatalf("read shard %d: %v", n, err)
		}
		if got := fronts(tbl.Rows); !equalStrings(got, want) {
			t.Errorf("shard %d = %v, want %v", n, got, want)
		}
	}

	all, err := s.ReadMistakes("EN")
	if err != nil {
		t.Fatalf("ReadMistakes: %v", err)
	}
	if got, want := fronts(all), []string{"b", "c", "d", "e"}; !equalStrings(got, want) {
		t.Errorf("ReadMistakes = %v, want %v", got, want)
	}
}

func TestAppendMistakes_Batch(t *testing.T) {
	s, _, _ := newTestStore(t, Options{PartSize: 3, PartCnt: 3})
	batch := []table.Row{row("a"), row("b"), row("c"), row("d")}
	if err := s.AppendMistakes("EN", batch); err != nil {
		t.Fatal(err)
	}
	all, _ := s.ReadMistakes("EN")
	if got := fronts(all); !equalStrings(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("ReadMistakes = %v", got)
	}
}

func TestAppendMistakes_RemovesExcessShards(t *testing.T) {
	s, _, root := newTestStore(t, Options{PartSize: 1, PartCnt: 2})
	dir := filepath.Join(root, "EN", "mst")
	for n := 1; n <= 4; n++ {
		tbl := table.New("front", "back", []table.Row{row(string(rune('a' + 4 - n)))})
		if err := WriteFile(filepath.Join(dir, MistakesShardName("EN", n)), "csv", tbl); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AppendMistakes("EN", []table.Row{row("z")}); err != nil {
		t.Fatal(err)
	}

	for n := 3; n <= 4; n++ {
		if _, err := os.Stat(filepath.Join(dir, MistakesShardName("EN", n))); !os.IsNotExist(err) {
			t.Errorf("shard %d still present (err=%v)", n, err)
		}
	}
	all, _ := s.ReadMistakes("EN")
	if got := fronts(all); !equalStrings(got, []string{"d", "z"}) {
		t.Errorf("ReadMistakes = %v, want [d z]", got)
	}
}

func TestCreateMistakesFile_UsesActiveLanguage(t *testing.T) {
	s, _, root := newTestStore(t, Options{})
	if err := s.CreateMistakesFile([]table.Row{row("x")}); err == nil {
		t.Error("no active file did not fail")
	}
	s.LoadTemp(sampleTable(), catalog.Ephemeral, "tmp", "EN", nil)
	if err := s.CreateMistakesFile([]table.Row{row("x")}); err != nil {
		t.Fatalf("CreateMistakesFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "EN", "mst", "EN_mistakes_1.csv")); err != nil {
		t.Errorf("shard 1 missing: %v", err)
	}
}

func TestMistakesReview(t *testing.T) {
	s, _, _ := newTestStore(t, Options{PartSize: 10, PartCnt: 2})
	if err := s.AppendMistakes("EN", []table.Row{row("a"), row("b"), row("c")}); err != nil {
		t.Fatal(err)
	}

	if fd, err := s.MistakesReview("EN", 2, 5); err != nil || fd != nil {
		t.Errorf("below minimum: fd = %v, err = %v", fd, err)
	}
	fd, err := s.MistakesReview("EN", 2, 0)
	if err != nil {
		t.Fatalf("MistakesReview: %v", err)
	}
	if fd.Kind != catalog.Ephemeral || !fd.Temporary {
		t.Errorf("fd kind = %v, temporary = %v", fd.Kind, fd.Temporary)
	}
	if got := fronts(fd.Data.Rows); !equalStrings(got, []string{"b", "c"}) {
		t.Errorf("rows = %v, want [b c]", got)
	}
	if s.Active() != fd {
		t.Error("ephemeral set not active")
	}
}
