package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("front,back\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func newCatalog(t *testing.T, root string, languages ...string) (*catalog.Catalog, *notify.Buffer) {
	t.Helper()
	buf := notify.NewBuffer(0)
	c := catalog.New(catalog.Options{
		Root:         root,
		Languages:    languages,
		LockPrefixes: []string{".~lock.", "~$"},
	}, buf, logging.Discard())
	return c, buf
}

func TestRescan_KindsAndSignatures(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "EN", "rev", "EN1.csv"))
	touch(t, filepath.Join(root, "EN", "lng", "EN.xlsx"))
	touch(t, filepath.Join(root, "EN", "mst", "EN_mistakes_1.csv"))

	c, _ := newCatalog(t, root, "EN")
	files, err := c.Rescan()
	if err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("len(files) = %d, want 3", len(files))
	}

	rev := files[filepath.Join(root, "EN", "rev", "EN1.csv")]
	if rev == nil {
		t.Fatal("revision file missing")
	}
	if rev.Kind != catalog.Revision || rev.Signature != "EN1" || rev.Extension != "csv" || rev.Language != "EN" {
		t.Errorf("revision descriptor = %+v", rev)
	}
	lng := files[filepath.Join(root, "EN", "lng", "EN.xlsx")]
	if lng == nil || lng.Kind != catalog.Language || lng.Extension != "xlsx" || !lng.Valid {
		t.Errorf("language descriptor = %+v", lng)
	}
}

func TestRescan_IgnoresLockAndHiddenFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "EN", "lng", "EN.csv"))
	touch(t, filepath.Join(root, "EN", "lng", ".~lock.EN.csv#"))
	touch(t, filepath.Join(root, "EN", "lng", "~$EN.xlsx"))
	touch(t, filepath.Join(root, "EN", "lng", "desktop.ini"))
	touch(t, filepath.Join(root, "EN", "lng", ".hidden.csv"))

	c, _ := newCatalog(t, root, "EN")
	files, err := c.Rescan()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		var names []string
		for p := range files {
			names = append(names, filepath.Base(p))
		}
		t.Errorf("files = %v, want only EN.csv", names)
	}
}

func TestRescan_CreatesMissingLanguageDirs(t *testing.T) {
	root := t.TempDir()
	c, buf := newCatalog(t, root, "DE")

	if _, err := c.Rescan(); err != nil {
		t.Fatalf("missing directories must not be fatal: %v", err)
	}
	for _, kind := range []string{"rev", "lng", "mst"} {
		if _, err := os.Stat(filepath.Join(root, "DE", kind)); err != nil {
			t.Errorf("expected %s to be created", kind)
		}
	}
	msgs := buf.Messages()
	if len(msgs) != 3 || msgs[0].Severity != notify.Warning {
		t.Errorf("notifications = %+v, want 3 warnings", msgs)
	}
}

func TestRescan_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(root, nil, 0644); err != nil {
		t.Fatal(err)
	}
	c, _ := newCatalog(t, root, "EN")
	if _, err := c.Rescan(); err == nil {
		t.Error("expected fatal error when root is a file")
	}
}

func TestSortedByKind_NaturalOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"part10", "part2", "part1", "EN12", "EN3", "EN1", "DE100"} {
		touch(t, filepath.Join(root, "EN", "rev", name+".csv"))
	}
	c, _ := newCatalog(t, root, "EN")

	revs, err := c.SortedByKind(catalog.Revision)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, fd := range revs {
		got = append(got, fd.Basename)
	}
	want := "DE100,EN1,EN3,EN12,part1,part2,part10"
	if strings.Join(got, ",") != want {
		t.Errorf("order = %v, want %s", got, want)
	}
}

func TestInvalidate_RefreshesEveryView(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "EN", "rev", "a.csv"))
	c, _ := newCatalog(t, root, "EN")

	revs, _ := c.SortedByKind(catalog.Revision)
	if len(revs) != 1 {
		t.Fatalf("initial revisions = %d", len(revs))
	}

	touch(t, filepath.Join(root, "EN", "rev", "b.csv"))
	touch(t, filepath.Join(root, "EN", "lng", "c.csv"))

	// Still memoized.
	revs, _ = c.SortedByKind(catalog.Revision)
	if len(revs) != 1 {
		t.Errorf("memoized view changed without invalidation: %d", len(revs))
	}

	before := c.Generation()
	c.Invalidate()
	if c.Generation() == before {
		t.Error("Invalidate should bump the generation")
	}
	revs, _ = c.SortedByKind(catalog.Revision)
	lngs, _ := c.SortedByKind(catalog.Language)
	files, _ := c.Files()
	if len(revs) != 2 || len(lngs) != 1 || len(files) != 3 {
		t.Errorf("after invalidate: revs=%d lngs=%d files=%d", len(revs), len(lngs), len(files))
	}
}

func TestRescan_KeepsDescriptorIdentity(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "EN", "rev", "a.csv")
	touch(t, path)
	c, _ := newCatalog(t, root, "EN")

	fd, ok, err := c.Lookup(path)
	if err != nil || !ok {
		t.Fatalf("Lookup: %v %v", ok, err)
	}
	fd.Data = table.Placeholder()

	if _, err := c.Rescan(); err != nil {
		t.Fatal(err)
	}
	again, _, _ := c.Lookup(path)
	if again != fd || again.Data == nil {
		t.Error("rescan should keep the loaded descriptor")
	}
	if loaded := c.Loaded(); len(loaded) != 1 {
		t.Errorf("Loaded() = %d, want 1", len(loaded))
	}
}

func TestRescan_ClearsTemporaryOnReleasedDescriptor(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "EN", "rev", "a.csv")
	touch(t, path)
	c, _ := newCatalog(t, root, "EN")

	fd, _, _ := c.Lookup(path)
	fd.Temporary, fd.Valid = true, false

	if _, err := c.Rescan(); err != nil {
		t.Fatal(err)
	}
	if again, _, _ := c.Lookup(path); again.Temporary || !again.Valid {
		t.Errorf("Temporary = %v, Valid = %v, want false, true", again.Temporary, again.Valid)
	}
}

func TestMatchPattern(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "EN", "lng", "verbs.csv"))
	touch(t, filepath.Join(root, "EN", "lng", "nouns.csv"))
	touch(t, filepath.Join(root, "DE", "lng", "verbs_de.csv"))
	touch(t, filepath.Join(root, "EN", "rev", "verbs_rev.csv"))
	c, _ := newCatalog(t, root, "EN", "DE")

	got, err := c.MatchPattern("verbs", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("MatchPattern(verbs) = %v, want the two language files", got)
	}

	got, err = c.MatchPattern("verbs", "^DE$")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "verbs.csv" {
		t.Errorf("with DE excluded = %v", got)
	}

	if _, err := c.MatchPattern("(", ""); err == nil {
		t.Error("expected regex compile error")
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []catalog.Kind{catalog.Unknown, catalog.Revision, catalog.Language, catalog.Mistakes, catalog.Ephemeral} {
		got, err := catalog.ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := catalog.ParseKind("zzz"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
