package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
)

func TestRelevant(t *testing.T) {
	w := &Watcher{}
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: "/d/a.csv", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "/d/a.csv", Op: fsnotify.Create}, true},
		{"chmod only", fsnotify.Event{Name: "/d/a.csv", Op: fsnotify.Chmod}, false},
		{"atomic temp", fsnotify.Event{Name: "/d/.a.csv-123.tmp", Op: fsnotify.Create}, false},
		{"remove", fsnotify.Event{Name: "/d/a.csv", Op: fsnotify.Remove}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.ev); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}

func TestRun_DeliversDebouncedBatch(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "EN", "rev")
	if err := os.MkdirAll(data, 0755); err != nil {
		t.Fatal(err)
	}
	ledgerPath := filepath.Join(dir, "ledger.csv")

	w, err := New(ledgerPath, []string{data, filepath.Join(dir, "missing")}, 50*time.Millisecond, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes := make(chan Change, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(c Change) { changes <- c }) }()

	if err := os.WriteFile(ledgerPath, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(data, "EN1.csv"), []byte("a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var got Change
	deadline := time.After(3 * time.Second)
	for !(got.Ledger && len(got.Paths) > 0) {
		select {
		case c := <-changes:
			got.Ledger = got.Ledger || c.Ledger
			got.Paths = append(got.Paths, c.Paths...)
		case <-deadline:
			t.Fatalf("no complete change delivered, got %+v", got)
		}
	}
	if got.Paths[0] != filepath.Join(data, "EN1.csv") {
		t.Errorf("paths = %v", got.Paths)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}
