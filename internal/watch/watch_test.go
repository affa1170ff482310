package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startWatcher(t *testing.T, dirs ...string) <-chan []string {
	t.Helper()
	batches := make(chan []string, 8)
	w, err := New(Options{
		Dirs:     dirs,
		Debounce: 50 * time.Millisecond,
		OnChange: func(paths []string) { batches <- paths },
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return batches
}

func waitBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
		return nil
	}
}

func TestWatcher_BatchesJSONWrites(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	path := filepath.Join(root, "T01TEST.json")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"door_code":"T01TEST"}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Not a door file.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := waitBatch(t, batches)
	if len(got) != 1 || got[0] != path {
		t.Errorf("batch = %v, want [%s]", got, path)
	}
}

func TestWatcher_WatchesExistingSubdirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "CONTEXTS", "TOOLS")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	batches := startWatcher(t, filepath.Join(root, "CONTEXTS"))

	path := filepath.Join(sub, "T02NEW.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := waitBatch(t, batches)
	if len(got) != 1 || got[0] != path {
		t.Errorf("batch = %v, want [%s]", got, path)
	}
}

func TestNew_SkipsMissingDirectories(t *testing.T) {
	w, err := New(Options{
		Dirs:     []string{filepath.Join(t.TempDir(), "INDEXES")},
		OnChange: func([]string) {},
	})
	if err != nil {
		t.Fatalf("missing directory should be skipped: %v", err)
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	_ = w.fsw.Close()
}

func TestNew_RequiresHandler(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected an error without OnChange")
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "a/D05.json", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "a/D05.JSON", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "a/D05.json", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "a/D05.json", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "a/HASH_TABLE.json123456", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "a/readme.md", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := relevant(tt.ev); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
