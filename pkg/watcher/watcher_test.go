package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "part.stl")
	other := filepath.Join(dir, "other.stl")
	if err := os.WriteFile(file, []byte("solid a\nendsolid a\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	defer fw.Close()

	changed := make(chan string, 10)
	if err := fw.Watch([]string{file}, func(path string) { changed <- path }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(file, []byte("solid b\nendsolid b\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(file)
		if path != abs {
			t.Errorf("expected %s, got %s", abs, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case path := <-changed:
		t.Errorf("expected one debounced callback, got another for %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}
