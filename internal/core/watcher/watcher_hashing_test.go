package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ContentHashing(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, []string{"*.grid.toml"}, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "hash_target.grid.toml")
	content := []byte("name = \"hash\"\n")

	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changedFiles:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial create event")
	}

	// Rewriting identical bytes must not report a change.
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changedFiles:
		t.Fatalf("unchanged content reported as change: %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	if err := os.WriteFile(testFile, []byte("name = \"changed\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changedFiles:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for modified content event")
	}
}
