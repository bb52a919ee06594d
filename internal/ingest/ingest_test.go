package ingest

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func touch(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "vendor-b", "INV2.PDF"), "b")
	touch(t, filepath.Join(root, "vendor-a", "inv1.pdf"), "a")
	touch(t, filepath.Join(root, "vendor-a", "notes.txt"), "x")
	touch(t, filepath.Join(root, ".cache", "old.pdf"), "c")
	touch(t, filepath.Join(root, ".hidden.pdf"), "h")

	got, stats, err := Collect(root, true, nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []string{
		filepath.Join(root, "vendor-a", "inv1.pdf"),
		filepath.Join(root, "vendor-b", "INV2.PDF"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	if stats.Matched != 2 {
		t.Errorf("matched = %d", stats.Matched)
	}

	all, _, err := Collect(root, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("without hidden skipping got %v", all)
	}
}

func TestCollectErrors(t *testing.T) {
	if _, _, err := Collect("  ", false, nil); err == nil {
		t.Error("blank root accepted")
	}
	if _, _, err := Collect(filepath.Join(t.TempDir(), "missing"), false, nil); err == nil {
		t.Error("missing root accepted")
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.pdf"), "same")
	touch(t, filepath.Join(dir, "b.pdf"), "same")
	touch(t, filepath.Join(dir, "c.pdf"), "other")

	a, _ := HashFile(filepath.Join(dir, "a.pdf"))
	b, _ := HashFile(filepath.Join(dir, "b.pdf"))
	c, _ := HashFile(filepath.Join(dir, "c.pdf"))
	if a != b || a == c || len(a) != 64 {
		t.Errorf("hashes a=%s b=%s c=%s", a, b, c)
	}
}

func TestWatchBatchesBursts(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"), "e")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batches, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	next := func() []string {
		t.Helper()
		select {
		case b := <-batches:
			return b
		case <-time.After(5 * time.Second):
			t.Fatal("no batch within 5s")
			return nil
		}
	}

	if first := next(); !slices.Equal(first, []string{filepath.Join(root, "existing.pdf")}) {
		t.Fatalf("initial batch = %v", first)
	}

	touch(t, filepath.Join(root, "x.pdf"), "x")
	touch(t, filepath.Join(root, "y.txt"), "y")
	touch(t, filepath.Join(root, "z.pdf"), "z")

	seen := map[string]bool{}
	for len(seen) < 2 {
		for _, p := range next() {
			seen[filepath.Base(p)] = true
		}
	}
	if !seen["x.pdf"] || !seen["z.pdf"] || seen["y.txt"] {
		t.Errorf("watched files = %v", seen)
	}

	cancel()
	for range batches {
	}
}

func TestWatchRequiresRoots(t *testing.T) {
	if _, err := Watch(context.Background(), WatchConfig{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
