package live

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatchRequiresPaths(t *testing.T) {
	err := Watch(context.Background(), Options{}, nil, func() error { return nil })
	if err == nil {
		t.Fatal("Expected an error for an empty path list")
	}
}

func TestWatchRunsImmediatelyAndOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "norms.csv")
	if err := os.WriteFile(path, []byte("kitten,cat,0.5,0.1\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	var mu sync.Mutex
	runs := 0
	fn := func() error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Options{
			Paths:    []string{path},
			Debounce: 20 * time.Millisecond,
		}, nil, fn)
	}()

	waitForRuns := func(want int) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			mu.Lock()
			n := runs
			mu.Unlock()
			if n >= want {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatalf("Timed out waiting for %d runs", want)
	}

	// The initial run happens before any file change.
	waitForRuns(1)

	if err := os.WriteFile(path, []byte("puppy,dog,0.6,0.2\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite input: %v", err)
	}
	waitForRuns(2)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned an error: %v", err)
	}
}

func TestWatchSurvivesRunErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "norms.csv")
	if err := os.WriteFile(path, []byte("a\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	var mu sync.Mutex
	runs := 0
	fn := func() error {
		mu.Lock()
		runs++
		mu.Unlock()
		return fmt.Errorf("half-saved input")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Options{
			Paths:    []string{path},
			Debounce: 20 * time.Millisecond,
		}, nil, fn)
	}()

	waitForRuns := func(want int) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			mu.Lock()
			n := runs
			mu.Unlock()
			if n >= want {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatalf("Timed out waiting for %d runs", want)
	}

	waitForRuns(1)

	// A failing run must not kill the loop; the next change still triggers.
	if err := os.WriteFile(path, []byte("b\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite input: %v", err)
	}
	waitForRuns(2)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned an error: %v", err)
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	watchedPath := filepath.Join(dir, "norms.csv")
	siblingPath := filepath.Join(dir, "scratch.txt")
	if err := os.WriteFile(watchedPath, []byte("a\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	var mu sync.Mutex
	runs := 0
	fn := func() error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Options{
			Paths:    []string{watchedPath},
			Debounce: 20 * time.Millisecond,
		}, nil, fn)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := runs
		mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The watch covers the directory, but only the listed file triggers.
	if err := os.WriteFile(siblingPath, []byte("noise\n"), 0644); err != nil {
		t.Fatalf("Failed to write sibling: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	n := runs
	mu.Unlock()
	if n != 1 {
		t.Fatalf("Expected only the initial run, got %d", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned an error: %v", err)
	}
}
