package rulepack

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, path string) *atomic.Int32 {
	t.Helper()
	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Watch(ctx, func() error {
			calls.Add(1)
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Stop()
	})

	// Give the watcher time to register its paths.
	time.Sleep(50 * time.Millisecond)
	return &calls
}

func TestWatcher_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "invoice.yaml"), invoicePack)
	calls := startWatcher(t, dir)

	writeFile(t, filepath.Join(dir, "gift.yaml"), giftCardPack)
	waitFor(t, func() bool { return calls.Load() >= 1 })
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	calls := startWatcher(t, dir)

	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	writeFile(t, filepath.Join(dir, ".swap.yaml"), "x")
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("onChange called %d times for irrelevant files", n)
	}
}

func TestWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.yaml")
	writeFile(t, path, invoicePack)
	calls := startWatcher(t, path)

	writeFile(t, filepath.Join(dir, "other.yaml"), giftCardPack)
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("onChange called %d times for a sibling file", n)
	}

	writeFile(t, path, invoicePack+"\n")
	waitFor(t, func() bool { return calls.Load() >= 1 })
}

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
	}
	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(80 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}
