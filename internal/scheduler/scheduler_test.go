package scheduler_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"downcore/internal/scheduler"
)

func TestScheduler_DeletesFileAtDeadline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := scheduler.New()
	defer s.Shutdown(false)

	s.Schedule(path, 20*time.Millisecond)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should still exist immediately after scheduling: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("file was not deleted within the expected window")
}

func TestScheduler_CancelPreventsDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := scheduler.New()
	defer s.Shutdown(false)

	id, _ := s.Schedule(path, 30*time.Millisecond)
	if !s.Cancel(id) {
		t.Fatal("Cancel() should report true for a pending task")
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("cancelled task deleted the file anyway: %v", err)
	}
}

func TestScheduler_CancelUnknownReturnsFalse(t *testing.T) {
	s := scheduler.New()
	defer s.Shutdown(false)

	if s.Cancel(scheduler.TaskID(999)) {
		t.Error("Cancel() on an unknown id should return false")
	}
}

func TestScheduler_CancelTwiceReturnsFalse(t *testing.T) {
	s := scheduler.New()
	defer s.Shutdown(false)

	id, _ := s.Schedule(filepath.Join(t.TempDir(), "x.bin"), time.Hour)
	if !s.Cancel(id) {
		t.Fatal("first Cancel() should succeed")
	}
	if s.Cancel(id) {
		t.Error("second Cancel() on an already-tombstoned task should return false")
	}
}

func TestScheduler_PendingCount(t *testing.T) {
	s := scheduler.New()
	defer s.Shutdown(false)

	s.Schedule(filepath.Join(t.TempDir(), "a.bin"), time.Hour)
	s.Schedule(filepath.Join(t.TempDir(), "b.bin"), time.Hour)

	if got := s.PendingCount(); got != 2 {
		t.Errorf("PendingCount() = %d, want 2", got)
	}
}

func TestScheduler_MissingFileIsNotAnError(t *testing.T) {
	s := scheduler.New()
	defer s.Shutdown(false)

	s.Schedule(filepath.Join(t.TempDir(), "never-existed.bin"), 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	// No crash, no panic: success is simply silent for a missing file.
}

func TestScheduler_ShutdownDrainRunsPendingSynchronously(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := scheduler.New()
	s.Schedule(path, time.Hour) // far in the future; only drain should run it

	s.Shutdown(true)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("drain shutdown should have deleted the pending file")
	}
}

func TestScheduler_ShutdownWithoutDrainDiscardsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := scheduler.New()
	s.Schedule(path, time.Hour)
	s.Shutdown(false)

	if _, err := os.Stat(path); err != nil {
		t.Error("non-drain shutdown should leave pending files untouched")
	}
}
