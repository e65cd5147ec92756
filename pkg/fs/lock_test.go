package fs

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func Test_Locker_LockWithTimeout_Creates_Lock_File_And_Parents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", ".lock")
	locker := NewLocker(NewReal())

	lk, err := locker.LockWithTimeout(path, time.Second)
	if err != nil {
		t.Fatalf("LockWithTimeout: %v", err)
	}

	t.Cleanup(func() { _ = lk.Close() })

	if _, err := NewReal().Stat(path); err != nil {
		t.Fatalf("Stat lock file: %v", err)
	}
}

func Test_Locker_TryLock_Returns_ErrWouldBlock_When_Held(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".lock")
	locker := NewLocker(NewReal())

	held, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}

	_, err = locker.TryLock(path)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("second TryLock err=%v, want ErrWouldBlock", err)
	}

	if err := held.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}

	_ = again.Close()
}

func Test_Locker_LockWithTimeout_Times_Out_When_Held(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".lock")
	locker := NewLocker(NewReal())

	held, err := locker.LockWithTimeout(path, time.Second)
	if err != nil {
		t.Fatalf("LockWithTimeout: %v", err)
	}

	t.Cleanup(func() { _ = held.Close() })

	start := time.Now()

	_, err = locker.LockWithTimeout(path, 30*time.Millisecond)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("err=%v, want ErrWouldBlock", err)
	}

	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("returned after %s, want >= 30ms", elapsed)
	}
}

func Test_Locker_LockWithTimeout_Returns_ErrInvalidTimeout_When_Not_Positive(t *testing.T) {
	t.Parallel()

	locker := NewLocker(NewReal())

	_, err := locker.LockWithTimeout(filepath.Join(t.TempDir(), ".lock"), 0)
	if !errors.Is(err, ErrInvalidTimeout) {
		t.Fatalf("err=%v, want ErrInvalidTimeout", err)
	}
}

func Test_Lock_Close_Is_Idempotent(t *testing.T) {
	t.Parallel()

	lk, err := NewLocker(NewReal()).TryLock(filepath.Join(t.TempDir(), ".lock"))
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}

	if err := lk.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	if err := lk.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
