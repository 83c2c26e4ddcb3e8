package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLockerSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Minute)
	release, err := locker.Acquire(context.Background(), "attempt:u1:quiz-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("lock:attempt:u1:quiz-1") {
		t.Fatalf("expected redis lock key to be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "attempt:u1:quiz-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected contended acquire to time out, got %v", err)
	}

	release()
	if mr.Exists("lock:attempt:u1:quiz-1") {
		t.Fatalf("expected redis lock key to be removed")
	}
	again, err := locker.Acquire(context.Background(), "attempt:u1:quiz-1")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}

func TestLockerReleaseKeepsForeignLease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second)
	release, err := locker.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// lease expired and another holder took over
	mr.FastForward(2 * time.Second)
	if err := mr.Set("lock:k", "someone-else"); err != nil {
		t.Fatalf("set foreign lease: %v", err)
	}

	release()
	if got, _ := mr.Get("lock:k"); got != "someone-else" {
		t.Fatalf("release must not delete a foreign lease, got %q", got)
	}
}
