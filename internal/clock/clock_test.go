package clock

import (
	"context"
	"testing"
	"time"
)

func TestFakeSleepWakesOnAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	done := make(chan error, 1)
	go func() {
		done <- f.Sleep(context.Background(), time.Second)
	}()
	if !f.WaitForSleepers(1, time.Second) {
		t.Fatalf("sleeper never registered")
	}
	f.Advance(500 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("sleep returned early")
	default:
	}
	f.Advance(500 * time.Millisecond)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("sleep did not wake")
	}
}

func TestFakeSleepCancel(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Sleep(ctx, time.Hour)
	}()
	if !f.WaitForSleepers(1, time.Second) {
		t.Fatalf("sleeper never registered")
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.Sleepers() != 0 {
		t.Fatalf("expected cancelled sleeper to be removed")
	}
}

func TestFakeTimers(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var fired []string
	f.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	f.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := f.AfterFunc(time.Second, func() { fired = append(fired, "x") })
	if !stopped.Stop() {
		t.Fatalf("expected Stop to revoke pending timer")
	}
	if stopped.Stop() {
		t.Fatalf("expected second Stop to report false")
	}
	f.Advance(3 * time.Second)
	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("unexpected firing order: %v", fired)
	}
}

func TestAutoFakeRecordsSleeps(t *testing.T) {
	start := time.Unix(0, 0)
	f := NewAutoFake(start)
	_ = f.Sleep(context.Background(), 60*time.Millisecond)
	_ = f.Sleep(context.Background(), 180*time.Millisecond)
	if got := f.Now().Sub(start); got != 240*time.Millisecond {
		t.Fatalf("expected 240ms elapsed, got %v", got)
	}
	if slept := f.Slept(); len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(slept))
	}
}
