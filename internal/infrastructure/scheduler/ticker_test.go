package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 16)
	s := NewTickerScheduler(10*time.Millisecond, time.UTC)

	err := s.Start(context.Background(), func(trigger time.Time) {
		if trigger.Location() != time.UTC {
			t.Errorf("unexpected location: %s", trigger.Location())
		}
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	for range 3 {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not fire")
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != after {
		t.Fatal("job fired after Stop")
	}
}

func TestTickerSchedulerStopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan struct{}, 1)
	s := NewTickerScheduler(time.Hour, nil)

	if err := s.Start(ctx, func(time.Time) { fired <- struct{}{} }); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	<-fired
	cancel()

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}

func TestTickerSchedulerIgnoresInvalidInput(t *testing.T) {
	t.Parallel()

	if err := NewTickerScheduler(0, nil).Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := NewTickerScheduler(time.Second, nil).Start(context.Background(), nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := NewTickerScheduler(time.Second, nil).Stop(context.Background()); err != nil {
		t.Fatalf("Stop without Start: %v", err)
	}
}
