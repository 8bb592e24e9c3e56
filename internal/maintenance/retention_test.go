package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/switchboard/internal/logging"
)

type recordingPurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int64
	err     error
}

func (p *recordingPurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.removed, p.err
}

func (p *recordingPurger) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

type everyFewMillis struct{}

func (everyFewMillis) Next(t time.Time) time.Time { return t.Add(5 * time.Millisecond) }

func TestRunOnceUsesRetentionWindow(t *testing.T) {
	p := &recordingPurger{removed: 7}
	job, err := NewRetentionJob(p, "0 3 * * *", 90, logging.Discard())
	if err != nil {
		t.Fatalf("NewRetentionJob() error = %v", err)
	}
	now := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	removed, err := job.RunOnce(context.Background())
	if err != nil || removed != 7 {
		t.Fatalf("RunOnce() = %d, %v", removed, err)
	}
	if want := now.Add(-90 * 24 * time.Hour); !p.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %s, want %s", p.cutoffs[0], want)
	}
}

func TestRunOnceReportsFailure(t *testing.T) {
	p := &recordingPurger{err: errors.New("db down")}
	job, err := NewRetentionJob(p, "@daily", 1, logging.Discard())
	if err != nil {
		t.Fatalf("NewRetentionJob() error = %v", err)
	}
	var hookErr error
	job.SetRunHook(func(_ int64, err error) { hookErr = err })
	if _, err := job.RunOnce(context.Background()); err == nil {
		t.Fatalf("RunOnce() should fail")
	}
	if hookErr == nil {
		t.Fatalf("run hook did not see the failure")
	}
}

func TestNewRetentionJobValidates(t *testing.T) {
	if _, err := NewRetentionJob(&recordingPurger{}, "not a schedule", 90, nil); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
	if _, err := NewRetentionJob(&recordingPurger{}, "0 3 * * *", 0, nil); err == nil {
		t.Fatalf("expected error for zero retention")
	}
	if _, err := NewRetentionJob(nil, "0 3 * * *", 90, nil); err == nil {
		t.Fatalf("expected error for nil purger")
	}
}

func TestNextFollowsCronSchedule(t *testing.T) {
	job, err := NewRetentionJob(&recordingPurger{}, "0 3 * * *", 90, nil)
	if err != nil {
		t.Fatalf("NewRetentionJob() error = %v", err)
	}
	from := time.Date(2026, 6, 1, 4, 0, 0, 0, time.UTC)
	if got, want := job.Next(from), time.Date(2026, 6, 2, 3, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("Next() = %s, want %s", got, want)
	}
}

func TestRunFiresUntilCancelled(t *testing.T) {
	p := &recordingPurger{}
	job, err := NewRetentionJob(p, "0 3 * * *", 30, logging.Discard())
	if err != nil {
		t.Fatalf("NewRetentionJob() error = %v", err)
	}
	job.schedule = everyFewMillis{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.calls() < 2 {
		t.Fatalf("purges = %d, want at least 2", p.calls())
	}
}
