package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendKeepsNewestWithinBound(t *testing.T) {
	s := NewStore(2, time.Minute)
	for i := 0; i < 7; i++ {
		s.Append("s1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	got := s.History("s1", 0)
	if len(got) != 4 {
		t.Fatalf("len(History) = %d, want 4", len(got))
	}
	if got[0].Content != "m3" || got[3].Content != "m6" {
		t.Fatalf("unexpected retained turns: %+v", got)
	}
	if s.Len("s1") != 4 {
		t.Fatalf("Len = %d, want 4", s.Len("s1"))
	}
}

func TestHistoryLimitAndUnknownSession(t *testing.T) {
	s := NewStore(10, time.Minute)
	if got := s.History("missing", 5); len(got) != 0 {
		t.Fatalf("History(missing) = %+v, want empty", got)
	}
	for i := 0; i < 5; i++ {
		s.Append("s1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	got := s.History("s1", 2)
	if len(got) != 2 || got[0].Content != "m3" || got[1].Content != "m4" {
		t.Fatalf("History(limit=2) = %+v", got)
	}
}

func TestHistoryReturnsCopies(t *testing.T) {
	s := NewStore(10, time.Minute)
	s.Append("s1", Turn{Role: RoleUser, Content: "hi", Metadata: map[string]any{"k": "v"}})
	got := s.History("s1", 0)
	got[0].Content = "changed"
	got[0].Metadata["k"] = "changed"

	again := s.History("s1", 0)
	if again[0].Content != "hi" || again[0].Metadata["k"] != "v" {
		t.Fatalf("stored turn mutated through returned copy: %+v", again[0])
	}
}

func TestContextWindowFormatsAndSkipsSystem(t *testing.T) {
	s := NewStore(10, time.Minute)
	s.Append("s1", Turn{Role: RoleSystem, Content: "boot"})
	s.Append("s1", Turn{Role: RoleUser, Content: "Where is my order?"})
	s.Append("s1", Turn{Role: RoleAssistant, Route: "order_logistics", Content: "It ships tomorrow."})
	s.Append("s1", Turn{Role: RoleAssistant, Content: "Anything else?"})

	want := "User: Where is my order?\nAssistant (order_logistics): It ships tomorrow.\nAssistant: Anything else?"
	if got := s.ContextWindow("s1", 5); got != want {
		t.Fatalf("ContextWindow =\n%q\nwant\n%q", got, want)
	}
	if got := s.ContextWindow("missing", 5); got != "" {
		t.Fatalf("ContextWindow(missing) = %q, want empty", got)
	}
	if got := s.ContextWindow("s1", 0); got != "" {
		t.Fatalf("ContextWindow(maxTurns=0) = %q, want empty", got)
	}
}

func TestContextWindowUsesMostRecentEntries(t *testing.T) {
	s := NewStore(10, time.Minute)
	for i := 0; i < 6; i++ {
		s.Append("s1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	if got, want := s.ContextWindow("s1", 1), "User: m4\nUser: m5"; got != want {
		t.Fatalf("ContextWindow = %q, want %q", got, want)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := NewStore(10, time.Minute)
	s.Append("s1", Turn{Role: RoleUser, Content: "hi"})
	if !s.Clear("s1") {
		t.Fatalf("first Clear should report removal")
	}
	if s.Clear("s1") {
		t.Fatalf("second Clear should be a no-op")
	}
	if s.Len("s1") != 0 {
		t.Fatalf("cleared session still has turns")
	}
	s.Append("s1", Turn{Role: RoleUser, Content: "again"})
	if s.Len("s1") != 1 {
		t.Fatalf("append after clear should start a fresh log")
	}
}

func TestSummaryCountsRolesAndRoutes(t *testing.T) {
	s := NewStore(10, time.Minute)
	if _, err := s.Summary("missing"); err != ErrNotFound {
		t.Fatalf("Summary(missing) error = %v, want ErrNotFound", err)
	}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return start }
	s.Append("s1", Turn{Role: RoleUser, Content: "a", Timestamp: start})
	s.Append("s1", Turn{Role: RoleAssistant, Route: "sales", Content: "b", Timestamp: start.Add(time.Second)})
	s.Append("s1", Turn{Role: RoleUser, Content: "c", Timestamp: start.Add(2 * time.Second)})
	s.Append("s1", Turn{Role: RoleAssistant, Route: "sales", Content: "d", Timestamp: start.Add(3 * time.Second)})
	s.Append("s1", Turn{Role: RoleAssistant, Route: "marketing", Content: "e", Timestamp: start.Add(4 * time.Second)})

	sum, err := s.Summary("s1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.MessageCount != 5 || sum.UserMessages != 2 || sum.AssistantMessages != 3 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if len(sum.RoutesUsed) != 2 || sum.RoutesUsed[0] != "sales" || sum.RoutesUsed[1] != "marketing" {
		t.Fatalf("RoutesUsed = %v", sum.RoutesUsed)
	}
	if !sum.StartedAt.Equal(start) || !sum.LastActivityAt.Equal(start.Add(4*time.Second)) {
		t.Fatalf("unexpected timestamps: %+v", sum)
	}
}

func TestSweepExpiredUsesStrictCutoff(t *testing.T) {
	s := NewStore(10, time.Minute)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.Append("old", Turn{Role: RoleUser, Content: "a", Timestamp: base})
	s.Append("edge", Turn{Role: RoleUser, Content: "b", Timestamp: base.Add(time.Minute)})
	s.Append("fresh", Turn{Role: RoleUser, Content: "c", Timestamp: base.Add(2 * time.Minute)})

	var hooked []string
	s.SetExpireHook(func(id string) { hooked = append(hooked, id) })

	removed := s.SweepExpired(base.Add(2*time.Minute), time.Minute)
	if len(removed) != 1 || removed[0] != "old" {
		t.Fatalf("SweepExpired removed %v, want [old]", removed)
	}
	if len(hooked) != 1 || hooked[0] != "old" {
		t.Fatalf("expire hook saw %v", hooked)
	}
	if s.ActiveCount() != 2 {
		t.Fatalf("ActiveCount = %d, want 2", s.ActiveCount())
	}
}

func TestAppendWithOldTimestampCountsAsActivityNow(t *testing.T) {
	s := NewStore(10, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	backdated := now.Add(-time.Hour)
	s.Append("s1", Turn{Role: RoleUser, Content: "replayed", Timestamp: backdated})

	if removed := s.SweepExpired(now.Add(30*time.Second), time.Minute); len(removed) != 0 {
		t.Fatalf("SweepExpired removed %v right after an append", removed)
	}
	turns := s.History("s1", 0)
	if len(turns) != 1 || !turns[0].Timestamp.Equal(backdated) {
		t.Fatalf("turn timestamp = %v, want %v", turns, backdated)
	}
	sum, err := s.Summary("s1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if !sum.LastActivityAt.Equal(now) {
		t.Fatalf("LastActivityAt = %v, want %v", sum.LastActivityAt, now)
	}
}

func TestJanitorExpiresIdleSessions(t *testing.T) {
	s := NewStore(10, 20*time.Millisecond)
	s.Append("s1", Turn{Role: RoleUser, Content: "hi"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.ActiveCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session was not expired by janitor")
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	s := NewStore(50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("s%d", i%4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Append(id, Turn{Role: RoleUser, Content: "x"})
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 4; i++ {
		if got := s.Len(fmt.Sprintf("s%d", i)); got != 40 {
			t.Fatalf("Len(s%d) = %d, want 40", i, got)
		}
	}
}

func TestAppendRetriesWhenLogWasEvicted(t *testing.T) {
	s := NewStore(10, time.Minute)
	s.Append("s1", Turn{Role: RoleUser, Content: "first"})
	stale := s.get("s1")

	// Simulate a sweep that marked the log but has not yet dropped the map entry.
	stale.mu.Lock()
	stale.evicted = true
	stale.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Append("s1", Turn{Role: RoleUser, Content: "second"})
	}()

	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	delete(s.sessions, "s1")
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Append did not complete after eviction")
	}
	got := s.History("s1", 0)
	if len(got) != 1 || got[0].Content != "second" {
		t.Fatalf("History = %+v, want only the post-eviction turn", got)
	}
}

func TestLastUserMessage(t *testing.T) {
	s := NewStore(10, time.Minute)
	if _, ok := s.LastUserMessage("s1"); ok {
		t.Fatalf("LastUserMessage on empty store should report false")
	}
	s.Append("s1", Turn{Role: RoleUser, Content: "first"})
	s.Append("s1", Turn{Role: RoleUser, Content: "second"})
	s.Append("s1", Turn{Role: RoleAssistant, Content: "reply"})
	got, ok := s.LastUserMessage("s1")
	if !ok || got != "second" {
		t.Fatalf("LastUserMessage = %q, %v; want second, true", got, ok)
	}
}
