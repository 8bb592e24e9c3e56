package history

import (
	"context"
	"errors"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

type sessionLog struct {
	mu             sync.Mutex
	turns          []Turn
	startedAt      time.Time
	lastActivityAt time.Time
	// evicted is set under mu when the sweeper drops the log, so a racing Append retries on a fresh one.
	evicted bool
}

// Store holds bounded per-session conversation memory. Mutations on one session are
// serialized by that session's lock; different sessions proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLog
	maxTurns int
	ttl      time.Duration
	onExpire func(sessionID string)
	now      func() time.Time
}

// NewStore keeps at most 2*maxTurns entries per session and expires sessions idle for ttl.
func NewStore(maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		sessions: make(map[string]*sessionLog),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) SetExpireHook(hook func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = hook
}

// Bound is the maximum number of entries retained per session.
func (s *Store) Bound() int { return 2 * s.maxTurns }

// Append records a turn, dropping the oldest entries past the bound. Last activity
// is the append time, or the turn's timestamp when that is later.
func (s *Store) Append(sessionID string, turn Turn) {
	activity := s.now()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = activity
	}
	if turn.Timestamp.After(activity) {
		activity = turn.Timestamp
	}
	turn.Metadata = maps.Clone(turn.Metadata)
	bound := s.Bound()

	for {
		log := s.getOrCreate(sessionID, activity)
		log.mu.Lock()
		if log.evicted {
			log.mu.Unlock()
			runtime.Gosched()
			continue
		}
		log.turns = append(log.turns, turn)
		if over := len(log.turns) - bound; over > 0 {
			log.turns = append([]Turn(nil), log.turns[over:]...)
		}
		if activity.After(log.lastActivityAt) {
			log.lastActivityAt = activity
		}
		log.mu.Unlock()
		return
	}
}

// History returns up to limit of the most recent turns, oldest first. limit <= 0 means all.
func (s *Store) History(sessionID string, limit int) []Turn {
	log := s.get(sessionID)
	if log == nil {
		return nil
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	turns := log.turns
	if limit > 0 && limit < len(turns) {
		turns = turns[len(turns)-limit:]
	}
	return cloneTurns(turns)
}

// Len is the number of retained turns for a session.
func (s *Store) Len(sessionID string) int {
	log := s.get(sessionID)
	if log == nil {
		return 0
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return len(log.turns)
}

// ContextWindow renders the last 2*maxTurns entries as "User: ..." and
// "Assistant (route): ..." lines, oldest first. System turns are omitted.
func (s *Store) ContextWindow(sessionID string, maxTurns int) string {
	if maxTurns <= 0 {
		return ""
	}
	turns := s.History(sessionID, 2*maxTurns)
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			lines = append(lines, "User: "+t.Content)
		case RoleAssistant:
			if t.Route != "" {
				lines = append(lines, "Assistant ("+t.Route+"): "+t.Content)
			} else {
				lines = append(lines, "Assistant: "+t.Content)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Clear drops a session. Absent keys are a no-op.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	log, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if ok {
		log.mu.Lock()
		log.evicted = true
		log.mu.Unlock()
	}
	return ok
}

// Summary reports counts and routes for a live session.
func (s *Store) Summary(sessionID string) (Summary, error) {
	log := s.get(sessionID)
	if log == nil {
		return Summary{}, ErrNotFound
	}
	log.mu.Lock()
	defer log.mu.Unlock()

	sum := Summary{
		SessionID:      sessionID,
		MessageCount:   len(log.turns),
		StartedAt:      log.startedAt,
		LastActivityAt: log.lastActivityAt,
		RoutesUsed:     []string{},
	}
	seen := make(map[string]struct{})
	for _, t := range log.turns {
		switch t.Role {
		case RoleUser:
			sum.UserMessages++
		case RoleAssistant:
			sum.AssistantMessages++
		}
		if t.Route == "" {
			continue
		}
		if _, dup := seen[t.Route]; dup {
			continue
		}
		seen[t.Route] = struct{}{}
		sum.RoutesUsed = append(sum.RoutesUsed, t.Route)
	}
	return sum, nil
}

// SweepExpired removes every session whose last activity is strictly older than now-ttl
// and returns the removed keys.
func (s *Store) SweepExpired(now time.Time, ttl time.Duration) []string {
	cutoff := now.Add(-ttl)
	var expired []string

	s.mu.Lock()
	for id, log := range s.sessions {
		log.mu.Lock()
		if log.lastActivityAt.Before(cutoff) {
			log.evicted = true
			delete(s.sessions, id)
			expired = append(expired, id)
		}
		log.mu.Unlock()
	}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		for _, id := range expired {
			hook(id)
		}
	}
	return expired
}

func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepExpired(s.now(), s.ttl)
			}
		}
	}()
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) get(sessionID string) *sessionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *Store) getOrCreate(sessionID string, at time.Time) *sessionLog {
	if log := s.get(sessionID); log != nil {
		return log
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if log, ok := s.sessions[sessionID]; ok {
		return log
	}
	log := &sessionLog{startedAt: at, lastActivityAt: at}
	s.sessions[sessionID] = log
	return log
}

func cloneTurns(in []Turn) []Turn {
	out := make([]Turn, len(in))
	for i, t := range in {
		t.Metadata = maps.Clone(t.Metadata)
		out[i] = t
	}
	return out
}

// LastUserMessage returns the most recent user turn's content.
func (s *Store) LastUserMessage(sessionID string) (string, bool) {
	log := s.get(sessionID)
	if log == nil {
		return "", false
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	for i := len(log.turns) - 1; i >= 0; i-- {
		if log.turns[i].Role == RoleUser {
			return log.turns[i].Content, true
		}
	}
	return "", false
}
