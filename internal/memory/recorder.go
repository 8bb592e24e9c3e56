package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ent0n29/switchboard/internal/policy"
	"github.com/ent0n29/switchboard/internal/reliability"
)

// Recorder mirrors turns to the durable store in the background. PII is redacted
// before anything is written; failures are logged and dropped.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration
	retry   reliability.RetryPolicy
	wg      sync.WaitGroup
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		logger:  logger,
		timeout: 2 * time.Second,
		retry:   reliability.DefaultStoreRetry,
	}
}

func (r *Recorder) Record(record TurnRecord) {
	if r == nil || r.store == nil {
		return
	}
	user, userChanged := policy.RedactPII(record.UserMessage)
	agent, agentChanged := policy.RedactPII(record.AgentResponse)
	record.UserMessage = user
	record.AgentResponse = agent
	record.PIIRedacted = record.PIIRedacted || userChanged || agentChanged

	r.wg.Add(1)
	go func(snapshot TurnRecord) {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		err := reliability.Retry(ctx, r.retry, func(ctx context.Context) error {
			return r.store.SaveTurn(ctx, snapshot)
		})
		if err != nil {
			r.logger.Error("turn mirror write failed", "session_id", snapshot.SessionID, "error", err)
		}
	}(record)
}

// Wait blocks until in-flight writes finish.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
