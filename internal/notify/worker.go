package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/ent0n29/switchboard/internal/tickets"
)

// Worker delivers notifications off the request path. Enqueue never blocks; when
// the buffer is full the ticket is dropped and logged.
type Worker struct {
	notifier Notifier
	logger   *slog.Logger
	queue    chan tickets.Ticket
	timeout  time.Duration
	onResult func(err error)
}

func NewWorker(n Notifier, logger *slog.Logger, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Worker{
		notifier: n,
		logger:   logger,
		queue:    make(chan tickets.Ticket, buffer),
		timeout:  10 * time.Second,
	}
}

// SetResultHook is called after every delivery attempt.
func (w *Worker) SetResultHook(fn func(err error)) { w.onResult = fn }

func (w *Worker) Enqueue(t tickets.Ticket) {
	select {
	case w.queue <- t:
	default:
		w.logger.Warn("escalation notification dropped, queue full", "ticket_id", t.ID)
	}
}

// Run delivers until ctx is done, then drains what is already queued.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case t := <-w.queue:
					w.deliver(context.WithoutCancel(ctx), t)
				default:
					return
				}
			}
		case t := <-w.queue:
			w.deliver(ctx, t)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, t tickets.Ticket) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	err := w.notifier.NotifyEscalation(ctx, t)
	if err != nil {
		w.logger.Error("escalation notification failed", "ticket_id", t.ID, "notifier", w.notifier.Name(), "error", err)
	}
	if w.onResult != nil {
		w.onResult(err)
	}
}
