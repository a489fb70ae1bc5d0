package statusrelay

import (
    "context"
    "sync"

    "go.uber.org/zap"

    "autovault/internal/domain"
)

// Relay drains the orchestrator's progress stream, logs each update, and
// keeps a short tail for status endpoints. It decouples polling cadence from
// whoever renders progress.
type Relay struct {
    keep int
    log  *zap.Logger

    mu     sync.Mutex
    recent []domain.StatusUpdate
}

func New(keep int, log *zap.Logger) *Relay {
    if keep < 1 {
        keep = 20
    }
    return &Relay{keep: keep, log: log}
}

// Run consumes events until ctx is done. Start it in its own goroutine.
func (r *Relay) Run(ctx context.Context, events <-chan domain.StatusUpdate) {
    for {
        select {
        case <-ctx.Done():
            return
        case u := <-events:
            r.log.Info("task status", zap.String("title", u.Title), zap.Bool("done", u.Done))
            r.mu.Lock()
            r.recent = append(r.recent, u)
            if len(r.recent) > r.keep {
                r.recent = r.recent[len(r.recent)-r.keep:]
            }
            r.mu.Unlock()
        }
    }
}

// Recent returns the retained tail, oldest first.
func (r *Relay) Recent() []domain.StatusUpdate {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make([]domain.StatusUpdate, len(r.recent))
    copy(out, r.recent)
    return out
}

// Reset drops the retained tail, typically between runs.
func (r *Relay) Reset() {
    r.mu.Lock()
    r.recent = r.recent[:0]
    r.mu.Unlock()
}
