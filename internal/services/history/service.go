package history

import (
    "context"

    "github.com/cockroachdb/errors"
    "go.uber.org/zap"

    "autovault/internal/domain"
    "autovault/internal/ports"
)

// Service keeps the completed-job history, newest first, capped at limit
// entries (0 = unbounded). Every operation is a read-modify-write of the
// whole collection through the KV store port.
type Service struct {
    store ports.HistoryStore
    limit int
    log   *zap.Logger
}

func New(store ports.HistoryStore, limit int, log *zap.Logger) *Service {
    return &Service{store: store, limit: limit, log: log}
}

func (s *Service) Append(ctx context.Context, job domain.CompletedJob) error {
    jobs, err := s.store.Load(ctx)
    if err != nil {
        return errors.Wrap(err, "load history")
    }
    jobs = append([]domain.CompletedJob{job}, jobs...)
    if s.limit > 0 && len(jobs) > s.limit {
        s.log.Info("history trimmed to retention limit",
            zap.Int("limit", s.limit), zap.Int("dropped", len(jobs)-s.limit))
        jobs = jobs[:s.limit]
    }
    return errors.Wrap(s.store.Save(ctx, jobs), "save history")
}

func (s *Service) List(ctx context.Context) ([]domain.CompletedJob, error) {
    jobs, err := s.store.Load(ctx)
    if err != nil {
        return nil, errors.Wrap(err, "load history")
    }
    if jobs == nil {
        jobs = []domain.CompletedJob{}
    }
    return jobs, nil
}

func (s *Service) Remove(ctx context.Context, jobID string) error {
    jobs, err := s.store.Load(ctx)
    if err != nil {
        return errors.Wrap(err, "load history")
    }
    kept := jobs[:0]
    for _, j := range jobs {
        if j.JobID != jobID {
            kept = append(kept, j)
        }
    }
    return errors.Wrap(s.store.Save(ctx, kept), "save history")
}

func (s *Service) Clear(ctx context.Context) error {
    return errors.Wrap(s.store.Save(ctx, []domain.CompletedJob{}), "clear history")
}
