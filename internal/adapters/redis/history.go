package redisstore

import (
    "context"
    "encoding/json"

    "github.com/cockroachdb/errors"
    "github.com/redis/go-redis/v9"

    "autovault/internal/domain"
)

const historyKey = "abs_analytics_history"

// Store keeps the history collection as one JSON value in Redis, the same
// single-entry contract the postgres adapter implements.
type Store struct {
    client *redis.Client
}

func New(client *redis.Client) *Store { return &Store{client: client} }

func (s *Store) Load(ctx context.Context) ([]domain.CompletedJob, error) {
    raw, err := s.client.Get(ctx, historyKey).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    var jobs []domain.CompletedJob
    if err := json.Unmarshal(raw, &jobs); err != nil {
        return nil, errors.Wrap(err, "history entry corrupt")
    }
    return jobs, nil
}

func (s *Store) Save(ctx context.Context, jobs []domain.CompletedJob) error {
    if jobs == nil {
        jobs = []domain.CompletedJob{}
    }
    data, err := json.Marshal(jobs)
    if err != nil {
        return errors.Wrap(err, "encode history")
    }
    return s.client.Set(ctx, historyKey, data, 0).Err()
}

func (s *Store) Ping(ctx context.Context) error {
    return s.client.Ping(ctx).Err()
}
