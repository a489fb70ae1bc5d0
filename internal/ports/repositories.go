package ports

import (
    "context"

    "autovault/internal/domain"
)

// HistoryStore persists the completed-job collection as one value under a
// fixed key. Every mutation is a read-modify-write of the whole collection;
// the deployment model is single-client, so no store-side locking is assumed.
type HistoryStore interface {
    Load(ctx context.Context) ([]domain.CompletedJob, error)
    Save(ctx context.Context, jobs []domain.CompletedJob) error
}
