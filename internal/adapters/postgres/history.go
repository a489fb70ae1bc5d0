package postgres

import (
    "context"
    "encoding/json"

    "github.com/cockroachdb/errors"
    "github.com/jackc/pgx/v5"

    "autovault/internal/domain"
)

// The whole history collection lives under one key, mirroring the KV contract
// the UI was built against.
const historyKey = "abs_analytics_history"

// HistoryStore
func (db *DB) Load(ctx context.Context) ([]domain.CompletedJob, error) {
    var raw []byte
    err := db.Pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, historyKey).Scan(&raw)
    if errors.Is(err, pgx.ErrNoRows) {
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

func (db *DB) Save(ctx context.Context, jobs []domain.CompletedJob) error {
    if jobs == nil {
        jobs = []domain.CompletedJob{}
    }
    data, err := json.Marshal(jobs)
    if err != nil {
        return errors.Wrap(err, "encode history")
    }
    _, err = db.Pool.Exec(ctx, `
        INSERT INTO kv_entries (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
    `, historyKey, data)
    return err
}
