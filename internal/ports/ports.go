package ports

import (
    "context"

    "cosmossdk.io/math"

    "autovault/internal/domain"
)

// StatusCallback receives progress events while a remote call is awaited.
type StatusCallback func(update domain.StatusUpdate)

// ProtectionProvider encrypts a payload and manages access grants to it.
type ProtectionProvider interface {
    // Protect encrypts payload under name and returns an opaque reference.
    Protect(ctx context.Context, name string, payload []byte) (ref string, err error)
    // Authorize grants executor up to accessCount reads of the reference.
    Authorize(ctx context.Context, ref, executor string, accessCount int) (txRef string, err error)
}

// PriceCeilings caps what a submitted job may pay, in nano-RLC.
type PriceCeilings struct {
    AppMax        int64
    WorkerpoolMax int64
}

// ComputeSubmitter runs jobs against protected data inside a confidential
// execution environment and returns the result artifact.
type ComputeSubmitter interface {
    // Submit schedules the job and returns its provider-issued id. Deal-making
    // progress is forwarded to onStatus until the task is scheduled.
    Submit(ctx context.Context, ref, executor, workerpool string, prices PriceCeilings, outputPath string, onStatus StatusCallback) (jobID string, err error)
    // FetchArtifact blocks until the job completes and returns the raw archive.
    FetchArtifact(ctx context.Context, jobID string) ([]byte, error)
}

// LedgerClient reads fee conditions and manages prepaid execution credit.
type LedgerClient interface {
    // Balance returns the account's staked execution credit in nano-RLC.
    Balance(ctx context.Context, account string) (math.Int, error)
    // Deposit tops up execution credit by amount nano-RLC.
    Deposit(ctx context.Context, amount math.Int) (DepositReceipt, error)
    // LatestBlock exposes the current base fee, when the chain has one.
    LatestBlock(ctx context.Context) (domain.Block, error)
    // GasPrice returns the legacy flat gas price in wei.
    GasPrice(ctx context.Context) (math.Int, error)
}

type DepositReceipt struct {
    Amount math.Int
    TxRef  string
}

// TxSender submits a ledger transaction. The fee adapter wraps implementations
// so every outgoing transaction is patched before it leaves the process.
type TxSender interface {
    SendTransaction(ctx context.Context, tx *domain.PendingTx) (txRef string, err error)
}
