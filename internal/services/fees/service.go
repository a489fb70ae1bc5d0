package fees

import (
    "context"

    "cosmossdk.io/math"
    "github.com/cockroachdb/errors"
    "go.uber.org/zap"

    "autovault/internal/domain"
    "autovault/internal/ports"
)

const (
    // priorityFeeWei is the fixed tip: 0.1 gwei.
    priorityFeeWei = 100_000_000

    // Legacy chains get the spot gas price scaled by 1.2, integer-truncated.
    legacyScaleNum = 120
    legacyScaleDen = 100

    // stakeBufferNano pads every top-up so minor price drift between the
    // balance read and the deposit cannot leave the account short. 0.05 RLC.
    stakeBufferNano = 50_000_000
)

// Service computes fee parameters for volatile network conditions and keeps
// prepaid execution credit above the scheduler's threshold.
type Service struct {
    ledger ports.LedgerClient
    log    *zap.Logger
}

func New(ledger ports.LedgerClient, log *zap.Logger) *Service {
    return &Service{ledger: ledger, log: log}
}

// AdaptTransactionFees patches tx in place. With a base fee available it sets
// maxFee = 2*base + tip so the transaction survives base-fee spikes between
// blocks; without one it falls back to a scaled flat price. Failure to compute
// fees never blocks the transaction: the request passes through unmodified.
func (s *Service) AdaptTransactionFees(ctx context.Context, tx *domain.PendingTx) {
    if tx == nil || tx.FeesAdapted {
        return
    }

    blk, err := s.ledger.LatestBlock(ctx)
    if err == nil && blk.BaseFeePerGas != nil {
        tip := math.NewInt(priorityFeeWei)
        maxFee := blk.BaseFeePerGas.MulRaw(2).Add(tip)
        tx.MaxFeePerGas = &maxFee
        tx.MaxPriorityFeePerGas = &tip
        tx.FeesAdapted = true
        s.log.Debug("fee adaptation applied",
            zap.String("model", "tip"),
            zap.String("baseFee", blk.BaseFeePerGas.String()),
            zap.String("maxFee", maxFee.String()))
        return
    }

    price, perr := s.ledger.GasPrice(ctx)
    if perr != nil {
        s.log.Warn("fee adaptation skipped", zap.NamedError("block", err), zap.NamedError("gasPrice", perr))
        return
    }
    scaled := price.MulRaw(legacyScaleNum).QuoRaw(legacyScaleDen)
    tx.GasPrice = &scaled
    tx.FeesAdapted = true
    s.log.Debug("fee adaptation applied",
        zap.String("model", "legacy"),
        zap.String("gasPrice", scaled.String()))
}

// StakeResult reports the outcome of an EnsureStake call.
type StakeResult struct {
    ToppedUp bool     `json:"toppedUp"`
    Balance  math.Int `json:"balance"`
    TxRef    string   `json:"txRef,omitempty"`
}

// EnsureStake tops the account up to required nano-RLC plus a fixed buffer.
// All comparisons and the shortfall are exact integer arithmetic.
func (s *Service) EnsureStake(ctx context.Context, account string, required math.Int) (StakeResult, error) {
    balance, err := s.ledger.Balance(ctx, account)
    if err != nil {
        return StakeResult{}, errors.Wrap(err, "read stake balance")
    }
    if balance.GTE(required) {
        return StakeResult{ToppedUp: false, Balance: balance}, nil
    }

    deposit := required.Sub(balance).AddRaw(stakeBufferNano)
    receipt, err := s.ledger.Deposit(ctx, deposit)
    if err != nil {
        return StakeResult{}, errors.Wrapf(err, "deposit %s nRLC", deposit)
    }
    s.log.Info("stake topped up",
        zap.String("account", account),
        zap.String("deposited", receipt.Amount.String()),
        zap.String("txRef", receipt.TxRef))
    return StakeResult{
        ToppedUp: true,
        Balance:  balance.Add(receipt.Amount),
        TxRef:    receipt.TxRef,
    }, nil
}
