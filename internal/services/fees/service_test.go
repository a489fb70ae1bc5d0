package fees

import (
    "context"
    "testing"

    "cosmossdk.io/math"
    "github.com/cockroachdb/errors"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "autovault/internal/domain"
    "autovault/internal/ports"
)

type fakeLedger struct {
    baseFee  *math.Int
    blockErr error

    gasPrice    math.Int
    gasPriceErr error

    balance    math.Int
    balanceErr error

    deposited  []math.Int
    depositErr error
}

func (f *fakeLedger) Balance(ctx context.Context, account string) (math.Int, error) {
    return f.balance, f.balanceErr
}

func (f *fakeLedger) Deposit(ctx context.Context, amount math.Int) (ports.DepositReceipt, error) {
    if f.depositErr != nil {
        return ports.DepositReceipt{}, f.depositErr
    }
    f.deposited = append(f.deposited, amount)
    return ports.DepositReceipt{Amount: amount, TxRef: "0xdeadbeef"}, nil
}

func (f *fakeLedger) LatestBlock(ctx context.Context) (domain.Block, error) {
    if f.blockErr != nil {
        return domain.Block{}, f.blockErr
    }
    return domain.Block{Number: 1, BaseFeePerGas: f.baseFee}, nil
}

func (f *fakeLedger) GasPrice(ctx context.Context) (math.Int, error) {
    return f.gasPrice, f.gasPriceErr
}

func intPtr(v int64) *math.Int {
    i := math.NewInt(v)
    return &i
}

func TestAdaptTransactionFees_TipModel(t *testing.T) {
    ledger := &fakeLedger{baseFee: intPtr(2_000_000_000)}
    svc := New(ledger, zap.NewNop())

    tx := &domain.PendingTx{Value: math.NewInt(1)}
    svc.AdaptTransactionFees(context.Background(), tx)

    require.NotNil(t, tx.MaxFeePerGas)
    require.NotNil(t, tx.MaxPriorityFeePerGas)
    // maxFee = 2*base + tip, exactly.
    assert.Equal(t, int64(4_100_000_000), tx.MaxFeePerGas.Int64())
    assert.Equal(t, int64(100_000_000), tx.MaxPriorityFeePerGas.Int64())
    assert.Nil(t, tx.GasPrice)
    assert.True(t, tx.FeesAdapted)
}

func TestAdaptTransactionFees_LegacyModel(t *testing.T) {
    ledger := &fakeLedger{gasPrice: math.NewInt(333)}
    svc := New(ledger, zap.NewNop())

    tx := &domain.PendingTx{Value: math.NewInt(1)}
    svc.AdaptTransactionFees(context.Background(), tx)

    require.NotNil(t, tx.GasPrice)
    // 333 * 120 / 100 truncates to 399.
    assert.Equal(t, int64(399), tx.GasPrice.Int64())
    assert.Nil(t, tx.MaxFeePerGas)
    assert.True(t, tx.FeesAdapted)
}

func TestAdaptTransactionFees_FailurePassesThrough(t *testing.T) {
    ledger := &fakeLedger{blockErr: errors.New("rpc down"), gasPriceErr: errors.New("rpc down")}
    svc := New(ledger, zap.NewNop())

    tx := &domain.PendingTx{Value: math.NewInt(1)}
    svc.AdaptTransactionFees(context.Background(), tx)

    assert.Nil(t, tx.MaxFeePerGas)
    assert.Nil(t, tx.GasPrice)
    assert.False(t, tx.FeesAdapted)
}

func TestAdaptTransactionFees_AppliedAtMostOnce(t *testing.T) {
    ledger := &fakeLedger{baseFee: intPtr(1000)}
    svc := New(ledger, zap.NewNop())

    tx := &domain.PendingTx{Value: math.NewInt(1)}
    svc.AdaptTransactionFees(context.Background(), tx)
    first := tx.MaxFeePerGas

    ledger.baseFee = intPtr(9999)
    svc.AdaptTransactionFees(context.Background(), tx)
    assert.Equal(t, first, tx.MaxFeePerGas)
}

func TestEnsureStake_SufficientBalance(t *testing.T) {
    ledger := &fakeLedger{balance: math.NewInt(300_000_000)}
    svc := New(ledger, zap.NewNop())

    res, err := svc.EnsureStake(context.Background(), "0xabc", math.NewInt(200_000_000))
    require.NoError(t, err)
    assert.False(t, res.ToppedUp)
    assert.Equal(t, int64(300_000_000), res.Balance.Int64())
    assert.Empty(t, ledger.deposited)
}

func TestEnsureStake_TopsUpExactShortfallPlusBuffer(t *testing.T) {
    ledger := &fakeLedger{balance: math.NewInt(0)}
    svc := New(ledger, zap.NewNop())

    res, err := svc.EnsureStake(context.Background(), "0xabc", math.NewInt(100_000_000))
    require.NoError(t, err)
    assert.True(t, res.ToppedUp)
    require.Len(t, ledger.deposited, 1)
    assert.Equal(t, int64(100_000_000+stakeBufferNano), ledger.deposited[0].Int64())
    assert.Equal(t, int64(100_000_000+stakeBufferNano), res.Balance.Int64())
    assert.Equal(t, "0xdeadbeef", res.TxRef)
}

func TestEnsureStake_PartialBalance(t *testing.T) {
    ledger := &fakeLedger{balance: math.NewInt(150_000_000)}
    svc := New(ledger, zap.NewNop())

    res, err := svc.EnsureStake(context.Background(), "0xabc", math.NewInt(200_000_000))
    require.NoError(t, err)
    require.Len(t, ledger.deposited, 1)
    assert.Equal(t, int64(50_000_000+stakeBufferNano), ledger.deposited[0].Int64())
    assert.True(t, res.ToppedUp)
}

func TestEnsureStake_DepositFailure(t *testing.T) {
    ledger := &fakeLedger{balance: math.NewInt(0), depositErr: errors.New("rejected")}
    svc := New(ledger, zap.NewNop())

    _, err := svc.EnsureStake(context.Background(), "0xabc", math.NewInt(1))
    require.Error(t, err)
}

type recordingSender struct {
    sent []*domain.PendingTx
}

func (r *recordingSender) SendTransaction(ctx context.Context, tx *domain.PendingTx) (string, error) {
    r.sent = append(r.sent, tx)
    return "0xref", nil
}

func TestAdaptingSender_PatchesBeforeSending(t *testing.T) {
    ledger := &fakeLedger{baseFee: intPtr(1000)}
    svc := New(ledger, zap.NewNop())
    raw := &recordingSender{}

    sender := NewAdaptingSender(raw, svc)
    ref, err := sender.SendTransaction(context.Background(), &domain.PendingTx{Value: math.NewInt(7)})
    require.NoError(t, err)
    assert.Equal(t, "0xref", ref)
    require.Len(t, raw.sent, 1)
    assert.True(t, raw.sent[0].FeesAdapted)
}

func TestNewAdaptingSender_NeverDoubleWraps(t *testing.T) {
    svc := New(&fakeLedger{}, zap.NewNop())
    raw := &recordingSender{}

    once := NewAdaptingSender(raw, svc)
    twice := NewAdaptingSender(once, svc)
    assert.Same(t, once, twice)
}
