package gateway

import (
    "context"
    "net/http"
    "strings"
    "time"

    "cosmossdk.io/math"
    "github.com/cockroachdb/errors"

    "autovault/internal/domain"
    "autovault/internal/ports"
)

// Deposits target the account hub contract.
const accountHubAddress = "0x3eca1B216A7DF1C7689aEb259fFB83ADFB894E7f"

// Ledger reads fee conditions and account balances through the gateway's
// chain endpoints. Transactions go out through sender, which main wraps with
// the fee adapter so every deposit is fee-patched before it leaves.
type Ledger struct {
    base   string
    http   *http.Client
    sender ports.TxSender
}

func NewLedger(base string) *Ledger {
    l := &Ledger{
        base: strings.TrimRight(base, "/"),
        http: &http.Client{Timeout: 30 * time.Second},
    }
    l.sender = l
    return l
}

// UseSender replaces the raw transaction path, typically with the fee
// adapter's wrapping sender.
func (l *Ledger) UseSender(s ports.TxSender) {
    if s != nil {
        l.sender = s
    }
}

func (l *Ledger) Balance(ctx context.Context, account string) (math.Int, error) {
    var out struct {
        Stake string `json:"stake"`
    }
    if err := l.getJSON(ctx, "/accounts/"+account, &out); err != nil {
        return math.Int{}, errors.Wrap(err, "account balance")
    }
    stake, ok := math.NewIntFromString(out.Stake)
    if !ok {
        return math.Int{}, errors.Newf("unparseable stake balance %q", out.Stake)
    }
    return stake, nil
}

func (l *Ledger) Deposit(ctx context.Context, amount math.Int) (ports.DepositReceipt, error) {
    tx := &domain.PendingTx{To: accountHubAddress, Value: amount}
    txRef, err := l.sender.SendTransaction(ctx, tx)
    if err != nil {
        return ports.DepositReceipt{}, errors.Wrap(err, "deposit transaction")
    }
    return ports.DepositReceipt{Amount: amount, TxRef: txRef}, nil
}

func (l *Ledger) LatestBlock(ctx context.Context) (domain.Block, error) {
    var out struct {
        Number        int64   `json:"number"`
        BaseFeePerGas *string `json:"baseFeePerGas"`
    }
    if err := l.getJSON(ctx, "/blocks/latest", &out); err != nil {
        return domain.Block{}, errors.Wrap(err, "latest block")
    }
    blk := domain.Block{Number: out.Number}
    if out.BaseFeePerGas != nil {
        fee, ok := math.NewIntFromString(*out.BaseFeePerGas)
        if !ok {
            return domain.Block{}, errors.Newf("unparseable base fee %q", *out.BaseFeePerGas)
        }
        blk.BaseFeePerGas = &fee
    }
    return blk, nil
}

func (l *Ledger) GasPrice(ctx context.Context) (math.Int, error) {
    var out struct {
        Price string `json:"price"`
    }
    if err := l.getJSON(ctx, "/gas-price", &out); err != nil {
        return math.Int{}, errors.Wrap(err, "gas price")
    }
    price, ok := math.NewIntFromString(out.Price)
    if !ok {
        return math.Int{}, errors.Newf("unparseable gas price %q", out.Price)
    }
    return price, nil
}

// SendTransaction is the raw transaction path, with whatever fee parameters
// the transaction already carries.
func (l *Ledger) SendTransaction(ctx context.Context, tx *domain.PendingTx) (string, error) {
    var out struct {
        TxHash string `json:"txHash"`
    }
    if err := l.postJSON(ctx, "/transactions", tx, &out); err != nil {
        return "", errors.Wrap(err, "send transaction")
    }
    return out.TxHash, nil
}

func (l *Ledger) getJSON(ctx context.Context, path string, out any) error {
    return getJSON(ctx, l.http, l.base+path, out)
}

func (l *Ledger) postJSON(ctx context.Context, path string, body, out any) error {
    return postJSON(ctx, l.http, l.base+path, body, out)
}
