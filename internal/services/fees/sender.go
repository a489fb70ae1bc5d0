package fees

import (
    "context"

    "autovault/internal/domain"
    "autovault/internal/ports"
)

// AdaptingSender patches fees onto every transaction before delegating to the
// underlying sender.
type AdaptingSender struct {
    next ports.TxSender
    svc  *Service
}

// NewAdaptingSender wraps next. Wrapping an already-adapting sender returns it
// unchanged, so a transport can only ever be patched once.
func NewAdaptingSender(next ports.TxSender, svc *Service) ports.TxSender {
    if wrapped, ok := next.(*AdaptingSender); ok {
        return wrapped
    }
    return &AdaptingSender{next: next, svc: svc}
}

func (a *AdaptingSender) SendTransaction(ctx context.Context, tx *domain.PendingTx) (string, error) {
    a.svc.AdaptTransactionFees(ctx, tx)
    return a.next.SendTransaction(ctx, tx)
}
