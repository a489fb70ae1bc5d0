package domain

import "cosmossdk.io/math"

// PendingTx is an outgoing ledger transaction awaiting fee parameters.
// Amounts are denominated in the smallest unit (wei for fees, nano-RLC for
// value); math.Int keeps the arithmetic exact.
type PendingTx struct {
    To    string   `json:"to"`
    Value math.Int `json:"value"`
    Data  string   `json:"data,omitempty"`

    // Variable-fee ("tip") parameters, set when the network reports a base fee.
    MaxFeePerGas         *math.Int `json:"maxFeePerGas,omitempty"`
    MaxPriorityFeePerGas *math.Int `json:"maxPriorityFeePerGas,omitempty"`

    // Legacy flat price, set when no base fee is obtainable.
    GasPrice *math.Int `json:"gasPrice,omitempty"`

    // FeesAdapted guards against patching the same transaction twice.
    FeesAdapted bool `json:"-"`
}

// Block is the subset of ledger block data the fee adapter reads.
// BaseFeePerGas is nil on chains without the variable-fee model.
type Block struct {
    Number        int64     `json:"number"`
    BaseFeePerGas *math.Int `json:"baseFeePerGas,omitempty"`
}
