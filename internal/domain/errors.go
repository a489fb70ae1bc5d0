package domain

import "github.com/cockroachdb/errors"

// Sentinel errors for the pipeline failure taxonomy. Row-level validation
// issues are data (RowIssue), not errors; stake failures are logged and
// swallowed, so neither appears here.
var (
    // ErrProviderNotReady: remote provider unreachable or wrong network context.
    ErrProviderNotReady = errors.New("confidential provider not initialized")

    // ErrBatchInvalid: a batch with errors may never reach the protection provider.
    ErrBatchInvalid = errors.New("portfolio has validation errors")

    // ErrNotValidated: the pipeline was started without a validated portfolio.
    ErrNotValidated = errors.New("no validated portfolio")

    // ErrPipelineBusy: only one pipeline may be in flight per orchestrator.
    ErrPipelineBusy = errors.New("an analysis is already in flight")

    // ErrResultFileNotFound: the artifact violates the executor's output contract.
    ErrResultFileNotFound = errors.New("result file not found in enclave output")

    // ErrInvalidOutputFormat: the payload parsed but carries no pool analysis.
    ErrInvalidOutputFormat = errors.New("invalid enclave output format: missing pool analysis")
)
