package jobs

import (
    "archive/zip"
    "bytes"
    "context"
    "encoding/json"
    "testing"
    "time"

    "cosmossdk.io/math"
    "github.com/cockroachdb/errors"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "autovault/internal/domain"
    "autovault/internal/ports"
    "autovault/internal/services/fees"
    "autovault/internal/services/history"
    "autovault/internal/services/validation"
)

type fakeProtector struct {
    protectErr   error
    authorizeErr error
    protected    [][]byte
    authorized   []string
}

func (f *fakeProtector) Protect(ctx context.Context, name string, payload []byte) (string, error) {
    if f.protectErr != nil {
        return "", f.protectErr
    }
    f.protected = append(f.protected, payload)
    return "0xprotected", nil
}

func (f *fakeProtector) Authorize(ctx context.Context, ref, executor string, accessCount int) (string, error) {
    if f.authorizeErr != nil {
        return "", f.authorizeErr
    }
    f.authorized = append(f.authorized, ref+"->"+executor)
    return "0xgrant", nil
}

type fakeSubmitter struct {
    submitErr error
    fetchErr  error
    artifact  []byte
    statuses  []string
}

func (f *fakeSubmitter) Submit(ctx context.Context, ref, executor, workerpool string, prices ports.PriceCeilings, outputPath string, onStatus ports.StatusCallback) (string, error) {
    if f.submitErr != nil {
        return "", f.submitErr
    }
    onStatus(domain.StatusUpdate{Title: "Deal confirmed"})
    return "0xtask", nil
}

func (f *fakeSubmitter) FetchArtifact(ctx context.Context, jobID string) ([]byte, error) {
    if f.fetchErr != nil {
        return nil, f.fetchErr
    }
    return f.artifact, nil
}

type stubLedger struct {
    balance    math.Int
    balanceErr error
}

func (s *stubLedger) Balance(ctx context.Context, account string) (math.Int, error) {
    return s.balance, s.balanceErr
}

func (s *stubLedger) Deposit(ctx context.Context, amount math.Int) (ports.DepositReceipt, error) {
    return ports.DepositReceipt{Amount: amount, TxRef: "0xdep"}, nil
}

func (s *stubLedger) LatestBlock(ctx context.Context) (domain.Block, error) {
    return domain.Block{}, errors.New("no chain")
}

func (s *stubLedger) GasPrice(ctx context.Context) (math.Int, error) {
    return math.ZeroInt(), errors.New("no chain")
}

type memStore struct {
    jobs    []domain.CompletedJob
    saveErr error
}

func (m *memStore) Load(ctx context.Context) ([]domain.CompletedJob, error) { return m.jobs, nil }

func (m *memStore) Save(ctx context.Context, jobs []domain.CompletedJob) error {
    if m.saveErr != nil {
        return m.saveErr
    }
    m.jobs = jobs
    return nil
}

func resultArtifact(t *testing.T) []byte {
    t.Helper()
    payload, err := json.Marshal(map[string]any{
        "confidence": "MEDIUM",
        "aggregated_pool_analysis": map[string]any{
            "pool_summary": map[string]any{"loan_count": 4, "total_principal_usd": 141000.0},
            "credit_risk":  map[string]any{"base_expected_loss_pct": 0.74},
        },
    })
    require.NoError(t, err)
    var buf bytes.Buffer
    zw := zip.NewWriter(&buf)
    w, err := zw.Create("result.json")
    require.NoError(t, err)
    _, err = w.Write(payload)
    require.NoError(t, err)
    require.NoError(t, zw.Close())
    return buf.Bytes()
}

func validResult(t *testing.T) domain.ValidationResult {
    t.Helper()
    vr := validation.New().Validate(domain.SamplePortfolio)
    require.True(t, vr.IsValid)
    return vr
}

func testConfig() Config {
    return Config{
        ExecutorAddress:    "0xapp",
        WorkerpoolAddress:  "0xpool",
        Account:            "0xme",
        AccessCount:        99,
        AppMaxPrice:        100_000_000,
        WorkerpoolMaxPrice: 100_000_000,
        OutputPath:         "result.json",
        RequiredStake:      math.NewInt(200_000_000),
        PipelineTimeout:    time.Minute,
    }
}

func newTestOrchestrator(t *testing.T, protector ports.ProtectionProvider, submitter ports.ComputeSubmitter, ledger ports.LedgerClient, store *memStore) *Orchestrator {
    t.Helper()
    log := zap.NewNop()
    feeSvc := fees.New(ledger, log)
    histSvc := history.New(store, 0, log)
    return New(protector, submitter, feeSvc, histSvc, testConfig(), log)
}

func TestRun_HappyPath(t *testing.T) {
    protector := &fakeProtector{}
    submitter := &fakeSubmitter{artifact: resultArtifact(t)}
    store := &memStore{}
    o := newTestOrchestrator(t, protector, submitter, &stubLedger{balance: math.NewInt(500_000_000)}, store)

    require.NoError(t, o.Begin(validResult(t)))
    assert.Equal(t, domain.StateValidated, o.State())

    job, err := o.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, domain.StateCompleted, o.State())
    assert.Equal(t, "0xtask", job.JobID)
    assert.Equal(t, "MEDIUM", job.Confidence)
    assert.Equal(t, 4, job.FinalResult.PoolSummary.LoanCount)
    assert.Len(t, job.ValidationResult.Loans, 4)

    // Protected payload is the {"loans": [...]} document.
    require.Len(t, protector.protected, 1)
    var doc map[string][]domain.LoanRecord
    require.NoError(t, json.Unmarshal(protector.protected[0], &doc))
    assert.Len(t, doc["loans"], 4)
    assert.Equal(t, []string{"0xprotected->0xapp"}, protector.authorized)

    // Completed job persisted to history.
    require.Len(t, store.jobs, 1)
    assert.Equal(t, "0xtask", store.jobs[0].JobID)
}

func TestRun_EmitsStatusUpdates(t *testing.T) {
    o := newTestOrchestrator(t, &fakeProtector{}, &fakeSubmitter{artifact: resultArtifact(t)},
        &stubLedger{balance: math.NewInt(500_000_000)}, &memStore{})

    require.NoError(t, o.Begin(validResult(t)))
    _, err := o.Run(context.Background())
    require.NoError(t, err)

    var titles []string
drain:
    for {
        select {
        case u := <-o.Events():
            titles = append(titles, u.Title)
            if u.Done {
                break drain
            }
        default:
            break drain
        }
    }
    assert.Contains(t, titles, "Encrypting portfolio with the data protector")
    assert.Contains(t, titles, "Deal confirmed")
    assert.Contains(t, titles, "Analysis complete")
}

func TestBegin_RejectsInvalidBatch(t *testing.T) {
    o := newTestOrchestrator(t, &fakeProtector{}, &fakeSubmitter{}, &stubLedger{}, &memStore{})
    err := o.Begin(domain.ValidationResult{IsValid: false, Errors: []domain.RowIssue{{Row: 1, Message: "bad"}}})
    require.ErrorIs(t, err, domain.ErrBatchInvalid)
    assert.Equal(t, domain.StateIdle, o.State())
}

func TestRun_RequiresValidatedState(t *testing.T) {
    o := newTestOrchestrator(t, &fakeProtector{}, &fakeSubmitter{}, &stubLedger{}, &memStore{})
    _, err := o.Run(context.Background())
    require.ErrorIs(t, err, domain.ErrNotValidated)
}

func TestRun_FailurePreservesPortfolioForRetry(t *testing.T) {
    protector := &fakeProtector{protectErr: errors.New("sdk unreachable")}
    submitter := &fakeSubmitter{artifact: resultArtifact(t)}
    o := newTestOrchestrator(t, protector, submitter, &stubLedger{balance: math.NewInt(500_000_000)}, &memStore{})

    require.NoError(t, o.Begin(validResult(t)))
    _, err := o.Run(context.Background())
    require.Error(t, err)
    assert.Equal(t, domain.StateFailed, o.State())
    assert.NotEmpty(t, o.Snapshot().LastError)

    // Retry without Begin: the failed run kept the validated set.
    protector.protectErr = nil
    job, err := o.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, domain.StateCompleted, o.State())
    assert.NotNil(t, job)
}

func TestRun_StakeFailureIsNonFatal(t *testing.T) {
    ledger := &stubLedger{balanceErr: errors.New("account service down")}
    o := newTestOrchestrator(t, &fakeProtector{}, &fakeSubmitter{artifact: resultArtifact(t)}, ledger, &memStore{})

    require.NoError(t, o.Begin(validResult(t)))
    job, err := o.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, domain.StateCompleted, o.State())
    assert.NotNil(t, job)
}

func TestRun_DecodeFailureFailsJob(t *testing.T) {
    submitter := &fakeSubmitter{artifact: []byte("not a zip")}
    o := newTestOrchestrator(t, &fakeProtector{}, submitter, &stubLedger{balance: math.NewInt(500_000_000)}, &memStore{})

    require.NoError(t, o.Begin(validResult(t)))
    _, err := o.Run(context.Background())
    require.Error(t, err)
    assert.Equal(t, domain.StateFailed, o.State())
}

func TestRun_HistoryFailureDoesNotFailJob(t *testing.T) {
    store := &memStore{saveErr: errors.New("kv down")}
    o := newTestOrchestrator(t, &fakeProtector{}, &fakeSubmitter{artifact: resultArtifact(t)},
        &stubLedger{balance: math.NewInt(500_000_000)}, store)

    require.NoError(t, o.Begin(validResult(t)))
    job, err := o.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, domain.StateCompleted, o.State())
    assert.NotNil(t, job)
}

func TestBegin_RejectedWhileInFlight(t *testing.T) {
    blockFetch := make(chan struct{})
    submitter := &blockingSubmitter{release: blockFetch, artifact: resultArtifact(t)}
    o := newTestOrchestrator(t, &fakeProtector{}, submitter, &stubLedger{balance: math.NewInt(500_000_000)}, &memStore{})

    require.NoError(t, o.Begin(validResult(t)))
    done := make(chan struct{})
    go func() {
        defer close(done)
        _, _ = o.Run(context.Background())
    }()

    // Wait until the pipeline is past submission and parked in Polling.
    require.Eventually(t, func() bool { return o.State() == domain.StatePolling }, time.Second, 5*time.Millisecond)
    assert.ErrorIs(t, o.Begin(validResult(t)), domain.ErrPipelineBusy)
    _, err := o.Run(context.Background())
    assert.ErrorIs(t, err, domain.ErrPipelineBusy)

    close(blockFetch)
    <-done
    assert.Equal(t, domain.StateCompleted, o.State())
}

type blockingSubmitter struct {
    release  chan struct{}
    artifact []byte
}

func (b *blockingSubmitter) Submit(ctx context.Context, ref, executor, workerpool string, prices ports.PriceCeilings, outputPath string, onStatus ports.StatusCallback) (string, error) {
    return "0xtask", nil
}

func (b *blockingSubmitter) FetchArtifact(ctx context.Context, jobID string) ([]byte, error) {
    <-b.release
    return b.artifact, nil
}

