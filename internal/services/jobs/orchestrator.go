package jobs

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "cosmossdk.io/math"
    "github.com/cockroachdb/errors"
    "github.com/google/uuid"
    "go.uber.org/zap"

    "autovault/internal/domain"
    "autovault/internal/ports"
    "autovault/internal/services/fees"
    "autovault/internal/services/history"
    "autovault/internal/services/results"
)

// Config carries the deal parameters for submitted jobs.
type Config struct {
    ExecutorAddress    string
    WorkerpoolAddress  string
    Account            string
    AccessCount        int
    AppMaxPrice        int64
    WorkerpoolMaxPrice int64
    OutputPath         string
    RequiredStake      math.Int

    // PipelineTimeout bounds a whole run, polling included. A stalled remote
    // job fails the pipeline instead of holding Polling forever. 0 disables.
    PipelineTimeout time.Duration
}

// Orchestrator drives the confidential-job lifecycle:
// protect -> authorize -> (best-effort stake check) -> submit -> poll ->
// decode -> persist. One pipeline may be in flight at a time; a failed run
// keeps its validated portfolio so a retry skips re-entry.
type Orchestrator struct {
    protector ports.ProtectionProvider
    submitter ports.ComputeSubmitter
    fees      *fees.Service
    history   *history.Service
    cfg       Config
    log       *zap.Logger

    mu        sync.Mutex
    state     domain.JobState
    validated *domain.ValidationResult
    jobID     string
    lastErr   string
    completed *domain.CompletedJob

    events chan domain.StatusUpdate
}

func New(protector ports.ProtectionProvider, submitter ports.ComputeSubmitter, feeSvc *fees.Service, historySvc *history.Service, cfg Config, log *zap.Logger) *Orchestrator {
    return &Orchestrator{
        protector: protector,
        submitter: submitter,
        fees:      feeSvc,
        history:   historySvc,
        cfg:       cfg,
        log:       log,
        state:     domain.StateIdle,
        events:    make(chan domain.StatusUpdate, 64),
    }
}

// Events is the progress stream a UI subscribes to. Updates are dropped, not
// blocked on, when no consumer keeps up.
func (o *Orchestrator) Events() <-chan domain.StatusUpdate { return o.events }

func (o *Orchestrator) State() domain.JobState {
    o.mu.Lock()
    defer o.mu.Unlock()
    return o.state
}

// Snapshot is the current lifecycle position for status reporting.
type Snapshot struct {
    State     domain.JobState      `json:"state"`
    JobID     string               `json:"jobId,omitempty"`
    LastError string               `json:"lastError,omitempty"`
    Completed *domain.CompletedJob `json:"completed,omitempty"`
}

func (o *Orchestrator) Snapshot() Snapshot {
    o.mu.Lock()
    defer o.mu.Unlock()
    return Snapshot{State: o.state, JobID: o.jobID, LastError: o.lastErr, Completed: o.completed}
}

// Begin accepts a validated portfolio and arms the pipeline. A batch with
// errors never gets past this point.
func (o *Orchestrator) Begin(vr domain.ValidationResult) error {
    if !vr.IsValid {
        return errors.Wrapf(domain.ErrBatchInvalid, "%d row error(s)", len(vr.Errors))
    }
    o.mu.Lock()
    defer o.mu.Unlock()
    if o.state.InFlight() {
        return domain.ErrPipelineBusy
    }
    o.validated = &vr
    o.state = domain.StateValidated
    o.jobID = ""
    o.lastErr = ""
    o.completed = nil
    return nil
}

// Run executes the pipeline. Valid from Validated; a Failed orchestrator with
// a preserved portfolio re-enters Validated first, so callers retry without
// repeating Begin.
func (o *Orchestrator) Run(ctx context.Context) (*domain.CompletedJob, error) {
    o.mu.Lock()
    if o.state == domain.StateFailed && o.validated != nil {
        o.state = domain.StateValidated
    }
    if o.state != domain.StateValidated {
        busy := o.state.InFlight()
        o.mu.Unlock()
        if busy {
            return nil, domain.ErrPipelineBusy
        }
        return nil, domain.ErrNotValidated
    }
    if o.protector == nil || o.submitter == nil {
        o.mu.Unlock()
        return nil, domain.ErrProviderNotReady
    }
    vr := *o.validated
    o.state = domain.StateProtecting
    o.jobID = ""
    o.lastErr = ""
    o.completed = nil
    o.mu.Unlock()

    if o.cfg.PipelineTimeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, o.cfg.PipelineTimeout)
        defer cancel()
    }

    o.publish("Encrypting portfolio with the data protector")
    payload, err := json.Marshal(map[string][]domain.LoanRecord{"loans": vr.Loans})
    if err != nil {
        return nil, o.fail("encode portfolio", err)
    }
    ref, err := o.protector.Protect(ctx, "autovault_"+uuid.NewString(), payload)
    if err != nil {
        return nil, o.fail("protect portfolio", err)
    }
    o.setState(domain.StateAuthorizing)

    o.publish("Granting enclave access")
    if _, err := o.protector.Authorize(ctx, ref, o.cfg.ExecutorAddress, o.cfg.AccessCount); err != nil {
        return nil, o.fail("authorize executor", err)
    }
    o.setState(domain.StateSubmitted)

    // Best effort: a failed stake check is logged and never blocks submission.
    o.publish("Checking execution credit")
    if stake, err := o.fees.EnsureStake(ctx, o.cfg.Account, o.cfg.RequiredStake); err != nil {
        o.log.Warn("stake check failed, continuing", zap.Error(err))
    } else if stake.ToppedUp {
        o.publish("Execution credit topped up")
    }

    o.publish("Submitting confidential job")
    jobID, err := o.submitter.Submit(ctx, ref, o.cfg.ExecutorAddress, o.cfg.WorkerpoolAddress,
        ports.PriceCeilings{AppMax: o.cfg.AppMaxPrice, WorkerpoolMax: o.cfg.WorkerpoolMaxPrice},
        o.cfg.OutputPath, o.forward)
    if err != nil {
        return nil, o.fail("submit job", err)
    }

    o.mu.Lock()
    o.jobID = jobID
    o.state = domain.StatePolling
    o.mu.Unlock()

    o.publish("Awaiting enclave computation result")
    artifact, err := o.submitter.FetchArtifact(ctx, jobID)
    if err != nil {
        return nil, o.fail("fetch result", err)
    }

    envelope, analysis, err := results.Decode(artifact)
    if err != nil {
        return nil, o.fail("decode result", err)
    }

    completed := domain.CompletedJob{
        JobID:            jobID,
        Timestamp:        time.Now().UTC(),
        FinalResult:      *analysis,
        RawResult:        envelope,
        Confidence:       envelope.Confidence,
        ValidationResult: vr,
    }

    // A history write failure must not undo a finished job.
    if err := o.history.Append(ctx, completed); err != nil {
        o.log.Warn("history append failed", zap.String("jobId", jobID), zap.Error(err))
    }

    o.mu.Lock()
    o.state = domain.StateCompleted
    o.completed = &completed
    o.mu.Unlock()
    o.publishDone("Analysis complete")
    return &completed, nil
}

func (o *Orchestrator) setState(s domain.JobState) {
    o.mu.Lock()
    o.state = s
    o.mu.Unlock()
}

// fail records the failure and keeps the validated portfolio for retry.
func (o *Orchestrator) fail(step string, err error) error {
    wrapped := errors.Wrap(err, step)
    o.mu.Lock()
    o.state = domain.StateFailed
    o.lastErr = wrapped.Error()
    o.mu.Unlock()
    o.log.Error("pipeline failed", zap.String("step", step), zap.Error(err))
    o.publishDone("Error: " + wrapped.Error())
    return wrapped
}

func (o *Orchestrator) publish(title string) {
    o.forward(domain.StatusUpdate{Title: title})
}

func (o *Orchestrator) publishDone(title string) {
    o.forward(domain.StatusUpdate{Title: title, Done: true})
}

func (o *Orchestrator) forward(u domain.StatusUpdate) {
    if u.At.IsZero() {
        u.At = time.Now().UTC()
    }
    select {
    case o.events <- u:
    default:
        // Slow or absent consumer; progress events are advisory.
    }
}
