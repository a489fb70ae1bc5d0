package httpadapter

import (
    "context"
    "encoding/json"
    "net/http"

    "github.com/cockroachdb/errors"
    "github.com/go-chi/chi/v5"
    "go.uber.org/zap"

    "autovault/internal/domain"
    historysvc "autovault/internal/services/history"
    jobsvc "autovault/internal/services/jobs"
    validationsvc "autovault/internal/services/validation"
    "autovault/internal/workers/statusrelay"
)

// Server exposes the orchestrator over REST.
type Server struct {
    validator *validationsvc.Service
    jobs      *jobsvc.Orchestrator
    history   *historysvc.Service
    relay     *statusrelay.Relay
    log       *zap.Logger
}

func New(validator *validationsvc.Service, jobs *jobsvc.Orchestrator, history *historysvc.Service, relay *statusrelay.Relay, log *zap.Logger) *Server {
    return &Server{validator: validator, jobs: jobs, history: history, relay: relay, log: log}
}

func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Get("/healthz", s.getHealthz)
    r.Get("/sample", s.getSample)
    r.Post("/validate", s.postValidate)
    r.Post("/analyses", s.postAnalyses)
    r.Get("/analyses/current", s.getCurrentAnalysis)
    r.Get("/history", s.getHistory)
    r.Delete("/history/{jobID}", s.deleteHistoryEntry)
    r.Delete("/history", s.deleteHistory)
    return r
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSample(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"loans": domain.SamplePortfolio})
}

type rowsRequest struct {
    Loans []domain.RawRow `json:"loans"`
}

func (s *Server) postValidate(w http.ResponseWriter, r *http.Request) {
    var req rowsRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "invalid JSON body")
        return
    }
    writeJSON(w, http.StatusOK, s.validator.Validate(req.Loans))
}

type analysisAccepted struct {
    State domain.JobState `json:"state"`
}

func (s *Server) postAnalyses(w http.ResponseWriter, r *http.Request) {
    var req rowsRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "invalid JSON body")
        return
    }
    result := s.validator.Validate(req.Loans)
    if err := s.jobs.Begin(result); err != nil {
        s.writeDomainError(w, err, &result)
        return
    }
    s.relay.Reset()

    // Blocking path for testing
    if r.URL.Query().Get("wait") == "true" {
        if _, err := s.jobs.Run(r.Context()); err != nil {
            s.writeDomainError(w, err, nil)
            return
        }
        writeJSON(w, http.StatusOK, s.currentSnapshot())
        return
    }

    go func() {
        if _, err := s.jobs.Run(context.Background()); err != nil {
            s.log.Error("analysis run failed", zap.Error(err))
        }
    }()
    writeJSON(w, http.StatusAccepted, analysisAccepted{State: s.jobs.State()})
}

type currentAnalysis struct {
    State     domain.JobState       `json:"state"`
    JobID     string                `json:"jobId,omitempty"`
    Error     string                `json:"error,omitempty"`
    Statuses  []domain.StatusUpdate `json:"statuses"`
    Completed *domain.CompletedJob  `json:"completed,omitempty"`
}

func (s *Server) currentSnapshot() currentAnalysis {
    snap := s.jobs.Snapshot()
    cur := currentAnalysis{
        State:     snap.State,
        JobID:     snap.JobID,
        Error:     snap.LastError,
        Statuses:  s.relay.Recent(),
        Completed: snap.Completed,
    }
    if cur.Statuses == nil {
        cur.Statuses = []domain.StatusUpdate{}
    }
    return cur
}

func (s *Server) getCurrentAnalysis(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, s.currentSnapshot())
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
    jobs, err := s.history.List(r.Context())
    if err != nil {
        s.log.Error("load history", zap.Error(err))
        writeError(w, http.StatusInternalServerError, "history unavailable")
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) deleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
    if err := s.history.Remove(r.Context(), chi.URLParam(r, "jobID")); err != nil {
        s.log.Error("remove history entry", zap.Error(err))
        writeError(w, http.StatusInternalServerError, "history unavailable")
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
    if err := s.history.Clear(r.Context()); err != nil {
        s.log.Error("clear history", zap.Error(err))
        writeError(w, http.StatusInternalServerError, "history unavailable")
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// writeDomainError maps orchestrator sentinels to HTTP codes. An invalid
// batch carries the validation result so callers see the row issues.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, result *domain.ValidationResult) {
    switch {
    case errors.Is(err, domain.ErrBatchInvalid):
        body := map[string]any{"error": err.Error()}
        if result != nil {
            body["validation"] = result
        }
        writeJSON(w, http.StatusUnprocessableEntity, body)
    case errors.Is(err, domain.ErrPipelineBusy):
        writeError(w, http.StatusConflict, err.Error())
    case errors.Is(err, domain.ErrNotValidated), errors.Is(err, domain.ErrProviderNotReady):
        writeError(w, http.StatusServiceUnavailable, err.Error())
    default:
        s.log.Error("analysis failed", zap.Error(err))
        writeError(w, http.StatusBadGateway, err.Error())
    }
}

func writeJSON(w http.ResponseWriter, code int, body any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
    writeJSON(w, code, map[string]string{"error": msg})
}
