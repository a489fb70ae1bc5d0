package domain

import (
    "encoding/json"
    "fmt"
    "time"
)

// Core domain models for the confidential analysis pipeline. Wire shapes match
// the TEE application's JSON contract; keep adapters decoupled where helpful.

type VehicleType string

const (
    VehicleICE    VehicleType = "ICE"
    VehicleEV     VehicleType = "EV"
    VehicleHybrid VehicleType = "Hybrid"
)

type PaymentStatus string

const (
    PaymentCurrent PaymentStatus = "current"
    Payment30DPD   PaymentStatus = "30dpd"
    Payment60DPD   PaymentStatus = "60dpd"
    Payment90DPD   PaymentStatus = "90+dpd"
    PaymentDefault PaymentStatus = "default"
)

// RawRow is one untrusted tabular row as it arrives from the import layer.
type RawRow map[string]any

// LoanRecord is the validated unit of analysis. Immutable once accepted.
type LoanRecord struct {
    LoanID               string        `json:"loan_id"`
    OriginationDate      string        `json:"origination_date"`
    RemainingTermMonths  int           `json:"remaining_term_months"`
    PrincipalOutstanding float64       `json:"principal_outstanding"`
    InterestRateAnnual   float64       `json:"interest_rate_annual"`
    FICOBucket           int           `json:"fico_bucket"`
    LTV                  float64       `json:"ltv"`
    DTI                  float64       `json:"dti"`
    VehicleType          VehicleType   `json:"vehicle_type"`
    VehicleAgeYears      int           `json:"vehicle_age_years"`
    PaymentStatus        PaymentStatus `json:"payment_status"`
}

// RowIssue is a validation error or warning tagged with its 1-based input row.
// Row 0 marks batch-level issues that have no originating row.
type RowIssue struct {
    Row     int    `json:"row"`
    Message string `json:"message"`
}

func (i RowIssue) String() string {
    if i.Row == 0 {
        return i.Message
    }
    return fmt.Sprintf("Row %d: %s", i.Row, i.Message)
}

// ValidationResult aggregates one batch. IsValid is true iff Errors is empty;
// a single bad row blocks the whole batch from submission.
type ValidationResult struct {
    IsValid  bool         `json:"isValid"`
    Loans    []LoanRecord `json:"loans"`
    Errors   []RowIssue   `json:"errors"`
    Warnings []RowIssue   `json:"warnings"`
}

// JobState is the orchestrator's lifecycle position. Transitions are
// one-directional except Failed, which re-enters Validated for retry.
type JobState string

const (
    StateIdle        JobState = "idle"
    StateValidated   JobState = "validated"
    StateProtecting  JobState = "protecting"
    StateAuthorizing JobState = "authorizing"
    StateSubmitted   JobState = "submitted"
    StatePolling     JobState = "polling"
    StateCompleted   JobState = "completed"
    StateFailed      JobState = "failed"
)

// InFlight reports whether a pipeline step is currently awaited in this state.
func (s JobState) InFlight() bool {
    switch s {
    case StateProtecting, StateAuthorizing, StateSubmitted, StatePolling:
        return true
    }
    return false
}

// StatusUpdate is one progress event published while a pipeline runs.
type StatusUpdate struct {
    Title string    `json:"title"`
    Done  bool      `json:"done"`
    At    time.Time `json:"at"`
}

// PoolSummary mirrors the enclave's pool composition aggregates.
type PoolSummary struct {
    LoanCount               int     `json:"loan_count"`
    TotalPrincipalUSD       float64 `json:"total_principal_usd"`
    WeightedAvgInterestRate float64 `json:"weighted_avg_interest_rate"`
    WeightedAvgTermMonths   float64 `json:"weighted_avg_remaining_term_months"`
    WeightedAvgLifeYears    float64 `json:"weighted_avg_life_years"`
}

type CreditRisk struct {
    DelinquencyBreakdownUSD map[string]float64 `json:"delinquency_breakdown_usd"`
    BaseExpectedLossPct     float64            `json:"base_expected_loss_pct"`
    StressExpectedLossPct   float64            `json:"stress_expected_loss_pct"`
    FICODistributionCount   map[string]int     `json:"fico_distribution_count"`
    WeightedAvgFICO         int                `json:"weighted_avg_fico"`
}

type CashflowProjection struct {
    ProjectedAnnualPrincipal float64 `json:"projected_annual_principal"`
    ProjectedAnnualInterest  float64 `json:"projected_annual_interest"`
    GrossYieldPct            float64 `json:"gross_yield_pct"`
    NetExcessSpreadPct       float64 `json:"net_excess_spread_pct"`
}

type TrancheStructure struct {
    SeniorClassAPct    float64 `json:"senior_class_a_pct"`
    MezzanineClassBPct float64 `json:"mezzanine_class_b_pct"`
    EquityClassCPct    float64 `json:"equity_class_c_pct"`
    RatingImplied      string  `json:"rating_implied"`
}

// AnalysisResult is the decoded pool analysis the pipeline surfaces to users.
type AnalysisResult struct {
    PoolSummary        PoolSummary        `json:"pool_summary"`
    CreditRisk         CreditRisk         `json:"credit_risk"`
    CashflowProjection CashflowProjection `json:"cashflow_projection"`
    TrancheStructure   TrancheStructure   `json:"recommended_tranche_structure"`
}

// PrivacyGuarantee is enclave-reported execution metadata.
type PrivacyGuarantee struct {
    RawLoanDataExposed   bool   `json:"raw_loan_data_exposed"`
    ExecutionEnvironment string `json:"execution_environment"`
    VerifiableTask       bool   `json:"verifiable_task"`
}

// ResultEnvelope is the provider's raw result wrapper. When the executor runs
// in multi-pool mode the analysis sits under aggregated_pool_analysis;
// otherwise the envelope body is the analysis itself.
type ResultEnvelope struct {
    ExecutionMode          string            `json:"execution_mode,omitempty"`
    Confidence             string            `json:"confidence,omitempty"`
    PoolsFound             int               `json:"pools_found,omitempty"`
    DatasetsProcessed      int               `json:"datasets_processed,omitempty"`
    PrivacyGuarantee       *PrivacyGuarantee `json:"privacy_guarantee,omitempty"`
    IndividualResults      []json.RawMessage `json:"individual_results,omitempty"`
    AggregatedPoolAnalysis json.RawMessage   `json:"aggregated_pool_analysis,omitempty"`
}

// CompletedJob is the persisted record of one finished analysis.
type CompletedJob struct {
    JobID            string           `json:"jobId"`
    Timestamp        time.Time        `json:"timestamp"`
    FinalResult      AnalysisResult   `json:"finalResult"`
    RawResult        *ResultEnvelope  `json:"rawResult,omitempty"`
    Confidence       string           `json:"confidence,omitempty"`
    ValidationResult ValidationResult `json:"validationResult"`
}
