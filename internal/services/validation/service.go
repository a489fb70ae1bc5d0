package validation

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"

    "autovault/internal/domain"
)

// Service normalizes and validates untrusted portfolio rows. It is pure:
// no I/O, deterministic, and it never panics on malformed input.
type Service struct{}

func New() *Service { return &Service{} }

var vehicleTypes = map[domain.VehicleType]bool{
    domain.VehicleICE:    true,
    domain.VehicleEV:     true,
    domain.VehicleHybrid: true,
}

var paymentStatuses = map[domain.PaymentStatus]bool{
    domain.PaymentCurrent: true,
    domain.Payment30DPD:   true,
    domain.Payment60DPD:   true,
    domain.Payment90DPD:   true,
    domain.PaymentDefault: true,
}

// Validate checks every row in order. A row that fails a check is excluded
// entirely and contributes exactly one error; warnings never exclude a row.
// Row numbers are 1-based and positional in the input.
func (s *Service) Validate(rows []domain.RawRow) domain.ValidationResult {
    if len(rows) == 0 {
        return domain.ValidationResult{
            IsValid:  false,
            Loans:    []domain.LoanRecord{},
            Errors:   []domain.RowIssue{{Message: "No data provided."}},
            Warnings: []domain.RowIssue{},
        }
    }

    res := domain.ValidationResult{
        Loans:    []domain.LoanRecord{},
        Errors:   []domain.RowIssue{},
        Warnings: []domain.RowIssue{},
    }

    for i, row := range rows {
        n := i + 1

        id := stringField(row, "loan_id")
        if id == "" {
            res.Errors = append(res.Errors, domain.RowIssue{Row: n, Message: "Missing loan_id"})
            continue
        }

        principal, ok := parseFloat(row["principal_outstanding"])
        if !ok || principal <= 0 {
            res.Errors = append(res.Errors, domain.RowIssue{Row: n, Message: "Positive principal required"})
            continue
        }

        rate, ok := parseFloat(row["interest_rate_annual"])
        if !ok || rate < 0 {
            res.Errors = append(res.Errors, domain.RowIssue{Row: n, Message: "Interest rate must be positive"})
            continue
        }
        if rate > 30.0 {
            res.Warnings = append(res.Warnings, domain.RowIssue{Row: n, Message: "High interest rate (>30%)"})
        }

        term, ok := parseInt(row["remaining_term_months"])
        if !ok || term <= 0 {
            res.Errors = append(res.Errors, domain.RowIssue{Row: n, Message: "Term must be > 0"})
            continue
        }
        if term > 84 {
            res.Warnings = append(res.Warnings, domain.RowIssue{Row: n, Message: fmt.Sprintf("Unusually long term (%d months)", term)})
        }

        fico, ok := parseInt(row["fico_bucket"])
        if !ok || fico < 300 || fico > 850 {
            res.Errors = append(res.Errors, domain.RowIssue{Row: n, Message: "Valid FICO (300-850) required"})
            continue
        }

        vType := domain.VehicleType(strings.TrimSpace(stringField(row, "vehicle_type")))
        if !vehicleTypes[vType] {
            res.Warnings = append(res.Warnings, domain.RowIssue{Row: n, Message: fmt.Sprintf("Unknown vehicle type '%s', defaulting to ICE", vType)})
            vType = domain.VehicleICE
        }

        pStatus := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(stringField(row, "payment_status"))))
        if !paymentStatuses[pStatus] {
            res.Errors = append(res.Errors, domain.RowIssue{Row: n, Message: "Invalid payment_status. Allowed: current, 30dpd, 60dpd, 90+dpd, default"})
            continue
        }

        res.Loans = append(res.Loans, domain.LoanRecord{
            LoanID:               id,
            OriginationDate:      stringField(row, "origination_date"),
            RemainingTermMonths:  term,
            PrincipalOutstanding: principal,
            InterestRateAnnual:   rate,
            FICOBucket:           fico,
            LTV:                  floatOrZero(row["ltv"]),
            DTI:                  floatOrZero(row["dti"]),
            VehicleType:          vType,
            VehicleAgeYears:      ageOrZero(row["vehicle_age_years"]),
            PaymentStatus:        pStatus,
        })
    }

    res.IsValid = len(res.Errors) == 0
    return res
}

// stringField renders a present value as a string; missing and nil both
// come back empty.
func stringField(row domain.RawRow, key string) string {
    v, ok := row[key]
    if !ok || v == nil {
        return ""
    }
    switch t := v.(type) {
    case string:
        return t
    case float64:
        // JSON numbers decode as float64; render integral ids without ".0".
        if t == float64(int64(t)) {
            return strconv.FormatInt(int64(t), 10)
        }
        return strconv.FormatFloat(t, 'f', -1, 64)
    default:
        return fmt.Sprint(t)
    }
}

func parseFloat(v any) (float64, bool) {
    switch t := v.(type) {
    case float64:
        return t, true
    case int:
        return float64(t), true
    case int64:
        return float64(t), true
    case json.Number:
        f, err := t.Float64()
        return f, err == nil
    case string:
        f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
        return f, err == nil
    default:
        return 0, false
    }
}

func parseInt(v any) (int, bool) {
    switch t := v.(type) {
    case int:
        return t, true
    case int64:
        return int(t), true
    case float64:
        return int(t), true
    case json.Number:
        f, err := t.Float64()
        return int(f), err == nil
    case string:
        s := strings.TrimSpace(t)
        if n, err := strconv.Atoi(s); err == nil {
            return n, true
        }
        // Tolerate numeric text like "48.0" from loose CSV exports.
        if f, err := strconv.ParseFloat(s, 64); err == nil {
            return int(f), true
        }
        return 0, false
    default:
        return 0, false
    }
}

func floatOrZero(v any) float64 {
    if f, ok := parseFloat(v); ok {
        return f
    }
    return 0
}

func ageOrZero(v any) int {
    n, ok := parseInt(v)
    if !ok || n < 0 {
        return 0
    }
    return n
}
