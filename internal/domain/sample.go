package domain

// SamplePortfolio is the bundled demo portfolio. It validates clean (no
// errors, no warnings) and is served by the API for first-run exploration.
var SamplePortfolio = []RawRow{
    {
        "loan_id":               "L_SOLO_001",
        "origination_date":      "2024-04-01",
        "remaining_term_months":  48,
        "principal_outstanding":  55000.00,
        "interest_rate_annual":   4.9,
        "fico_bucket":            820,
        "ltv":                    60.0,
        "dti":                    15.0,
        "vehicle_type":           "EV",
        "vehicle_age_years":      0,
        "payment_status":         "current",
    },
    {
        "loan_id":               "L_ABS_9921",
        "origination_date":      "2023-11-15",
        "remaining_term_months":  60,
        "principal_outstanding":  28500.00,
        "interest_rate_annual":   5.25,
        "fico_bucket":            720,
        "ltv":                    85.0,
        "dti":                    28.0,
        "vehicle_type":           "ICE",
        "vehicle_age_years":      2,
        "payment_status":         "current",
    },
    {
        "loan_id":               "L_ABS_9922",
        "origination_date":      "2024-01-10",
        "remaining_term_months":  36,
        "principal_outstanding":  15400.00,
        "interest_rate_annual":   8.50,
        "fico_bucket":            640,
        "ltv":                    95.0,
        "dti":                    35.0,
        "vehicle_type":           "ICE",
        "vehicle_age_years":      5,
        "payment_status":         "30dpd",
    },
    {
        "loan_id":               "L_ABS_9923",
        "origination_date":      "2023-08-20",
        "remaining_term_months":  72,
        "principal_outstanding":  42100.00,
        "interest_rate_annual":   4.15,
        "fico_bucket":            780,
        "ltv":                    70.0,
        "dti":                    12.0,
        "vehicle_type":           "Hybrid",
        "vehicle_age_years":      1,
        "payment_status":         "current",
    },
}
