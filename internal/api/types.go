package api

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// InvocationResponse summarizes a settled batch for POST /invocations.
type InvocationResponse struct {
	InvocationID string          `json:"invocation_id"`
	EvaluatedAt  string          `json:"evaluated_at"`
	StartedAt    string          `json:"started_at"`
	FinishedAt   string          `json:"finished_at"`
	Error        string          `json:"error,omitempty"`
	Profiles     int             `json:"profiles"`
	Outcomes     map[string]int  `json:"outcomes"`
	Failures     []FailureDetail `json:"failures,omitempty"`
}

type FailureDetail struct {
	Profile string `json:"profile"`
	Email   string `json:"email,omitempty"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
