// Package agent defines the identities and observable status of pipeline stages.
package agent

import "time"

// Stage identifiers of the built-in pipeline.
const (
	Capture        = "capture"
	Compliance     = "compliance"
	Classification = "classification"
	Matching       = "matching"
	Risk           = "risk"
	Approval       = "approval"
	Payment        = "payment"
	Communication  = "communication"
	Advisory       = "advisory"
)

// State is the processing state of a stage.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// Status is the observability record of one registered stage.
type Status struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Capabilities     []string  `json:"capabilities"`
	State            State     `json:"state"`
	LastProcessedAt  time.Time `json:"last_processed_at,omitempty"`
	ProcessedCount   int64     `json:"processed_count"`
	FailureCount     int64     `json:"failure_count"`
	AverageLatencyMs float64   `json:"average_latency_ms"`
	Circuit          string    `json:"circuit"`
}

// RunningMean folds a new sample into an average over n samples, where n
// already counts the new sample.
func RunningMean(oldAvg float64, n int64, sample float64) float64 {
	if n <= 1 {
		return sample
	}
	return (oldAvg*float64(n-1) + sample) / float64(n)
}
