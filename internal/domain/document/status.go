package document

// Status is the lifecycle state of a document. The orchestrator advances it
// between stage invocations.
type Status string

const (
	StatusReceived        Status = "received"
	StatusCaptured        Status = "captured"
	StatusValidated       Status = "validated"
	StatusClassified      Status = "classified"
	StatusMatched         Status = "matched"
	StatusRiskAssessed    Status = "risk_assessed"
	StatusApproved        Status = "approved"
	StatusPendingApproval Status = "pending_approval"
	StatusScheduled       Status = "scheduled"
	StatusNotified        Status = "notified"
	StatusCompleted       Status = "completed"
	StatusBlocked         Status = "blocked"
	StatusFailed          Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusCaptured, StatusValidated, StatusClassified,
		StatusMatched, StatusRiskAssessed, StatusApproved, StatusPendingApproval,
		StatusScheduled, StatusNotified, StatusCompleted, StatusBlocked, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further processing is expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
