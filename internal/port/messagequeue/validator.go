package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectDocumentReceived:
		var p DocumentReceivedPayload
		if err := decode(subject, data, &p); err != nil {
			return err
		}
		if p.Document.ID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("document.id is required"))
		}
	case SubjectDecision:
		var p DecisionPayload
		if err := decode(subject, data, &p); err != nil {
			return err
		}
		if p.DocumentID == "" || p.Decision.AgentID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("document_id and decision.agent_id are required"))
		}
	case SubjectRunCompleted:
		var p RunCompletedPayload
		if err := decode(subject, data, &p); err != nil {
			return err
		}
		if p.DocumentID == "" || p.Status == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("document_id and status are required"))
		}
	}
	return nil
}

func decode(subject string, data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
