package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateDocumentReceived(t *testing.T) {
	data := []byte(`{"document":{"id":"d1","source_type":"email","metadata":{"vendor_name":"Acme"}}}`)
	if err := Validate(SubjectDocumentReceived, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDocumentReceivedMissingID(t *testing.T) {
	err := Validate(SubjectDocumentReceived, []byte(`{"document":{"source_type":"api"}}`))
	if err == nil || !strings.Contains(err.Error(), "document.id") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestValidateDecision(t *testing.T) {
	data := []byte(`{"document_id":"d1","trace_id":"t1","decision":{"agent_id":"risk","outcome":"executed"}}`)
	if err := Validate(SubjectDecision, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(SubjectDecision, []byte(`{"document_id":"d1"}`)); err == nil {
		t.Fatal("expected error for missing agent id")
	}
}

func TestValidateRunCompleted(t *testing.T) {
	data := []byte(`{"document_id":"d1","status":"completed","decision_count":9}`)
	if err := Validate(SubjectRunCompleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("unknown.subject", []byte(`{"foo":"bar"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectDocumentReceived, []byte(`{not valid json`))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected 'invalid JSON' error, got: %v", err)
	}
}

func TestValidateInvalidSchema(t *testing.T) {
	err := Validate(SubjectRunCompleted, []byte(`"just a string"`))
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected schema validation error, got: %v", err)
	}
}
