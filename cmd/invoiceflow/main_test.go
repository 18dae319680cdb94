package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
)

func TestLoadDocument(t *testing.T) {
	doc, err := loadDocument(filepath.Join("testdata", "invoice.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "doc-cli-1" || doc.Metadata["po_number"] != "PO-400" {
		t.Fatalf("document %+v", doc)
	}

	if _, err := loadDocument(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseDocumentArgs(t *testing.T) {
	if _, _, err := parseDocumentArgs("process", nil); err == nil {
		t.Fatal("expected usage error without a file")
	}
	_, asJSON, err := parseDocumentArgs("process", []string{"--json", filepath.Join("testdata", "invoice.yaml")})
	if err != nil || !asJSON {
		t.Fatalf("asJSON=%v err=%v", asJSON, err)
	}
}

func TestPrintResult(t *testing.T) {
	res := &pipeline.Result{
		DocumentID: "doc-1",
		TraceID:    "trace-1",
		Status:     pipeline.StatusBlocked,
		Halt:       pipeline.HaltBlocked,
		HaltedBy:   "matching",
		Decisions: []decision.Decision{
			{AgentID: "matching", Action: "no_po_found", Outcome: decision.OutcomeBlocked, Confidence: 0.3},
		},
		Errors: []pipeline.PipelineError{{AgentID: "risk", Message: "timeout", Timestamp: time.Now(), Recoverable: true}},
	}
	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()
	for _, want := range []string{"no_po_found", "0.30", "halted: blocked by matching", "error risk: timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunProcessInMemory(t *testing.T) {
	t.Setenv("INVOICEFLOW_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("INVOICEFLOW_FIXTURES_FILE", filepath.Join("testdata", "fixtures.yaml"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("INVOICEFLOW_LOG_LEVEL", "error")

	if err := run([]string{"process", "--json", filepath.Join("testdata", "invoice.yaml")}); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"plan"}); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"bogus"}); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestOpenNotifiers(t *testing.T) {
	t.Setenv("INVOICEFLOW_SLACK_WEBHOOK_URL", "https://hooks.example/abc")

	cfg := config.Defaults()
	cfg.Notify.Channels = []string{"slack", "email"}
	a := &app{cfg: &cfg}
	svc, err := a.openNotifiers()
	if err != nil {
		t.Fatal(err)
	}
	if svc.NotifierCount() != 2 {
		t.Fatalf("notifiers = %d", svc.NotifierCount())
	}
	if got := a.vault.Get("slack_webhook_url"); got != "https://hooks.example/abc" {
		t.Fatalf("vault webhook = %q", got)
	}

	cfg.Notify.Channels = []string{"pager"}
	if _, err := (&app{cfg: &cfg}).openNotifiers(); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}
