package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
)

// runProcess runs one document file through the full plan.
func runProcess(cfg *config.Config, args []string) error {
	doc, asJSON, err := parseDocumentArgs("process", args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.orch.ProcessDocument(ctx, doc)
	if err != nil {
		return err
	}
	if asJSON || !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		return writeJSON(os.Stdout, res)
	}
	printResult(os.Stdout, res)
	return nil
}

// runRoute invokes the stage mapped to the document's status.
func runRoute(cfg *config.Config, args []string) error {
	doc, asJSON, err := parseDocumentArgs("route", args)
	if err != nil {
		return err
	}
	if doc.Status == "" {
		return fmt.Errorf("route: document %s has no status", doc.ID)
	}
	ctx := context.Background()
	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	d, err := a.orch.Route(ctx, doc)
	if err != nil {
		return err
	}
	if asJSON || !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		return writeJSON(os.Stdout, struct {
			Decision *decision.Decision `json:"decision"`
			Status   document.Status    `json:"status"`
		}{d, doc.Status})
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	printDecisions(tw, []decision.Decision{*d})
	_ = tw.Flush()
	fmt.Fprintf(os.Stdout, "\ndocument %s is now %s\n", doc.ID, doc.Status)
	return nil
}

func parseDocumentArgs(name string, args []string) (*document.Document, bool, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if fs.NArg() != 1 {
		return nil, false, fmt.Errorf("usage: invoiceflow %s [--json] <document-file>", name)
	}
	doc, err := loadDocument(fs.Arg(0))
	return doc, *asJSON, err
}

// loadDocument reads a document from a YAML or JSON file.
func loadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the operator's argument
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc document.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *pipeline.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	printDecisions(tw, res.Decisions)
	_ = tw.Flush()

	fmt.Fprintf(w, "\ndocument %s: %s", res.DocumentID, res.Status)
	if res.Halt != pipeline.HaltNone {
		fmt.Fprintf(w, " (halted: %s by %s)", res.Halt, res.HaltedBy)
	}
	fmt.Fprintf(w, " in %dms, trace %s\n", res.DurationMs, res.TraceID)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error %s: %s (recoverable=%v)\n", e.AgentID, e.Message, e.Recoverable)
	}
}

func printDecisions(tw *tabwriter.Writer, ds []decision.Decision) {
	fmt.Fprintln(tw, "STAGE\tACTION\tOUTCOME\tCONFIDENCE\tREASONING")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", d.AgentID, d.Action, d.Outcome, d.Confidence, d.Reasoning)
	}
}
