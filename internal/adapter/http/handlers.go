package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/port/runarchive"
)

// Pipeline is the orchestrator surface the handlers need.
type Pipeline interface {
	ProcessDocument(ctx context.Context, doc *document.Document) (*pipeline.Result, error)
	Route(ctx context.Context, doc *document.Document) (*decision.Decision, error)
	RegisteredAgents() []agent.Status
	AgentStatus(id string) (agent.Status, bool)
	Plan() pipeline.Plan
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	Pipeline     Pipeline
	Runs         runarchive.Archive
	MaxBodyBytes int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return 1 << 20
}

func (h *Handlers) readDocument(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	doc, ok := readJSON[document.Document](w, r, h.bodyLimit())
	if !ok {
		return nil, false
	}
	if err := doc.Validate(); err != nil {
		writeDomainError(w, err, "invalid document")
		return nil, false
	}
	return &doc, true
}

// ProcessDocument handles POST /api/v1/documents/process. The run outcome
// is in the body; only unusable requests produce an error status.
func (h *Handlers) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	res, err := h.Pipeline.ProcessDocument(r.Context(), doc)
	if err != nil {
		writeDomainError(w, err, "document not processed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type routeResponse struct {
	Decision *decision.Decision `json:"decision"`
	Status   document.Status    `json:"status"`
}

// RouteDocument handles POST /api/v1/documents/route.
func (h *Handlers) RouteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	if doc.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	d, err := h.Pipeline.Route(r.Context(), doc)
	if err != nil {
		writeDomainError(w, err, "document not routed")
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{Decision: d, Status: doc.Status})
}

// GetResult handles GET /api/v1/documents/{id}/result.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if h.Runs == nil {
		writeDomainError(w, fmt.Errorf("run archive: %w", domain.ErrNotFound), "no result for document")
		return
	}
	res, err := h.Runs.Latest(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "no result for document")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAgents handles GET /api/v1/agents.
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.RegisteredAgents())
}

// GetAgent handles GET /api/v1/agents/{id}.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Pipeline.AgentStatus(urlParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetPlan handles GET /api/v1/plan.
func (h *Handlers) GetPlan(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.Plan())
}
