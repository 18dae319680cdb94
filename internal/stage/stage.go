// Package stage implements the nine decision stages of the accounts-payable
// pipeline.
package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/policy"
	"github.com/Strob0t/invoiceflow/internal/domain/scoring"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	"github.com/Strob0t/invoiceflow/internal/port/purchasing"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

// ErrForcedFailure is returned when a document's force_failure metadata
// names the stage.
var ErrForcedFailure = errors.New("forced stage failure")

// DuplicateIndex remembers invoice fingerprints across runs.
type DuplicateIndex interface {
	// CheckAndRecord returns the id of a different document already seen
	// with the fingerprint, or records documentID as its first owner.
	CheckAndRecord(ctx context.Context, fingerprint, documentID string) (firstID string, duplicate bool, err error)
}

// VelocityCounter counts recent submissions per vendor.
type VelocityCounter interface {
	// Observe records a submission and returns how many fall inside the window,
	// including this one.
	Observe(ctx context.Context, vendor, documentID string, at time.Time) (int, error)
}

// Settings are the tunable thresholds of the stages.
type Settings struct {
	CaptureThreshold        float64
	ClassificationThreshold float64
	TolerancePercent        float64
	LargeAmount             float64
	VelocityMedium          int
	VelocityHigh            int
	CardLimit               float64
	CardRebatePct           float64
	DefaultNetDays          int
}

// DefaultSettings returns the standard thresholds.
func DefaultSettings() Settings {
	return Settings{
		CaptureThreshold:        0.85,
		ClassificationThreshold: 0.7,
		TolerancePercent:        2.0,
		LargeAmount:             100_000,
		VelocityMedium:          5,
		VelocityHigh:            10,
		CardLimit:               25_000,
		CardRebatePct:           1.5,
		DefaultNetDays:          30,
	}
}

// Deps are the collaborators shared by the stages. Nil fields fall back to
// in-process defaults where one exists.
type Deps struct {
	Records    recordstore.Store
	Vendors    vendordir.Directory
	Orders     purchasing.Book
	Duplicates DuplicateIndex
	Velocity   VelocityCounter
	Policy     *policy.Table
	Scorer     scoring.Scorer
	Extractor  Extractor
	Clock      func() time.Time
	Settings   Settings
}

// All builds the nine stages in plan order.
func All(d Deps) []stageport.Stage {
	return []stageport.Stage{
		NewCapture(d),
		NewCompliance(d),
		NewClassification(d),
		NewMatching(d),
		NewRisk(d),
		NewApproval(d),
		NewPayment(d),
		NewCommunication(d),
		NewAdvisory(d),
	}
}

// info carries the static identity every stage reports.
type info struct {
	id           string
	name         string
	capabilities []string
}

func (i info) ID() string   { return i.id }
func (i info) Name() string { return i.name }

func (i info) Capabilities() []string {
	out := make([]string, len(i.capabilities))
	copy(out, i.capabilities)
	return out
}

// checkForced fails the stage when the document asks for it.
func (i info) checkForced(doc *document.Document) error {
	if doc.ForcedFailure(i.id) {
		return fmt.Errorf("%s: %w", i.id, ErrForcedFailure)
	}
	return nil
}

func settingsOf(d Deps) Settings {
	if d.Settings == (Settings{}) {
		return DefaultSettings()
	}
	return d.Settings
}

func traceOf(rc *stageport.RunContext) string {
	if rc == nil {
		return ""
	}
	return rc.TraceID
}

func clockOrNow(c func() time.Time) func() time.Time {
	if c == nil {
		return time.Now
	}
	return c
}

// lookupVendor returns nil for unknown vendors and a transient error for
// directory failures.
func lookupVendor(ctx context.Context, dir vendordir.Directory, name string) (*vendor.Profile, error) {
	if dir == nil || name == "" {
		return nil, nil
	}
	p, err := dir.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, stageport.Transient(fmt.Errorf("vendor lookup: %w", err))
	}
	return p, nil
}
