package service

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/invoiceflow/internal/adapter/memory"
)

func TestDuplicateIndexWindow(t *testing.T) {
	const window = 90 * 24 * time.Hour
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	idx := NewDuplicateIndex(memory.NewFingerprintLedger(), window)
	idx.now = func() time.Time { return now }
	ctx := context.Background()

	steps := []struct {
		name    string
		after   time.Duration
		doc     string
		wantDup bool
		owner   string
	}{
		{"first copy", 0, "doc-a", false, "doc-a"},
		{"copy after an hour", time.Hour, "doc-b", true, "doc-a"},
		{"copy after a week", 7 * 24 * time.Hour, "doc-c", true, "doc-a"},
		{"copy on the last day of the window", window, "doc-d", true, "doc-a"},
		{"copy after the window", window + time.Minute, "doc-e", false, "doc-e"},
		{"copy of the re-claimed invoice", window + time.Hour, "doc-f", true, "doc-e"},
	}
	for _, s := range steps {
		now = base.Add(s.after)
		owner, dup, err := idx.CheckAndRecord(ctx, "acme|INV-7|1200.00", s.doc)
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if dup != s.wantDup || owner != s.owner {
			t.Fatalf("%s: dup=%v owner=%s, want dup=%v owner=%s", s.name, dup, owner, s.wantDup, s.owner)
		}
	}
}
