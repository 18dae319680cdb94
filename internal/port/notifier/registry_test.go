package notifier

import (
	"context"
	"slices"
	"testing"
)

type stubNotifier struct{ target string }

func (s *stubNotifier) Name() string { return "stub" }
func (s *stubNotifier) Capabilities() Capabilities { return Capabilities{} }
func (s *stubNotifier) Send(context.Context, Notification) error {
	return nil
}

func TestRegistryNew(t *testing.T) {
	Register("test-stub", func(lookup Lookup) (Notifier, error) {
		return &stubNotifier{target: lookup("target")}, nil
	})

	n, err := New("test-stub", func(key string) string {
		if key == "target" {
			return "#ap-alerts"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := n.(*stubNotifier).target; got != "#ap-alerts" {
		t.Fatalf("target = %q", got)
	}
	if !slices.Contains(Available(), "test-stub") {
		t.Fatalf("Available() = %v", Available())
	}
}

func TestRegistryUnknown(t *testing.T) {
	if _, err := New("carrier-pigeon", func(string) string { return "" }); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	Register("test-dup", func(Lookup) (Notifier, error) { return &stubNotifier{}, nil })
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("test-dup", func(Lookup) (Notifier, error) { return &stubNotifier{}, nil })
}
