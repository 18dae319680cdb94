// Package cachetest holds the behaviour suite every cache adapter must pass.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/invoiceflow/internal/port/cache"
)

// Run runs the standard suite against c. Adapters whose writes become
// visible asynchronously pass a settle func that is called after each write.
func Run(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "suite-key", []byte("suite-val"), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "suite-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != "suite-val" {
			t.Fatalf("expected suite-val, got %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "missing-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for missing key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "del-key", []byte("del-val"), time.Minute)
		settle()
		if err := c.Delete(ctx, "del-key"); err != nil {
			t.Fatal(err)
		}
		settle()
		if _, found, _ := c.Get(ctx, "del-key"); found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "ow-key", []byte("v1"), time.Minute)
		settle()
		_ = c.Set(ctx, "ow-key", []byte("v2"), time.Minute)
		settle()
		val, found, err := c.Get(ctx, "ow-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s (found=%v)", val, found)
		}
	})
}
