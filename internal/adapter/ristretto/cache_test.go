package ristretto_test

import (
	"testing"

	"github.com/Strob0t/invoiceflow/internal/adapter/ristretto"
	"github.com/Strob0t/invoiceflow/internal/port/cache/cachetest"
)

func TestCacheSuite(t *testing.T) {
	c, err := ristretto.New(1)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	cachetest.Run(t, c, c.Wait)
}

func TestNewRejectsZeroSize(t *testing.T) {
	if _, err := ristretto.New(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
