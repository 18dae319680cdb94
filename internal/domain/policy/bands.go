package policy

import (
	"errors"
	"fmt"
)

// Bands holds the inclusive upper amount of each tier below CFO.
type Bands struct {
	AutoLimit     float64 `json:"auto_limit" yaml:"auto_limit"`
	ManagerLimit  float64 `json:"manager_limit" yaml:"manager_limit"`
	DirectorLimit float64 `json:"director_limit" yaml:"director_limit"`
	VPLimit       float64 `json:"vp_limit" yaml:"vp_limit"`
}

// DefaultBands returns the standard approval bands.
func DefaultBands() Bands {
	return Bands{
		AutoLimit:     1_000,
		ManagerLimit:  10_000,
		DirectorLimit: 50_000,
		VPLimit:       250_000,
	}
}

// Validate checks the bands are positive and strictly increasing.
func (b Bands) Validate() error {
	limits := []float64{b.AutoLimit, b.ManagerLimit, b.DirectorLimit, b.VPLimit}
	if limits[0] <= 0 {
		return errors.New("policy: auto limit must be > 0")
	}
	for i := 1; i < len(limits); i++ {
		if limits[i] <= limits[i-1] {
			return fmt.Errorf("policy: band %s must exceed band %s", Tiers[i], Tiers[i-1])
		}
	}
	return nil
}

// TierFor returns the tier whose band contains amount.
func (b Bands) TierFor(amount float64) Tier {
	switch {
	case amount <= b.AutoLimit:
		return TierAuto
	case amount <= b.ManagerLimit:
		return TierManager
	case amount <= b.DirectorLimit:
		return TierDirector
	case amount <= b.VPLimit:
		return TierVP
	}
	return TierCFO
}
