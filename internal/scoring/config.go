// Package scoring implements the server-side response aggregation and risk
// classification logic. It is intentionally dependency-free: it imports
// nothing from internal/ and can be tested without a database.
package scoring

import "fmt"

// criticalThreshold is the fixed ceiling separating High from Critical.
// It is not configurable: an overall score above 80 is always critical,
// regardless of tenant thresholds.
const criticalThreshold = 80

// RiskConfig holds the tenant-configurable tier boundaries. Both values are
// percentages in [0, 100) and must satisfy Low < Medium.
//
// Thresholds are exclusive lower bounds: a score exactly equal to a threshold
// falls into the lower tier.
type RiskConfig struct {
	LowThreshold    int // score > LowThreshold    → at least Medium
	MediumThreshold int // score > MediumThreshold → at least High
}

// DefaultRiskConfig returns the global fallback thresholds (30, 60), used
// whenever a tenant has no stored config or its stored config is invalid.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{LowThreshold: 30, MediumThreshold: 60}
}

// Validate checks the ordering invariant 0 <= Low < Medium < 100. Callers
// loading tenant configs from storage must call this and fall back to
// DefaultRiskConfig on error — an out-of-order config is never applied.
func (c RiskConfig) Validate() error {
	if c.LowThreshold < 0 {
		return fmt.Errorf("risk config: low_risk_threshold %d must be >= 0", c.LowThreshold)
	}
	if c.LowThreshold >= c.MediumThreshold {
		return fmt.Errorf("risk config: low_risk_threshold %d must be < medium_risk_threshold %d",
			c.LowThreshold, c.MediumThreshold)
	}
	if c.MediumThreshold >= 100 {
		return fmt.Errorf("risk config: medium_risk_threshold %d must be < 100", c.MediumThreshold)
	}
	return nil
}

// Sanitize returns c if it is valid, otherwise the default config. Use this
// at the load boundary so classification code never sees a broken config.
func (c RiskConfig) Sanitize() RiskConfig {
	if err := c.Validate(); err != nil {
		return DefaultRiskConfig()
	}
	return c
}
