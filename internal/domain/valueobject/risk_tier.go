package valueobject

import "fmt"

// RiskTier is the discrete band a consensus score falls into.
type RiskTier struct {
	value string
}

var (
	RiskTierLow      = RiskTier{value: "LOW"}
	RiskTierMedium   = RiskTier{value: "MEDIUM"}
	RiskTierHigh     = RiskTier{value: "HIGH"}
	RiskTierCritical = RiskTier{value: "CRITICAL"}
)

// RiskTierFromString reconstructs a RiskTier from its string representation.
func RiskTierFromString(s string) (RiskTier, error) {
	switch s {
	case "LOW":
		return RiskTierLow, nil
	case "MEDIUM":
		return RiskTierMedium, nil
	case "HIGH":
		return RiskTierHigh, nil
	case "CRITICAL":
		return RiskTierCritical, nil
	default:
		return RiskTier{}, fmt.Errorf("invalid risk tier: %s", s)
	}
}

// TierThresholds holds the lower bounds of the Medium, High and Critical tiers.
type TierThresholds struct {
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// DefaultTierThresholds returns the standard 0.3 / 0.6 / 0.85 banding.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{Medium: 0.3, High: 0.6, Critical: 0.85}
}

// Validate requires 0 < Medium < High < Critical <= 1.
func (t TierThresholds) Validate() error {
	if !(t.Medium > 0 && t.Medium < t.High && t.High < t.Critical && t.Critical <= 1) {
		return fmt.Errorf("tier thresholds must satisfy 0 < medium < high < critical <= 1, got %.2f/%.2f/%.2f",
			t.Medium, t.High, t.Critical)
	}
	return nil
}

// Tier maps a score in [0,1] to its band.
func (t TierThresholds) Tier(score float64) RiskTier {
	switch {
	case score < t.Medium:
		return RiskTierLow
	case score < t.High:
		return RiskTierMedium
	case score < t.Critical:
		return RiskTierHigh
	default:
		return RiskTierCritical
	}
}

// String returns the string representation.
func (r RiskTier) String() string {
	return r.value
}

// Recommendation returns the investigation guidance attached to the tier.
func (r RiskTier) Recommendation() []string {
	switch r.value {
	case "CRITICAL":
		return []string{
			"Immediate field investigation required",
			"Coordinate with ED/FIU",
			"Consider search operations",
		}
	case "HIGH":
		return []string{
			"Priority field verification",
			"Request bank statements",
			"Cross-verify with GST",
		}
	case "MEDIUM":
		return []string{
			"Schedule verification visit",
			"Request supporting documents",
		}
	case "LOW":
		return []string{
			"Standard monitoring",
			"Periodic review",
		}
	default:
		return nil
	}
}

// IsZero returns true if the RiskTier has not been set.
func (r RiskTier) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RiskTier.
func (r RiskTier) Equal(other RiskTier) bool {
	return r.value == other.value
}

// AtLeast reports whether r is as severe as other. The zero tier is below Low.
func (r RiskTier) AtLeast(other RiskTier) bool {
	return r.rank() >= other.rank()
}

func (r RiskTier) rank() int {
	switch r.value {
	case "LOW":
		return 1
	case "MEDIUM":
		return 2
	case "HIGH":
		return 3
	case "CRITICAL":
		return 4
	default:
		return 0
	}
}
