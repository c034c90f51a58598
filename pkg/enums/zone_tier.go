package enums

import "fmt"

// ZoneTier orders delivery zones when several cover the same postal code.
type ZoneTier string

const (
	ZoneTierPremium  ZoneTier = "premium"
	ZoneTierStandard ZoneTier = "standard"
	ZoneTierEconomy  ZoneTier = "economy"
)

var validZoneTiers = []ZoneTier{
	ZoneTierPremium,
	ZoneTierStandard,
	ZoneTierEconomy,
}

// String implements fmt.Stringer.
func (t ZoneTier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ZoneTier.
func (t ZoneTier) IsValid() bool {
	return t.Rank() >= 0
}

// Rank returns the display priority of the tier (premium first), or -1 when unknown.
func (t ZoneTier) Rank() int {
	for i, candidate := range validZoneTiers {
		if candidate == t {
			return i
		}
	}
	return -1
}

// ParseZoneTier converts raw input into a ZoneTier.
func ParseZoneTier(value string) (ZoneTier, error) {
	for _, candidate := range validZoneTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid zone tier %q", value)
}
