package enums

import "fmt"

// ZoneRestriction limits what a delivery zone can carry.
type ZoneRestriction string

const (
	ZoneRestrictionSizeLimited   ZoneRestriction = "size_limited"
	ZoneRestrictionNoPerishables ZoneRestriction = "no_perishables"
	ZoneRestrictionNoAlcohol     ZoneRestriction = "no_alcohol"
	ZoneRestrictionWeekdaysOnly  ZoneRestriction = "weekdays_only"
)

var zoneRestrictionDescriptions = map[ZoneRestriction]string{
	ZoneRestrictionSizeLimited:   "Large items not eligible for this zone",
	ZoneRestrictionNoPerishables: "Perishable items not eligible for this zone",
	ZoneRestrictionNoAlcohol:     "Alcohol cannot be delivered to this zone",
	ZoneRestrictionWeekdaysOnly:  "Deliveries run on weekdays only",
}

// String implements fmt.Stringer.
func (r ZoneRestriction) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ZoneRestriction.
func (r ZoneRestriction) IsValid() bool {
	_, ok := zoneRestrictionDescriptions[r]
	return ok
}

// Description returns the buyer-facing text for the restriction.
func (r ZoneRestriction) Description() string {
	if desc, ok := zoneRestrictionDescriptions[r]; ok {
		return desc
	}
	return string(r)
}

// ParseZoneRestriction converts raw input into a ZoneRestriction.
func ParseZoneRestriction(value string) (ZoneRestriction, error) {
	r := ZoneRestriction(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid zone restriction %q", value)
	}
	return r, nil
}
