package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a postal address. It is stored as a JSON document.
type Address struct {
	Line1      string   `json:"line1" validate:"required"`
	Line2      *string  `json:"line2,omitempty"`
	City       string   `json:"city" validate:"required"`
	State      string   `json:"state" validate:"required"`
	PostalCode string   `json:"postal_code" validate:"required"`
	Country    string   `json:"country"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	return nil
}

// WithDefaults fills the country when it was omitted.
func (a Address) WithDefaults() Address {
	if strings.TrimSpace(a.Country) == "" {
		a.Country = "US"
	}
	return a
}

// Value marshals Address into JSON.
func (a Address) Value() (driver.Value, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(a.WithDefaults())
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSON document.
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("address: unsupported scan type %T", value)
	}
	var out Address
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("address: decode: %w", err)
	}
	*a = out
	return nil
}
