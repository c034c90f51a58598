package maps

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

const (
	autocompleteFieldMask = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	placeResolveFieldMask = "id,formattedAddress,location,addressComponents"
)

var addressPrimaryTypes = []string{"street_address", "premise", "subpremise"}

// AutocompleteRequest is the body of places:autocomplete. A SessionToken
// groups keystrokes with the resolve call that ends them for billing.
type AutocompleteRequest struct {
	Input                string   `json:"input"`
	IncludedRegionCodes  []string `json:"includedRegionCodes,omitempty"`
	IncludedPrimaryTypes []string `json:"includedPrimaryTypes,omitempty"`
	LanguageCode         string   `json:"languageCode,omitempty"`
	SessionToken         string   `json:"sessionToken,omitempty"`
}

type AutocompleteSuggestion struct {
	PlaceID     string
	Description string
}

// PlaceDetails is a resolved place.
type PlaceDetails struct {
	PlaceID           string
	FormattedAddress  string
	Location          LatLng
	AddressComponents []AddressComponent
}

type LatLng struct {
	Latitude  float64
	Longitude float64
}

type AddressComponent struct {
	LongName  string
	ShortName string
	Types     []string
}

type autocompleteResponse struct {
	Suggestions []struct {
		Prediction struct {
			PlaceID string `json:"placeId"`
			Text    struct {
				Text string `json:"text"`
			} `json:"text"`
		} `json:"placePrediction"`
	} `json:"suggestions"`
}

type placeResponse struct {
	ID               string `json:"id"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	AddressComponents []struct {
		LongText  string   `json:"longText"`
		ShortText string   `json:"shortText"`
		Types     []string `json:"types"`
	} `json:"addressComponents"`
}

// Autocomplete returns address suggestions for partial input. Client
// defaults fill the region and type filters the request leaves empty.
func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]AutocompleteSuggestion, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}
	if c != nil {
		if len(req.IncludedRegionCodes) == 0 {
			req.IncludedRegionCodes = append([]string(nil), c.regionCodes...)
		}
		if len(req.IncludedPrimaryTypes) == 0 {
			req.IncludedPrimaryTypes = append([]string(nil), c.primaryTypes...)
		}
	}

	var resp autocompleteResponse
	if err := c.call(ctx, "autocomplete", http.MethodPost, "places:autocomplete", autocompleteFieldMask, req, &resp); err != nil {
		return nil, err
	}

	out := make([]AutocompleteSuggestion, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		if s.Prediction.PlaceID == "" {
			continue
		}
		out = append(out, AutocompleteSuggestion{
			PlaceID:     s.Prediction.PlaceID,
			Description: s.Prediction.Text.Text,
		})
	}
	return out, nil
}

// ResolvePlace fetches the address components and coordinates of placeID.
func (c *Client) ResolvePlace(ctx context.Context, placeID string) (*PlaceDetails, error) {
	id := strings.TrimSpace(placeID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place ID is required")
	}

	var resp placeResponse
	if err := c.call(ctx, "place resolve", http.MethodGet, "places/"+url.PathEscape(id), placeResolveFieldMask, nil, &resp); err != nil {
		return nil, err
	}

	details := &PlaceDetails{
		PlaceID:          resp.ID,
		FormattedAddress: resp.FormattedAddress,
		Location:         LatLng{Latitude: resp.Location.Latitude, Longitude: resp.Location.Longitude},
	}
	for _, comp := range resp.AddressComponents {
		details.AddressComponents = append(details.AddressComponents, AddressComponent{
			LongName:  comp.LongText,
			ShortName: comp.ShortText,
			Types:     comp.Types,
		})
	}
	return details, nil
}

// Component returns the long name of the first component of the given kind.
func (d *PlaceDetails) Component(kind string) (string, bool) {
	comp, ok := d.find(kind)
	if !ok || comp.LongName == "" {
		return "", false
	}
	return comp.LongName, true
}

// ShortComponent prefers the short form ("CA", "US") and falls back to the
// long name.
func (d *PlaceDetails) ShortComponent(kind string) (string, bool) {
	comp, ok := d.find(kind)
	if !ok {
		return "", false
	}
	if comp.ShortName != "" {
		return comp.ShortName, true
	}
	return comp.LongName, comp.LongName != ""
}

func (d *PlaceDetails) find(kind string) (AddressComponent, bool) {
	if d == nil {
		return AddressComponent{}, false
	}
	for _, comp := range d.AddressComponents {
		for _, typ := range comp.Types {
			if typ == kind {
				return comp, true
			}
		}
	}
	return AddressComponent{}, false
}
