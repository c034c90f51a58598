package addressbook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/maps"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Places is the subset of the Google Places client used here.
type Places interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

type store interface {
	List(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error)
	Get(ctx context.Context, customerID, id uuid.UUID) (SavedAddress, error)
	Create(ctx context.Context, entry SavedAddress) (SavedAddress, error)
}

// Book supplies saved addresses and accepts new ones.
type Book interface {
	List(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error)
	Get(ctx context.Context, customerID, id uuid.UUID) (SavedAddress, error)
	Add(ctx context.Context, customerID uuid.UUID, input AddInput) (SavedAddress, error)
}

// AddInput carries either a typed address or a place id to resolve.
type AddInput struct {
	Label   string
	Address *types.Address
	PlaceID string
}

type SuggestRequest struct {
	Query    string
	Country  string
	Language string
}

type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Service is the address book. Places may be nil, in which case Suggest,
// Resolve and place-id additions report a dependency error.
type Service struct {
	store  store
	places Places
	logg   *logger.Logger
}

func NewService(repo *Repository, places Places, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "address repository required")
	}
	return &Service{store: repo, places: places, logg: logg}, nil
}

func (s *Service) List(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error) {
	return s.store.List(ctx, customerID)
}

func (s *Service) Get(ctx context.Context, customerID, id uuid.UUID) (SavedAddress, error) {
	return s.store.Get(ctx, customerID, id)
}

// Add validates and saves an address. A place id without an address is
// resolved through Places first.
func (s *Service) Add(ctx context.Context, customerID uuid.UUID, input AddInput) (SavedAddress, error) {
	if customerID == uuid.Nil {
		return SavedAddress{}, errors.New(errors.CodeValidation, "customer id is required")
	}
	placeID := strings.TrimSpace(input.PlaceID)

	var addr types.Address
	switch {
	case input.Address != nil:
		addr = *input.Address
	case placeID != "":
		resolved, err := s.Resolve(ctx, placeID)
		if err != nil {
			return SavedAddress{}, err
		}
		addr = resolved
	default:
		return SavedAddress{}, errors.New(errors.CodeValidation, "address or place_id is required")
	}

	addr = addr.WithDefaults()
	if err := addr.Validate(); err != nil {
		return SavedAddress{}, errors.Wrap(errors.CodeValidation, err, err.Error())
	}

	entry := SavedAddress{
		CustomerID: customerID,
		Label:      strings.TrimSpace(input.Label),
		Address:    addr,
	}
	if placeID != "" {
		entry.PlaceID = &placeID
	}
	saved, err := s.store.Create(ctx, entry)
	if err != nil {
		return SavedAddress{}, errors.Wrap(errors.CodeDependency, err, "save address")
	}
	saved.Address.Lat, saved.Address.Lng = addr.Lat, addr.Lng
	s.logg.Debug(s.logg.WithCustomerID(ctx, customerID.String()), "address saved")
	return saved, nil
}

func (s *Service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if s.places == nil {
		return nil, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.CodeValidation, "query is required")
	}

	payload := maps.AutocompleteRequest{
		Input: req.Query,
	}
	if country := strings.TrimSpace(req.Country); country != "" {
		payload.IncludedRegionCodes = []string{strings.ToUpper(country)}
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		payload.LanguageCode = lang
	}

	resp, err := s.places.Autocomplete(ctx, payload)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(resp))
	for _, item := range resp {
		suggestions = append(suggestions, Suggestion{
			PlaceID:     item.PlaceID,
			Description: item.Description,
		})
	}
	return suggestions, nil
}

func (s *Service) Resolve(ctx context.Context, placeID string) (types.Address, error) {
	if s.places == nil {
		return types.Address{}, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(placeID) == "" {
		return types.Address{}, errors.New(errors.CodeValidation, "place_id is required")
	}

	details, err := s.places.ResolvePlace(ctx, placeID)
	if err != nil {
		return types.Address{}, err
	}
	return mapPlaceDetails(details)
}

func mapPlaceDetails(details *maps.PlaceDetails) (types.Address, error) {
	if details == nil {
		return types.Address{}, errors.New(errors.CodeDependency, "place details missing")
	}

	line1 := ""
	if number, ok := details.Component("street_number"); ok {
		line1 = number
	}
	if route, ok := details.Component("route"); ok {
		if line1 != "" {
			line1 = fmt.Sprintf("%s %s", line1, route)
		} else {
			line1 = route
		}
	}
	if line1 == "" && strings.TrimSpace(details.FormattedAddress) != "" {
		parts := strings.Split(details.FormattedAddress, ",")
		line1 = strings.TrimSpace(parts[0])
	}
	if line1 == "" {
		return types.Address{}, errors.New(errors.CodeDependency, "address line1 missing")
	}

	var line2 *string
	if sub, ok := details.Component("subpremise"); ok {
		line2 = &sub
	}

	city, ok := details.Component("locality")
	if !ok {
		if town, ok2 := details.Component("postal_town"); ok2 {
			city = town
		} else if admin2, ok3 := details.Component("administrative_area_level_2"); ok3 {
			city = admin2
		}
	}
	if city == "" {
		return types.Address{}, errors.New(errors.CodeDependency, "city missing")
	}

	state, ok := details.ShortComponent("administrative_area_level_1")
	if !ok {
		return types.Address{}, errors.New(errors.CodeDependency, "state missing")
	}

	postalCode, ok := details.Component("postal_code")
	if !ok {
		return types.Address{}, errors.New(errors.CodeDependency, "postal code missing")
	}

	country, ok := details.ShortComponent("country")
	if !ok {
		country = "US"
	}

	addr := types.Address{
		Line1:      line1,
		Line2:      line2,
		City:       city,
		State:      state,
		PostalCode: postalCode,
		Country:    country,
	}
	if details.Location.Latitude != 0 || details.Location.Longitude != 0 {
		lat, lng := details.Location.Latitude, details.Location.Longitude
		addr.Lat, addr.Lng = &lat, &lng
	}
	return addr, nil
}
