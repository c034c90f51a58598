package addressbook

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/maps"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type stubPlaces struct {
	details     *maps.PlaceDetails
	suggestions []maps.AutocompleteSuggestion
	lastReq     maps.AutocompleteRequest
}

func (s *stubPlaces) Autocomplete(_ context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	s.lastReq = req
	return s.suggestions, nil
}

func (s *stubPlaces) ResolvePlace(context.Context, string) (*maps.PlaceDetails, error) {
	return s.details, nil
}

func howardStreet() *maps.PlaceDetails {
	return &maps.PlaceDetails{
		PlaceID:          "place-howard",
		FormattedAddress: "500 Howard St, San Francisco, CA 94105, USA",
		Location:         maps.LatLng{Latitude: 37.788, Longitude: -122.396},
		AddressComponents: []maps.AddressComponent{
			{LongName: "500", Types: []string{"street_number"}},
			{LongName: "Howard Street", ShortName: "Howard St", Types: []string{"route"}},
			{LongName: "Suite 300", Types: []string{"subpremise"}},
			{LongName: "San Francisco", Types: []string{"locality"}},
			{LongName: "California", ShortName: "CA", Types: []string{"administrative_area_level_1"}},
			{LongName: "94105", Types: []string{"postal_code"}},
			{LongName: "United States", ShortName: "US", Types: []string{"country"}},
		},
	}
}

func newService(t *testing.T, places Places) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SavedAddress{}))
	svc, err := NewService(NewRepository(db), places, nil)
	require.NoError(t, err)
	return svc
}

func TestMapPlaceDetails(t *testing.T) {
	result, err := mapPlaceDetails(howardStreet())
	require.NoError(t, err)
	assert.Equal(t, "500 Howard Street", result.Line1)
	require.NotNil(t, result.Line2)
	assert.Equal(t, "Suite 300", *result.Line2)
	assert.Equal(t, "San Francisco", result.City)
	assert.Equal(t, "CA", result.State)
	assert.Equal(t, "94105", result.PostalCode)
	assert.Equal(t, "US", result.Country)
	require.NotNil(t, result.Lat)
	assert.Equal(t, 37.788, *result.Lat)
}

func TestMapPlaceDetailsMissingCity(t *testing.T) {
	details := howardStreet()
	details.AddressComponents = details.AddressComponents[:3]
	_, err := mapPlaceDetails(details)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestAddTypedAddress(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	customerID := uuid.New()

	saved, err := svc.Add(ctx, customerID, AddInput{
		Label: "Home",
		Address: &types.Address{
			Line1:      "1 Market St",
			City:       "San Francisco",
			State:      "CA",
			PostalCode: "94103",
		},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, "US", saved.Address.Country)

	list, err := svc.List(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Home", list[0].Label)

	got, err := svc.Get(ctx, customerID, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "94103", got.Address.PostalCode)

	_, err = svc.Get(ctx, uuid.New(), saved.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestAddResolvesPlaceID(t *testing.T) {
	svc := newService(t, &stubPlaces{details: howardStreet()})
	saved, err := svc.Add(context.Background(), uuid.New(), AddInput{PlaceID: "place-howard"})
	require.NoError(t, err)
	assert.Equal(t, "500 Howard Street", saved.Address.Line1)
	require.NotNil(t, saved.PlaceID)
	assert.Equal(t, "place-howard", *saved.PlaceID)
	require.NotNil(t, saved.Address.Lat)
}

func TestAddValidation(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, uuid.New(), AddInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, uuid.New(), AddInput{Address: &types.Address{Line1: "1 Market St"}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, uuid.Nil, AddInput{Address: &types.Address{Line1: "x", City: "y", State: "CA", PostalCode: "94103"}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, uuid.New(), AddInput{PlaceID: "p"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestSuggest(t *testing.T) {
	places := &stubPlaces{suggestions: []maps.AutocompleteSuggestion{{PlaceID: "p1", Description: "500 Howard St"}}}
	svc := newService(t, places)

	got, err := svc.Suggest(context.Background(), SuggestRequest{Query: "500 How", Country: "us"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlaceID)
	assert.Equal(t, []string{"US"}, places.lastReq.IncludedRegionCodes)

	_, err = svc.Suggest(context.Background(), SuggestRequest{Query: " "})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
