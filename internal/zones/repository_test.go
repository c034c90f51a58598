package zones

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

func newZonesDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DeliveryZone{}))
	return db
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newZonesDB(t))

	_, err := repo.Save(ctx, standardZone)
	require.NoError(t, err)
	_, err = repo.Save(ctx, premiumZone)
	require.NoError(t, err)

	got, err := repo.Zones(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bay Standard", got[0].Name)
	assert.Equal(t, []string{"9410*"}, got[0].PostalPatterns)
	assert.Equal(t, []enums.ZoneRestriction{enums.ZoneRestrictionSizeLimited}, got[0].Restrictions)
	assert.Equal(t, enums.ZoneTierPremium, got[1].Tier)
	assert.Equal(t, premiumZone.ID, got[1].ID)
}

func TestRepositorySkipsInactiveZones(t *testing.T) {
	ctx := context.Background()
	db := newZonesDB(t)
	repo := NewRepository(db)

	_, err := repo.Save(ctx, premiumZone)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.DeliveryZone{}).Where("id = ?", premiumZone.ID).Update("active", false).Error)

	got, err := repo.Zones(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepositoryRejectsUnknownTier(t *testing.T) {
	ctx := context.Background()
	db := newZonesDB(t)
	require.NoError(t, db.Create(&models.DeliveryZone{
		Name:           "Mystery",
		PostalPatterns: []string{"10001"},
		Tier:           enums.ZoneTier("gold"),
		Active:         true,
	}).Error)

	_, err := NewRepository(db).Zones(ctx)
	require.Error(t, err)
}

func TestResolverOverRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newZonesDB(t))
	for _, z := range []DeliveryZone{premiumZone, standardZone, economyZone} {
		_, err := repo.Save(ctx, z)
		require.NoError(t, err)
	}

	resolver, err := NewResolver(NewCachedCatalog(repo, time.Minute), nil)
	require.NoError(t, err)

	res, err := resolver.Resolve(ctx, "94450", 6000)
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, economyZone.ID, res.Matched[0].Zone.ID)
}

func TestCachedCatalogRefreshesAfterTTL(t *testing.T) {
	calls := 0
	source := catalogFunc(func(context.Context) ([]DeliveryZone, error) {
		calls++
		return []DeliveryZone{premiumZone}, nil
	})
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	cache := NewCachedCatalog(source, time.Minute)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = cache.Zones(ctx)
	_, _ = cache.Zones(ctx)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	_, _ = cache.Zones(ctx)
	assert.Equal(t, 2, calls)

	cache.Invalidate()
	_, _ = cache.Zones(ctx)
	assert.Equal(t, 3, calls)
}
