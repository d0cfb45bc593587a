package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sliceline-client/pkg/db/models"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
)

func newTestRepo(t *testing.T) (*Repo, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CartRecord{}))
	return NewRepoFromGorm(conn, nil), conn
}

func testLines() models.CartLines {
	return models.CartLines{
		{
			PizzaID:   "pz-margherita",
			Size:      enums.SizeVariantMedium,
			Toppings:  []string{"olives"},
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("12.50"),
		},
	}
}

func TestRepoLoadMissingOwnerReturnsEmpty(t *testing.T) {
	repo, _ := newTestRepo(t)

	lines, err := repo.Load(context.Background(), "user-unknown")
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestRepoSaveThenLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, "user-alice", testLines()))

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "pz-margherita", loaded[0].PizzaID)
	assert.Equal(t, 2, loaded[0].Quantity)
	assert.True(t, loaded[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
}

func TestRepoSaveUpsertsExistingRecord(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, "user-alice", testLines()))

	updated := testLines()
	updated[0].Quantity = 5
	require.NoError(t, repo.Save(ctx, "user-alice", updated))

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 5, loaded[0].Quantity)

	var count int64
	require.NoError(t, conn.Model(&models.CartRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepoOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, "user-alice", testLines()))
	require.NoError(t, repo.Save(ctx, "user-bob", nil))

	aliceLines, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	assert.Len(t, aliceLines, 1)

	bobLines, err := repo.Load(ctx, "user-bob")
	require.NoError(t, err)
	assert.Nil(t, bobLines)
}

func TestRepoClearDeletesRecord(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, "user-alice", testLines()))
	require.NoError(t, repo.Clear(ctx, "user-alice"))

	var count int64
	require.NoError(t, conn.Model(&models.CartRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Clearing an absent record is a no-op, not an error.
	require.NoError(t, repo.Clear(ctx, "user-alice"))
}

func TestRepoLoadDropsMalformedLines(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	mixed := models.CartLines{
		testLines()[0],
		{PizzaID: "", Quantity: 1, Size: enums.SizeVariantSmall},
		{PizzaID: "pz-veggie", Quantity: 0, Size: enums.SizeVariantSmall},
	}
	require.NoError(t, conn.Create(&models.CartRecord{OwnerID: "user-alice", Items: mixed}).Error)

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "pz-margherita", loaded[0].PizzaID)
}

func TestRepoLoadTreatsCorruptRowAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	require.NoError(t, conn.Exec(
		`INSERT INTO cart_records (owner_id, items) VALUES (?, ?)`,
		"user-alice", `{"not valid json`,
	).Error)

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
