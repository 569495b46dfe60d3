package cart

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/outbox"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

type fakeDB struct {
	err   error
	calls int
}

func (f *fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeRepo struct {
	loaded  []models.CartLine
	loadErr error
	saved   [][]models.CartLine
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) LoadAll(ctx context.Context) ([]models.CartLine, error) {
	return f.loaded, f.loadErr
}

func (f *fakeRepo) ReplaceAll(ctx context.Context, lines []models.CartLine) error {
	f.saved = append(f.saved, lines)
	return nil
}

type fakeEmitter struct {
	intents []outbox.Intent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error {
	f.intents = append(f.intents, intent)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeDB, *fakeRepo, *fakeEmitter) {
	t.Helper()
	db := &fakeDB{}
	repo := &fakeRepo{}
	emitter := &fakeEmitter{}
	svc, err := NewService(ServiceParams{
		DB:     db,
		Repo:   repo,
		Outbox: emitter,
		Logger: logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, db, repo, emitter
}

func line(id int64, price string) Line {
	return Line{ProductID: id, Title: "item", Price: decimal.RequireFromString(price)}
}

func TestAddItemMergesQuantities(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, line(7, "10.00"), 2))
	require.NoError(t, svc.AddItem(ctx, line(7, "10.00"), 3))

	items := svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.AddItem(ctx, line(7, "10.00"), 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.AddItem(ctx, line(0, "10.00"), 1)
	require.Error(t, err)

	err = svc.AddItem(ctx, Line{ProductID: 3, Price: decimal.RequireFromString("-1")}, 1)
	require.Error(t, err)

	assert.Zero(t, db.calls, "rejected mutations must not touch the store")
	assert.Empty(t, svc.Items())
}

func TestRemoveItemAbsentIsNoop(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RemoveItem(ctx, 99))
	assert.Zero(t, db.calls)

	require.NoError(t, svc.AddItem(ctx, line(1, "4.00"), 1))
	require.NoError(t, svc.RemoveItem(ctx, 1))
	assert.Empty(t, svc.Items())
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, line(4, "2.50"), 2))
	require.NoError(t, svc.SetQuantity(ctx, 4, 0))
	assert.Empty(t, svc.Items())

	require.NoError(t, svc.AddItem(ctx, line(4, "2.50"), 2))
	require.NoError(t, svc.SetQuantity(ctx, 4, 7))
	items := svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)

	// no line ever leaves a non-positive quantity behind
	for _, it := range items {
		assert.Positive(t, it.Quantity)
	}
}

func TestTotalsFoldAllLines(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, line(1, "10.00"), 2))
	require.NoError(t, svc.AddItem(ctx, line(2, "5.00"), 1))

	totals := svc.Totals()
	assert.Equal(t, 3, totals.ItemCount)
	assert.True(t, totals.TotalPrice.Equal(decimal.RequireFromString("25.00")),
		"got %s", totals.TotalPrice)
}

func TestMutationsEmitSyncIntents(t *testing.T) {
	svc, _, repo, emitter := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, line(1, "1.00"), 1))
	require.NoError(t, svc.Clear(ctx))

	require.Len(t, emitter.intents, 2)
	assert.Equal(t, enums.IntentCartPush, emitter.intents[0].IntentType)
	assert.Equal(t, enums.IntentCartClear, emitter.intents[1].IntentType)

	require.Len(t, repo.saved, 2)
	assert.Len(t, repo.saved[0], 1)
	assert.Empty(t, repo.saved[1])
}

func TestPersistenceFailureDoesNotSurface(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	db.err = errors.New("disk full")
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, line(1, "1.00"), 1))
	require.Len(t, svc.Items(), 1, "in-memory cart stays authoritative")
}

func TestAdoptRemoteReplacesCartWithoutSyncIntent(t *testing.T) {
	svc, _, repo, emitter := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, line(1, "4.00"), 2))

	svc.AdoptRemote(ctx, []storeapi.CartItem{
		{ID: 7, Title: "lamp", Price: decimal.RequireFromString("12.00"), Quantity: 3},
		{ID: 0, Title: "bogus", Price: decimal.RequireFromString("1.00"), Quantity: 1},
		{ID: 9, Title: "stale", Price: decimal.RequireFromString("2.00"), Quantity: 0},
	})

	items := svc.Items()
	require.Len(t, items, 1, "invalid remote rows are dropped")
	assert.Equal(t, int64(7), items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)

	require.Len(t, repo.saved, 2, "adopted snapshot is persisted")
	require.Len(t, repo.saved[1], 1)
	assert.Equal(t, int64(7), repo.saved[1][0].ProductID)

	// the remote already holds this state; only the AddItem emitted
	require.Len(t, emitter.intents, 1)
	assert.Equal(t, enums.IntentCartPush, emitter.intents[0].IntentType)
}

func TestLoadHydratesAndDropsCorruptRows(t *testing.T) {
	svc, _, repo, _ := newTestService(t)
	repo.loaded = []models.CartLine{
		{ProductID: 1, Title: "good", Price: decimal.RequireFromString("3.00"), Quantity: 2},
		{ProductID: 2, Title: "bad", Price: decimal.RequireFromString("1.00"), Quantity: 0},
	}

	svc.Load(context.Background())

	items := svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ProductID)
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	svc, _, repo, _ := newTestService(t)
	repo.loadErr = errors.New("corrupt store")

	svc.Load(context.Background())
	assert.Empty(t, svc.Items())
}
