package main

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/db/models"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/outbox"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

type txAdapter struct {
	db *gorm.DB
}

func (a *txAdapter) Ping(ctx context.Context) error { return nil }

func (a *txAdapter) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return a.db.WithContext(ctx).Transaction(fn)
}

type fakePusher struct {
	err   error
	calls int
	last  []storeapi.CartItem
}

func (f *fakePusher) PutCart(ctx context.Context, token string, items []storeapi.CartItem) error {
	f.calls++
	f.last = items
	return f.err
}

type staticTokens struct{ token string }

func (s staticTokens) Token(ctx context.Context) string { return s.token }

func setupWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SyncIntent{}, &models.SyncIntentDLQ{}))
	return db
}

func newWorker(t *testing.T, db *gorm.DB, pusher *fakePusher, token string) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: config.OutboxConfig{BatchSize: 50, PollIntervalMS: 10, MaxAttempts: 3}},
		Logger:     logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}),
		DB:         &txAdapter{db: db},
		Repository: outbox.NewRepository(db),
		DLQ:        outbox.NewDLQRepository(db),
		Store:      pusher,
		Tokens:     staticTokens{token: token},
	})
	require.NoError(t, err)
	return svc
}

func seedIntent(t *testing.T, db *gorm.DB, intentType enums.SyncIntentType, items []storeapi.CartItem, createdAt time.Time) uuid.UUID {
	t.Helper()

	data, err := json.Marshal(map[string]any{"items": items})
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.IntentEnvelope{
		Version:    1,
		IntentID:   uuid.NewString(),
		OccurredAt: createdAt,
		Data:       data,
	})
	require.NoError(t, err)

	intent := models.SyncIntent{
		ID:         uuid.New(),
		IntentType: intentType,
		Payload:    payload,
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.Create(&intent).Error)
	return intent.ID
}

func workerItems(qty int) []storeapi.CartItem {
	return []storeapi.CartItem{
		{ID: 1, Title: "mug", Price: decimal.RequireFromString("9.99"), Quantity: qty},
	}
}

func pendingCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	count, err := outbox.NewRepository(db).CountPending()
	require.NoError(t, err)
	return count
}

func TestProcessBatchPushesNewestSnapshot(t *testing.T) {
	db := setupWorkerDB(t)
	base := time.Now().Add(-time.Minute)
	seedIntent(t, db, enums.IntentCartPush, workerItems(1), base)
	seedIntent(t, db, enums.IntentCartPush, workerItems(2), base.Add(time.Second))
	seedIntent(t, db, enums.IntentCartPush, workerItems(5), base.Add(2*time.Second))

	pusher := &fakePusher{}
	svc := newWorker(t, db, pusher, "tok")

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, 1, pusher.calls, "only the newest snapshot hits the network")
	require.Len(t, pusher.last, 1)
	assert.Equal(t, 5, pusher.last[0].Quantity)
	assert.Zero(t, pendingCount(t, db), "superseded intents are marked pushed too")
}

func TestProcessBatchWaitsWithoutSession(t *testing.T) {
	db := setupWorkerDB(t)
	seedIntent(t, db, enums.IntentCartPush, workerItems(1), time.Now())

	pusher := &fakePusher{}
	svc := newWorker(t, db, pusher, "")

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Zero(t, pusher.calls)
	assert.Equal(t, int64(1), pendingCount(t, db), "intents stay pending until sign-in")
}

func TestProcessBatchRecordsRetryableFailure(t *testing.T) {
	db := setupWorkerDB(t)
	id := seedIntent(t, db, enums.IntentCartPush, workerItems(1), time.Now())

	pusher := &fakePusher{err: pkgerrors.New(pkgerrors.CodeDependency, "store unavailable")}
	svc := newWorker(t, db, pusher, "tok")

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	var intent models.SyncIntent
	require.NoError(t, db.First(&intent, "id = ?", id).Error)
	assert.Nil(t, intent.PublishedAt)
	assert.Equal(t, 1, intent.AttemptCount)
	require.NotNil(t, intent.LastError)
	assert.Contains(t, *intent.LastError, "store unavailable")
}

func TestProcessBatchDeadLettersNonRetryable(t *testing.T) {
	db := setupWorkerDB(t)
	id := seedIntent(t, db, enums.IntentCartPush, workerItems(1), time.Now())

	pusher := &fakePusher{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "token rejected")}
	svc := newWorker(t, db, pusher, "tok")

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	dlq, err := outbox.NewDLQRepository(db).FindByIntentID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, dlq)
	assert.Equal(t, enums.SyncDLQReasonNonRetryable, dlq.ErrorReason)
	assert.Zero(t, pendingCount(t, db))
}

func TestProcessBatchDeadLettersAfterMaxAttempts(t *testing.T) {
	db := setupWorkerDB(t)
	id := seedIntent(t, db, enums.IntentCartPush, workerItems(1), time.Now())
	require.NoError(t, db.Model(&models.SyncIntent{}).
		Where("id = ?", id).
		Update("attempt_count", 2).Error)

	pusher := &fakePusher{err: pkgerrors.New(pkgerrors.CodeDependency, "store unavailable")}
	svc := newWorker(t, db, pusher, "tok")

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	dlq, err := outbox.NewDLQRepository(db).FindByIntentID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, dlq)
	assert.Equal(t, enums.SyncDLQReasonMaxAttempts, dlq.ErrorReason)
	assert.Zero(t, pendingCount(t, db))
}

func TestDeadLetterCoversSupersededIntents(t *testing.T) {
	db := setupWorkerDB(t)
	base := time.Now().Add(-time.Minute)
	seedIntent(t, db, enums.IntentCartPush, workerItems(1), base)
	newestID := seedIntent(t, db, enums.IntentCartPush, workerItems(5), base.Add(time.Second))

	pusher := &fakePusher{err: pkgerrors.New(pkgerrors.CodeValidation, "payload rejected")}
	svc := newWorker(t, db, pusher, "tok")

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	dlq, err := outbox.NewDLQRepository(db).FindByIntentID(context.Background(), newestID)
	require.NoError(t, err)
	require.NotNil(t, dlq)
	assert.Zero(t, pendingCount(t, db), "older intents are covered by the dead-lettered snapshot")

	// once the pusher recovers, nothing stale may replay
	pusher.err = nil
	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Equal(t, 1, pusher.calls)
	if len(pusher.last) > 0 {
		assert.NotEqual(t, 1, pusher.last[0].Quantity)
	}
}

func TestProcessBatchClearIntentPushesEmptyCart(t *testing.T) {
	db := setupWorkerDB(t)
	seedIntent(t, db, enums.IntentCartClear, nil, time.Now())

	pusher := &fakePusher{}
	svc := newWorker(t, db, pusher, "tok")

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	require.NotNil(t, pusher.last)
	assert.Empty(t, pusher.last)
}

func TestProcessBatchNoPending(t *testing.T) {
	db := setupWorkerDB(t)
	pusher := &fakePusher{}
	svc := newWorker(t, db, pusher, "tok")

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Zero(t, pusher.calls)
}
