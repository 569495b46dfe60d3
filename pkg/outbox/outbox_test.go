package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
	"github.com/angelmondragon/storefront-client/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SyncIntent{}, &models.SyncIntentDLQ{}))
	return db
}

func emitIntent(t *testing.T, db *gorm.DB, svc *Service, qty int) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, Intent{
			IntentType: enums.IntentCartPush,
			Data:       map[string]any{"quantity": qty},
		})
	}))
}

func TestEmitInsertsPendingIntent(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitIntent(t, db, svc, 2)

	rows, err := repo.FetchPendingForPush(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.IntentCartPush, rows[0].IntentType)
	assert.Nil(t, rows[0].PublishedAt)
	assert.Contains(t, string(rows[0].Payload), "\"intentId\"")
}

func TestEmitRequiresTransactionAndType(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), nil, Intent{IntentType: enums.IntentCartPush})
	require.Error(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, Intent{})
	})
	require.Error(t, err)
}

func TestFetchPendingSkipsExhaustedAndPushed(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitIntent(t, db, svc, 1)
	emitIntent(t, db, svc, 2)
	emitIntent(t, db, svc, 3)

	rows, err := repo.FetchPendingForPush(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPushedTx(db, rows[0].ID))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.MarkFailedTx(db, rows[1].ID, errors.New("remote down")))
	}

	remaining, err := repo.FetchPendingForPush(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, rows[2].ID, remaining[0].ID)

	count, err := repo.CountPending()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMarkTerminalLeavesPendingSetForGood(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitIntent(t, db, svc, 1)
	rows, err := repo.FetchPendingForPush(db, 1, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, repo.MarkTerminalTx(db, rows[0].ID, errors.New("token rejected"), 3))

	count, err := repo.CountPending()
	require.NoError(t, err)
	assert.Zero(t, count)

	// a later raise of the attempt budget must not resurrect the intent
	remaining, err := repo.FetchPendingForPush(db, 10, 1000)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	var row models.SyncIntent
	require.NoError(t, db.First(&row, "id = ?", rows[0].ID).Error)
	assert.NotNil(t, row.PublishedAt)
	assert.Equal(t, 3, row.AttemptCount)
}

func TestMarkFailedIncrementsAttemptsAndStoresError(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitIntent(t, db, svc, 1)
	rows, err := repo.FetchPendingForPush(db, 1, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, repo.MarkFailedTx(db, rows[0].ID, errors.New("connection refused")))

	var row models.SyncIntent
	require.NoError(t, db.First(&row, "id = ?", rows[0].ID).Error)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "connection refused", *row.LastError)
}

func TestDLQInsertTruncatesLongErrors(t *testing.T) {
	db := setupOutboxTestDB(t)
	dlq := NewDLQRepository(db)

	long := make([]byte, maxDLQErrorLen*2)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	intentID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.SyncIntentDLQ{
			IntentID:     intentID,
			IntentType:   enums.IntentCartPush,
			Payload:      []byte(`{}`),
			ErrorReason:  enums.SyncDLQReasonMaxAttempts,
			ErrorMessage: &msg,
			AttemptCount: 10,
		})
	}))

	found, err := dlq.FindByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
}
