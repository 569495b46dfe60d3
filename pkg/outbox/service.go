package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

// Intent describes a sync action to record durably alongside the local write.
type Intent struct {
	IntentType enums.SyncIntentType
	UserID     string
	Data       interface{}
	Version    int
	OccurredAt time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit appends the intent inside the caller's transaction so cart write and
// sync intent commit or roll back together.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, intent Intent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !intent.IntentType.IsValid() {
		return errors.New("intent type is required")
	}
	payload, err := json.Marshal(intent.Data)
	if err != nil {
		return err
	}
	if intent.OccurredAt.IsZero() {
		intent.OccurredAt = time.Now()
	}
	envelope := IntentEnvelope{
		Version:    intent.Version,
		IntentID:   uuid.NewString(),
		OccurredAt: intent.OccurredAt,
		UserID:     intent.UserID,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := models.SyncIntent{
		ID:         uuid.New(),
		IntentType: intent.IntentType,
		Payload:    json.RawMessage(payloadJSON),
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithIntentID(ctx, envelope.IntentID)
		logCtx = s.logg.WithField(logCtx, "intent_type", string(intent.IntentType))
		s.logg.Debug(logCtx, "sync intent queued")
	}
	return nil
}
