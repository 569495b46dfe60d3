package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/db/models"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/outbox"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	defaultPushTimeout = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
	retryBaseDelay     = 200 * time.Millisecond
	retriesPerPush     = 3
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type intentRepository interface {
	FetchPendingForPush(tx *gorm.DB, limit, maxAttempts int) ([]models.SyncIntent, error)
	MarkPushedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.SyncIntentDLQ) error
}

type cartPusher interface {
	PutCart(ctx context.Context, token string, items []storeapi.CartItem) error
}

type tokenSource interface {
	Token(ctx context.Context) string
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository intentRepository
	DLQ        dlqRepository
	Store      cartPusher
	Tokens     tokenSource
}

// Service drains sync_intents and replays them against the remote cart.
// Intents in one batch supersede each other: only the newest snapshot is
// pushed, the older rows ride along as already-covered.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         intentRepository
	dlq          dlqRepository
	store        cartPusher
	tokens       tokenSource
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("intent repository is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Store == nil {
		return nil, errors.New("store client is required")
	}
	if params.Tokens == nil {
		return nil, errors.New("token source is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		store:        params.Store,
		tokens:       params.Tokens,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sync worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "sync worker batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processBatch drains one batch inside a transaction. A signed-out user
// leaves every intent pending; the batch is retried once a session exists.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	token := s.tokens.Token(ctx)

	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		intents, err := s.repo.FetchPendingForPush(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(intents) == 0 {
			return nil
		}

		if token == "" {
			s.logg.Debug(ctx, "sync intents pending but no session, waiting")
			return nil
		}

		processed = true

		// Rows arrive oldest-first and each carries a full cart snapshot,
		// so only the newest one needs the network.
		latest := intents[len(intents)-1]
		superseded := intents[:len(intents)-1]

		items, err := decodeIntentItems(latest)
		if err != nil {
			return s.handleTerminal(ctx, tx, latest, enums.SyncDLQReasonNonRetryable, err)
		}

		if pushErr := s.pushWithRetry(ctx, token, items); pushErr != nil {
			if !pkgerrors.IsRetryable(pushErr) {
				if err := s.handleTerminal(ctx, tx, latest, enums.SyncDLQReasonNonRetryable, pushErr); err != nil {
					return err
				}
				// the dead-lettered row carried the newest snapshot; its
				// older siblings are covered by it and must never replay
				return s.markAllPushed(tx, superseded)
			}

			nextAttempt := latest.AttemptCount + 1
			if nextAttempt >= s.maxAttempts {
				terminalErr := fmt.Errorf("max push attempts reached: %w", pushErr)
				if err := s.handleTerminal(ctx, tx, latest, enums.SyncDLQReasonMaxAttempts, terminalErr); err != nil {
					return err
				}
				return s.markAllPushed(tx, superseded)
			}

			fields := s.intentFields(latest)
			fields["attempt_count"] = nextAttempt
			ctxWithFields := s.logg.WithFields(ctx, fields)
			ctxWithFields = s.logg.WithField(ctxWithFields, "error", pushErr.Error())
			s.logg.Warn(ctxWithFields, "cart push failed")

			if markErr := s.repo.MarkFailedTx(tx, latest.ID, pushErr); markErr != nil {
				return fmt.Errorf("mark failure %s: %w", latest.ID, markErr)
			}
			return nil
		}

		if markErrs := s.markAllPushed(tx, intents); markErrs != nil {
			return markErrs
		}

		fields := s.intentFields(latest)
		fields["superseded"] = len(superseded)
		s.logg.Info(s.logg.WithFields(ctx, fields), "cart synced to remote store")
		return nil
	})
	return processed, err
}

// pushWithRetry absorbs transient faults before the attempt counter in the
// store is touched; one stored attempt covers a few network tries.
func (s *Service) pushWithRetry(ctx context.Context, token string, items []storeapi.CartItem) error {
	backoff := retry.WithMaxRetries(retriesPerPush, retry.NewFibonacci(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
		defer cancel()

		err := s.store.PutCart(pushCtx, token, items)
		if err == nil {
			return nil
		}
		if pkgerrors.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Service) markAllPushed(tx *gorm.DB, intents []models.SyncIntent) error {
	var errs error
	for _, intent := range intents {
		if err := s.repo.MarkPushedTx(tx, intent.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark pushed %s: %w", intent.ID, err))
		}
	}
	return errs
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, intent models.SyncIntent, reason enums.SyncDLQErrorReason, cause error) error {
	fields := s.intentFields(intent)
	fields["error_reason"] = reason
	fields["error_chain"] = pkgerrors.Dump(cause).Chain
	ctxWithFields := s.logg.WithFields(ctx, fields)
	ctxWithFields = s.logg.WithField(ctxWithFields, "error", cause.Error())
	s.logg.Warn(ctxWithFields, "sync intent will not be retried")

	entry := models.SyncIntentDLQ{
		IntentID:     intent.ID,
		IntentType:   intent.IntentType,
		Payload:      intent.Payload,
		ErrorReason:  reason,
		ErrorMessage: dlqErrorMessage(cause),
		AttemptCount: intent.AttemptCount,
		FailedAt:     time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", intent.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, intent.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", intent.ID, err)
	}
	return nil
}

func decodeIntentItems(intent models.SyncIntent) ([]storeapi.CartItem, error) {
	if intent.IntentType == enums.IntentCartClear {
		return []storeapi.CartItem{}, nil
	}

	var envelope outbox.IntentEnvelope
	if err := json.Unmarshal(intent.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding intent envelope: %w", err)
	}
	var data struct {
		Items []storeapi.CartItem `json:"items"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding intent items: %w", err)
	}
	if data.Items == nil {
		data.Items = []storeapi.CartItem{}
	}
	return data.Items, nil
}

func dlqErrorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func (s *Service) intentFields(intent models.SyncIntent) map[string]any {
	fields := map[string]any{
		"intent_id":     intent.ID.String(),
		"intent_type":   intent.IntentType,
		"batch_size":    s.batchSize,
		"attempt_count": intent.AttemptCount,
	}
	if intent.LastError != nil {
		fields["last_error"] = *intent.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
