package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/outbox"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

// Line is one product entry in the cart.
type Line struct {
	ProductID int64
	Title     string
	Price     decimal.Decimal
	Image     string
	Quantity  int
}

// Totals carries the derived cart aggregates, recomputed on every call.
type Totals struct {
	ItemCount  int
	TotalPrice decimal.Decimal
}

type dbClient interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type intentEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error
}

// Service owns the in-memory cart. All mutations run through one serialized
// command path: the lock covers both the in-memory change and the persistence
// write, so two racing mutations cannot interleave their snapshots.
type Service struct {
	mu    sync.Mutex
	lines []Line

	db     dbClient
	repo   Repository
	outbox intentEmitter
	logg   *logger.Logger

	// UserIDFn resolves the signed-in user for intent envelopes; optional.
	userIDFn func() string
}

type ServiceParams struct {
	DB       dbClient
	Repo     Repository
	Outbox   intentEmitter
	Logger   *logger.Logger
	UserIDFn func() string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("cart repository is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		outbox:   params.Outbox,
		logg:     params.Logger,
		userIDFn: params.UserIDFn,
	}, nil
}

// Load hydrates the in-memory cart from the local store. Missing or corrupt
// rows yield an empty cart, never an error to the caller.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repo.LoadAll(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart load failed, starting empty")
		s.lines = nil
		return
	}

	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		if row.Quantity < 1 {
			// corrupt row, treat as absent
			s.logg.Debug(s.logg.WithProductID(ctx, row.ProductID), "dropping cart row with invalid quantity")
			continue
		}
		lines = append(lines, Line{
			ProductID: row.ProductID,
			Title:     row.Title,
			Price:     row.Price,
			Image:     row.Image,
			Quantity:  row.Quantity,
		})
	}
	s.lines = lines
}

// AdoptRemote replaces the cart with the snapshot fetched from the remote
// store and persists it locally. No sync intent is emitted since the remote
// already holds this exact state. Rows with invalid quantities are dropped
// the same way Load drops corrupt local rows.
func (s *Service) AdoptRemote(ctx context.Context, items []storeapi.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.ID == 0 || item.Quantity < 1 {
			s.logg.Debug(s.logg.WithProductID(ctx, item.ID), "dropping remote cart item with invalid fields")
			continue
		}
		lines = append(lines, Line{
			ProductID: item.ID,
			Title:     item.Title,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  item.Quantity,
		})
	}
	s.lines = lines

	rows := make([]models.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		rows = append(rows, models.CartLine{
			ProductID: line.ProductID,
			Title:     line.Title,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
		})
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceAll(ctx, rows)
	})
	if err != nil {
		s.logg.Error(ctx, "cart persistence failed", err)
	}
}

// AddItem merges the line into the cart: an existing product's quantity is
// incremented by qty, a new product is appended with quantity qty.
func (s *Service) AddItem(ctx context.Context, line Line, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if line.ProductID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if line.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(line.ProductID); idx >= 0 {
		s.lines[idx].Quantity += qty
	} else {
		line.Quantity = qty
		s.lines = append(s.lines, line)
	}

	s.persist(ctx, enums.IntentCartPush)
	return nil
}

// RemoveItem deletes the product's line. Removing an absent product is a
// no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)

	s.persist(ctx, enums.IntentCartPush)
	return nil
}

// SetQuantity overwrites the product's quantity. A target of zero or less
// removes the line; an absent product is a no-op.
func (s *Service) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}
	s.lines[idx].Quantity = qty

	s.persist(ctx, enums.IntentCartPush)
	return nil
}

// Clear empties the cart, used after successful order placement.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persist(ctx, enums.IntentCartClear)
	return nil
}

// Items returns a copy of the current lines.
func (s *Service) Items() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Totals folds the current lines into itemCount and totalPrice. The values
// are recomputed on every call, never cached across mutations.
func (s *Service) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := Totals{TotalPrice: decimal.Zero}
	for _, line := range s.lines {
		totals.ItemCount += line.Quantity
		lineTotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		totals.TotalPrice = totals.TotalPrice.Add(lineTotal)
	}
	return totals
}

// Snapshot returns the cart in the wire shape consumed by the store API.
func (s *Service) Snapshot() []storeapi.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wireItemsLocked()
}

func (s *Service) indexOf(productID int64) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Service) wireItemsLocked() []storeapi.CartItem {
	items := make([]storeapi.CartItem, 0, len(s.lines))
	for _, line := range s.lines {
		items = append(items, storeapi.CartItem{
			ID:       line.ProductID,
			Title:    line.Title,
			Price:    line.Price,
			Image:    line.Image,
			Quantity: line.Quantity,
		})
	}
	return items
}

// persist overwrites the local store with the full cart and records a sync
// intent in the same transaction. The in-memory cart stays the source of
// truth for callers even when the write fails; the failure is logged, not
// propagated. Callers must hold the lock.
func (s *Service) persist(ctx context.Context, intentType enums.SyncIntentType) {
	rows := make([]models.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		rows = append(rows, models.CartLine{
			ProductID: line.ProductID,
			Title:     line.Title,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
		})
	}
	items := s.wireItemsLocked()

	var userID string
	if s.userIDFn != nil {
		userID = s.userIDFn()
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ReplaceAll(ctx, rows); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.Intent{
			IntentType: intentType,
			UserID:     userID,
			Data:       map[string]any{"items": items},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "cart persistence failed", err)
	}
}
