package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// SessionRepository persists the single signed-in session row.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{db: tx}
}

// Current returns the stored session, or nil when nobody is signed in.
func (r *SessionRepository) Current(ctx context.Context) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("id = ?", models.SessionRowID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading session")
	}
	return &session, nil
}

// Save overwrites the session row wholesale.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	session.ID = models.SessionRowID
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(session).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving session")
	}
	return nil
}

// Delete removes the session row; deleting an absent row is fine.
func (r *SessionRepository) Delete(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Where("id = ?", models.SessionRowID).
		Delete(&models.Session{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting session")
	}
	return nil
}
