package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *sessions.Session) error {
	err := r.db.WithContext(ctx).Create(sessionFromDomain(session)).Error
	return errors.Wrap(err, "[SessionRepo.Create] Create")
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*sessions.Session, error) {
	var model sessionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "[SessionRepo.GetByID] First")
	}
	return model.toDomain(), nil
}

func (r *SessionRepo) FindActive(ctx context.Context, userID, tenantID, deviceID string) (*sessions.Session, error) {
	var model sessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND device_id = ? AND revoked_at IS NULL", userID, tenantID, deviceID).
		Order("version DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "[SessionRepo.FindActive] First")
	}
	return model.toDomain(), nil
}

func (r *SessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if result.Error != nil {
		return errors.Wrap(result.Error, "[SessionRepo.Revoke] Update")
	}
	return nil
}

func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID, tenantID string, at time.Time) ([]string, error) {
	var revoked []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&sessionModel{}).
			Where("user_id = ? AND tenant_id = ? AND revoked_at IS NULL", userID, tenantID).
			Pluck("id", &ids).Error
		if err != nil {
			return errors.Wrap(err, "[SessionRepo.RevokeAllForUser] Pluck")
		}
		if len(ids) == 0 {
			return nil
		}
		err = tx.Model(&sessionModel{}).
			Where("id IN ?", ids).
			Update("revoked_at", at).Error
		if err != nil {
			return errors.Wrap(err, "[SessionRepo.RevokeAllForUser] Update")
		}
		revoked = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}
