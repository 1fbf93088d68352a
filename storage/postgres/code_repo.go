package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
)

var _ authcode.Repo = (*CodeRepo)(nil)

type CodeRepo struct {
	db *gorm.DB
}

func NewCodeRepo(db *gorm.DB) *CodeRepo {
	return &CodeRepo{db: db}
}

func (r *CodeRepo) Insert(ctx context.Context, code *authcode.Code) error {
	err := r.db.WithContext(ctx).Create(authCodeFromDomain(code)).Error
	return errors.Wrap(err, "[CodeRepo.Insert] Create")
}

func (r *CodeRepo) BindUser(ctx context.Context, code, userID, deviceID string, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&authCodeModel{}).
		Where("code = ? AND expires_at > ? AND user_id = ''", code, now).
		Updates(map[string]any{"user_id": userID, "device_id": deviceID})
	if result.Error != nil {
		return errors.Wrap(result.Error, "[CodeRepo.BindUser] Updates")
	}
	if result.RowsAffected == 0 {
		return authcode.ErrCodeInvalid
	}
	return nil
}

// Consume deletes and returns the row in one transaction, locking it so two
// concurrent exchanges of the same code cannot both win.
func (r *CodeRepo) Consume(ctx context.Context, code string, now time.Time) (*authcode.Code, error) {
	var consumed *authcode.Code
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model authCodeModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND expires_at > ?", code, now).
			First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authcode.ErrCodeInvalid
			}
			return errors.Wrap(err, "[CodeRepo.Consume] First")
		}
		if err := tx.Delete(&authCodeModel{}, "code = ?", code).Error; err != nil {
			return errors.Wrap(err, "[CodeRepo.Consume] Delete")
		}
		consumed = model.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (r *CodeRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&authCodeModel{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "[CodeRepo.PruneExpired] Delete")
	}
	return result.RowsAffected, nil
}
