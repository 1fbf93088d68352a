package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
)

var _ refresh.Repo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct {
	db *gorm.DB
}

func NewRefreshTokenRepo(db *gorm.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) Create(ctx context.Context, token *refresh.Token) error {
	err := r.db.WithContext(ctx).Create(refreshTokenFromDomain(token)).Error
	return errors.Wrap(err, "[RefreshTokenRepo.Create] Create")
}

func (r *RefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*refresh.Token, error) {
	var model refreshTokenModel
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, refresh.ErrTokenNotFound
		}
		return nil, errors.Wrap(err, "[RefreshTokenRepo.GetByHash] First")
	}
	return model.toDomain(), nil
}

// Rotate marks the old token used with a conditional update and inserts the
// child in the same transaction. The used_at IS NULL guard is the rotation
// arbiter: of two concurrent rotations only one update hits a row, the other
// sees zero rows and gets ErrRotationConflict.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldID string, usedAt time.Time, child *refresh.Token) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&refreshTokenModel{}).
			Where("id = ? AND used_at IS NULL AND revoked = false", oldID).
			Updates(map[string]any{"used_at": usedAt, "replaced_by_id": child.ID})
		if result.Error != nil {
			return errors.Wrap(result.Error, "[RefreshTokenRepo.Rotate] mark used")
		}
		if result.RowsAffected == 0 {
			return refresh.ErrRotationConflict
		}
		if err := tx.Create(refreshTokenFromDomain(child)).Error; err != nil {
			return errors.Wrap(err, "[RefreshTokenRepo.Rotate] insert child")
		}
		return nil
	})
}

func (r *RefreshTokenRepo) RevokeFamily(ctx context.Context, familyID, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&refreshTokenModel{}).
		Where("family_id = ? AND revoked = false", familyID).
		Updates(map[string]any{"revoked": true, "revoked_reason": reason})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "[RefreshTokenRepo.RevokeFamily] Updates")
	}
	return result.RowsAffected, nil
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID, tenantID, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&refreshTokenModel{}).
		Where("user_id = ? AND tenant_id = ? AND revoked = false", userID, tenantID).
		Updates(map[string]any{"revoked": true, "revoked_reason": reason})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "[RefreshTokenRepo.RevokeAllForUser] Updates")
	}
	return result.RowsAffected, nil
}
