package postgres

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
)

var _ keys.Repo = (*KeyRepo)(nil)

type KeyRepo struct {
	db *gorm.DB
}

func NewKeyRepo(db *gorm.DB) *KeyRepo {
	return &KeyRepo{db: db}
}

func (r *KeyRepo) Insert(ctx context.Context, key *keys.SigningKey) error {
	err := r.db.WithContext(ctx).Create(signingKeyFromDomain(key)).Error
	return errors.Wrap(err, "[KeyRepo.Insert] Create")
}

func (r *KeyRepo) ActiveKey(ctx context.Context, tenantID string) (*keys.SigningKey, error) {
	var model signingKeyModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(keys.StatusActive)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, keys.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "[KeyRepo.ActiveKey] First")
	}
	return model.toDomain(), nil
}

func (r *KeyRepo) FindByKid(ctx context.Context, kid string) (*keys.SigningKey, error) {
	var model signingKeyModel
	err := r.db.WithContext(ctx).Where("kid = ?", kid).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, keys.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "[KeyRepo.FindByKid] First")
	}
	return model.toDomain(), nil
}

func (r *KeyRepo) VerificationKeys(ctx context.Context, tenantID string) ([]*keys.SigningKey, error) {
	var models []signingKeyModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, []string{string(keys.StatusActive), string(keys.StatusRotated)}).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "[KeyRepo.VerificationKeys] Find")
	}

	result := make([]*keys.SigningKey, 0, len(models))
	for i := range models {
		result = append(result, models[i].toDomain())
	}
	return result, nil
}

func (r *KeyRepo) UpdateStatus(ctx context.Context, kid string, status keys.Status) error {
	err := r.db.WithContext(ctx).Model(&signingKeyModel{}).
		Where("kid = ?", kid).
		Update("status", string(status)).Error
	return errors.Wrap(err, "[KeyRepo.UpdateStatus] Update")
}
