package postgres

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/users"
)

var _ users.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByEmail(ctx context.Context, tenantID, email string) (*users.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "[UserRepo.GetByEmail] First")
	}
	return model.toDomain(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "[UserRepo.GetByID] First")
	}
	return model.toDomain(), nil
}
