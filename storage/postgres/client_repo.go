package postgres

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
)

var _ clients.Repo = (*ClientRepo)(nil)

type ClientRepo struct {
	db *gorm.DB
}

func NewClientRepo(db *gorm.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) GetByID(ctx context.Context, id string) (*clients.Client, error) {
	var model clientModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clients.ErrClientNotFound
		}
		return nil, errors.Wrap(err, "[ClientRepo.GetByID] First")
	}
	return model.toDomain(), nil
}
