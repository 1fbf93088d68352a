package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
)

var _ dpop.ReplayGuard = (*ReplayRepo)(nil)

type ReplayRepo struct {
	db *gorm.DB
}

func NewReplayRepo(db *gorm.DB) *ReplayRepo {
	return &ReplayRepo{db: db}
}

// Register inserts the triple; the composite unique index decides the race.
// Of N concurrent identical registrations across all instances, exactly one
// insert succeeds and the rest get the unique violation.
func (r *ReplayRepo) Register(ctx context.Context, tenantID, jkt, jti string, iat time.Time) error {
	entry := &replayEntryModel{
		TenantID:  tenantID,
		JKT:       jkt,
		JTI:       jti,
		IAT:       iat,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return dpop.ErrReplayDetected
		}
		return errors.Wrap(err, "[ReplayRepo.Register] Create")
	}
	return nil
}

func (r *ReplayRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("iat < ?", cutoff).
		Delete(&replayEntryModel{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "[ReplayRepo.PruneBefore] Delete")
	}
	return result.RowsAffected, nil
}
