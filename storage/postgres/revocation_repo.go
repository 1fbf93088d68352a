package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
)

var _ revocation.Repo = (*RevocationRepo)(nil)

type RevocationRepo struct {
	db *gorm.DB
}

func NewRevocationRepo(db *gorm.DB) *RevocationRepo {
	return &RevocationRepo{db: db}
}

func (r *RevocationRepo) Append(ctx context.Context, event *revocation.Event) error {
	err := r.db.WithContext(ctx).Create(revocationEventFromDomain(event)).Error
	return errors.Wrap(err, "[RevocationRepo.Append] Create")
}

func (r *RevocationRepo) MaxNotBefore(ctx context.Context, q revocation.Query) (*time.Time, error) {
	query := r.db.WithContext(ctx).Model(&revocationEventModel{}).
		Where("tenant_id = ?", q.TenantID)

	scoped := r.db.Where("1 = 0")
	if q.Subject != "" {
		scoped = scoped.Or("type = ? AND subject = ?", string(revocation.TypeSubject), q.Subject)
	}
	if q.SessionID != "" {
		scoped = scoped.Or("type = ? AND session_id = ?", string(revocation.TypeSession), q.SessionID)
	}
	if q.JTI != "" {
		scoped = scoped.Or("type = ? AND jti = ?", string(revocation.TypeToken), q.JTI)
	}

	var result struct {
		Max *time.Time
	}
	err := query.Where(scoped).
		Select("MAX(not_before) AS max").
		Scan(&result).Error
	if err != nil {
		return nil, errors.Wrap(err, "[RevocationRepo.MaxNotBefore] Scan")
	}
	return result.Max, nil
}
