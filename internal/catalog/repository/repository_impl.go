package repository

import (
	"context"
	"errors"

	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepoParam struct {
	fx.In

	DB *gorm.DB
}

type repo struct {
	db *gorm.DB
}

func Provide(p RepoParam) catalogdomain.Repository {
	return &repo{db: p.DB}
}

func (r *repo) FindGlobal(ctx context.Context) (*catalogdomain.OverrideRecord, error) {
	var rec catalogdomain.OverrideRecord
	err := r.db.WithContext(ctx).
		First(&rec, "key = ?", catalogdomain.OverrideKeyGlobal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) UpsertGlobal(ctx context.Context, rec *catalogdomain.OverrideRecord) error {
	rec.Key = catalogdomain.OverrideKeyGlobal
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"currency", "plans", "updated_by", "updated_at"}),
	}).Create(rec).Error
}
