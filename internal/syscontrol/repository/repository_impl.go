package repository

import (
	"context"
	"errors"

	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
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

func Provide(p RepoParam) syscontroldomain.Repository {
	return &repo{db: p.DB}
}

func (r *repo) Get(ctx context.Context) (syscontroldomain.State, error) {
	var state syscontroldomain.State
	err := r.db.WithContext(ctx).
		First(&state, "key = ?", syscontroldomain.StateKeyGlobal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return syscontroldomain.DefaultState(), nil
	}
	if err != nil {
		return syscontroldomain.State{}, err
	}
	return state, nil
}

func (r *repo) Save(ctx context.Context, state syscontroldomain.State) error {
	state.Key = syscontroldomain.StateKeyGlobal
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"signup_enabled", "payments_enabled", "ai_generation_enabled",
			"deployments_enabled", "maintenance_mode", "admin_only_mode",
			"updated_by", "updated_at",
		}),
	}).Create(&state).Error
}
