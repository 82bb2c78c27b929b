package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

// RunMigrations brings the schema up to date and seeds the singleton rows
// the services expect. It must be run explicitly by the migrate entrypoint
// before serving traffic.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	migrator := db.WithContext(ctx)
	if err := migrator.AutoMigrate(
		&accountdomain.Account{},
		&catalogdomain.OverrideRecord{},
		&syscontroldomain.State{},
		&usagedomain.Record{},
		&paymentdomain.Transaction{},
		&paymentdomain.EventRecord{},
	); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if err := seedSystemState(ctx, db); err != nil {
		return err
	}

	log.Info("migrations applied")
	return nil
}

// seedSystemState inserts the global control document with everything
// enabled. An existing row is left untouched so a re-run never resets an
// operator's flags.
func seedSystemState(ctx context.Context, db *gorm.DB) error {
	state := syscontroldomain.DefaultState()
	state.UpdatedAt = time.Now().UTC()

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("seed system control state: %w", err)
	}
	return nil
}
