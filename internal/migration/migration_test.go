package migration

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
)

func TestRunMigrations(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db, zap.NewNop()))

	for _, table := range []string{
		"accounts", "plan_catalog_overrides", "system_control_state",
		"usage_records", "payment_transactions", "payment_events",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	var state syscontroldomain.State
	require.NoError(t, db.First(&state, "key = ?", syscontroldomain.StateKeyGlobal).Error)
	assert.True(t, state.SignupEnabled)
	assert.False(t, state.MaintenanceMode)
}

func TestRunMigrations_RerunKeepsOperatorFlags(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, zap.NewNop()))

	require.NoError(t, db.Model(&syscontroldomain.State{}).
		Where("key = ?", syscontroldomain.StateKeyGlobal).
		Update("maintenance_mode", true).Error)

	require.NoError(t, RunMigrations(db, zap.NewNop()))

	var state syscontroldomain.State
	require.NoError(t, db.First(&state, "key = ?", syscontroldomain.StateKeyGlobal).Error)
	assert.True(t, state.MaintenanceMode)
}
