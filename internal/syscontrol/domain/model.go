package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
)

var (
	ErrMaintenance        = errors.New("maintenance_mode")
	ErrAdminOnly          = errors.New("admin_only_mode")
	ErrCapabilityDisabled = errors.New("capability_disabled")
	ErrUnknownFlag        = errors.New("unknown_control_flag")
)

// Capabilities gated by the control flags.
const (
	CapabilitySignup       = "signup"
	CapabilityPayments     = "payments"
	CapabilityAIGeneration = "aiGeneration"
	CapabilityDeployments  = "deployments"
)

// State is the singleton control document consulted before every gated
// action. Written only by admin PATCH.
type State struct {
	Key string `json:"-" gorm:"column:key;primaryKey;type:varchar(32)"`

	SignupEnabled       bool `json:"signupEnabled" gorm:"not null;default:true"`
	PaymentsEnabled     bool `json:"paymentsEnabled" gorm:"not null;default:true"`
	AIGenerationEnabled bool `json:"aiGenerationEnabled" gorm:"column:ai_generation_enabled;not null;default:true"`
	DeploymentsEnabled  bool `json:"deploymentsEnabled" gorm:"not null;default:true"`
	MaintenanceMode     bool `json:"maintenanceMode" gorm:"not null;default:false"`
	AdminOnlyMode       bool `json:"adminOnlyMode" gorm:"not null;default:false"`

	UpdatedBy string    `json:"updatedBy,omitempty" gorm:"type:text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (State) TableName() string { return "system_control_state" }

const StateKeyGlobal = "global"

// DefaultState has every capability enabled and both lockdown modes off.
func DefaultState() State {
	return State{
		Key:                 StateKeyGlobal,
		SignupEnabled:       true,
		PaymentsEnabled:     true,
		AIGenerationEnabled: true,
		DeploymentsEnabled:  true,
	}
}

// CapabilityEnabled maps a capability to its flag. Anything outside the
// named capabilities rides on the deployments flag.
func (s State) CapabilityEnabled(capability string) bool {
	switch capability {
	case CapabilitySignup:
		return s.SignupEnabled
	case CapabilityPayments:
		return s.PaymentsEnabled
	case CapabilityAIGeneration:
		return s.AIGenerationEnabled
	default:
		return s.DeploymentsEnabled
	}
}

// CapabilityError wraps ErrCapabilityDisabled with the capability name so
// handlers can emit a capability-specific message.
func CapabilityError(capability string) error {
	return fmt.Errorf("%w: %s", ErrCapabilityDisabled, capability)
}

// PatchFlagKeys is the fixed allow-list accepted by the admin PATCH body.
func PatchFlagKeys() []string {
	return []string{
		"signupEnabled",
		"paymentsEnabled",
		"aiGenerationEnabled",
		"deploymentsEnabled",
		"maintenanceMode",
		"adminOnlyMode",
	}
}

type Repository interface {
	Get(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

type Service interface {
	Current(ctx context.Context) (State, error)
	// Patch applies a partial boolean-flag update restricted to
	// PatchFlagKeys; unknown or non-boolean values are rejected.
	Patch(ctx context.Context, flags map[string]any, updatedBy string) (State, error)
	// Enforce evaluates the flags in fixed precedence (maintenance,
	// admin-only, capability) for the given caller. account may be nil for
	// anonymous actions such as signup.
	Enforce(ctx context.Context, account *accountdomain.Account, capability string) (State, error)
}
