package domain

import (
	"context"
	"errors"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

var ErrAuthenticationRequired = errors.New("authentication_required")

// EnforceResult is returned when the gate admits the request. By then one
// credit-ledger increment has already happened; there is no compensating
// refund if the feature itself fails downstream.
type EnforceResult struct {
	Account *accountdomain.Account
	Control syscontroldomain.State
	Usage   *usagedomain.ConsumeResult
}

type Service interface {
	// Enforce runs the full admission chain for a paid feature:
	// authentication, system-control capability check, credit consumption.
	Enforce(ctx context.Context, account *accountdomain.Account, capability, feature string) (*EnforceResult, error)
}
