package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	authdomain "github.com/nivalabs/creditgate/internal/auth/domain"
	billingdomain "github.com/nivalabs/creditgate/internal/billing/domain"
	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	ratelimitdomain "github.com/nivalabs/creditgate/internal/ratelimit/domain"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type validationError struct {
	Field  string `json:"field"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

func newValidationError(field, code, detail string) error {
	return &validationError{Field: field, Code: code, Detail: detail}
}

func invalidRequestError() error {
	return newValidationError("body", "invalid_request", "request body is malformed")
}

// AbortWithError translates domain errors into HTTP responses. Handlers
// funnel every error through here so status mapping lives in one place.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	var vErr *validationError
	switch {
	case errors.As(err, &vErr):
		status, code = http.StatusBadRequest, vErr.Code
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, billingdomain.ErrAuthenticationRequired),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, accountdomain.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden), errors.Is(err, syscontroldomain.ErrAdminOnly):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, syscontroldomain.ErrMaintenance):
		status, code = http.StatusServiceUnavailable, "maintenance_mode"
	case errors.Is(err, syscontroldomain.ErrCapabilityDisabled):
		status, code = http.StatusServiceUnavailable, "capability_disabled"
	case errors.Is(err, usagedomain.ErrQuotaExceeded):
		status, code = http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, ratelimitdomain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, accountdomain.ErrEmailTaken):
		status, code = http.StatusConflict, "email_taken"
	case errors.Is(err, authdomain.ErrWeakPassword):
		status, code = http.StatusBadRequest, "weak_password"
	case errors.Is(err, accountdomain.ErrAccountNotFound),
		errors.Is(err, paymentdomain.ErrTransactionNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, catalogdomain.ErrUnknownPlan),
		errors.Is(err, paymentdomain.ErrInvalidPlan),
		errors.Is(err, syscontroldomain.ErrUnknownFlag),
		errors.Is(err, paymentdomain.ErrMissingFields),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		status, code = http.StatusBadRequest, "invalid_request"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    code,
		"message": err.Error(),
	}})
}
