package domain

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
)

var (
	ErrInvalidToken   = errors.New("invalid_token")
	ErrSessionRevoked = errors.New("session_revoked")
	ErrWeakPassword   = errors.New("weak_password")
)

const MinPasswordLength = 8

// SessionClaims carry the account id plus the session version the token was
// minted against. Bumping accounts.session_version invalidates every token
// issued before the bump.
type SessionClaims struct {
	SessionVersion int64 `json:"sv"`
	jwt.RegisteredClaims
}

type Session struct {
	Account *accountdomain.Account
	Token   string
}

type Service interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// Authenticate resolves a bearer token to a live account. Tokens whose
	// session version no longer matches the account are rejected.
	Authenticate(ctx context.Context, token string) (*accountdomain.Account, error)
}
