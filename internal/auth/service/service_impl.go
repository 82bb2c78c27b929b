package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	authdomain "github.com/nivalabs/creditgate/internal/auth/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/config"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	AccountRepo accountdomain.Repository
	Control     syscontroldomain.Service
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	clock       clock.Clock
	genID       *snowflake.Node
	accountRepo accountdomain.Repository
	control     syscontroldomain.Service
}

func NewService(p ServiceParam) authdomain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		cfg:         p.Cfg,
		clock:       p.Clock,
		genID:       p.GenID,
		accountRepo: p.AccountRepo,
		control:     p.Control,
	}
}

func (s *service) SignUp(ctx context.Context, email, password string) (*authdomain.Session, error) {
	if _, err := s.control.Enforce(ctx, nil, syscontroldomain.CapabilitySignup); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, accountdomain.ErrInvalidCredentials
	}
	if len(password) < authdomain.MinPasswordLength {
		return nil, authdomain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &accountdomain.Account{
		ID:             s.genID.Generate(),
		Email:          email,
		PasswordHash:   string(hash),
		PlanID:         "free",
		PlanStatus:     accountdomain.PlanStatusNone,
		SessionVersion: 1,
	}
	if err := s.accountRepo.Insert(ctx, s.db, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, accountdomain.ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("email", email))
	return s.issue(ctx, account)
}

func (s *service) SignIn(ctx context.Context, email, password string) (*authdomain.Session, error) {
	account, err := s.accountRepo.FindByEmail(ctx, s.db, email)
	if errors.Is(err, accountdomain.ErrAccountNotFound) {
		return nil, accountdomain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, accountdomain.ErrInvalidCredentials
	}
	return s.issue(ctx, account)
}

func (s *service) Authenticate(ctx context.Context, token string) (*accountdomain.Account, error) {
	claims := &authdomain.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, authdomain.ErrInvalidToken
		}
		return []byte(s.cfg.Auth.JWTSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.clock.Now(ctx) }))
	if err != nil || !parsed.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	id, err := snowflake.ParseString(claims.Subject)
	if err != nil {
		return nil, authdomain.ErrInvalidToken
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, id)
	if errors.Is(err, accountdomain.ErrAccountNotFound) {
		return nil, authdomain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if account.SessionVersion != claims.SessionVersion {
		return nil, authdomain.ErrSessionRevoked
	}
	return account, nil
}

func (s *service) issue(ctx context.Context, account *accountdomain.Account) (*authdomain.Session, error) {
	now := s.clock.Now(ctx)
	claims := authdomain.SessionClaims{
		SessionVersion: account.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.TokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		return nil, err
	}
	return &authdomain.Session{Account: account, Token: signed}, nil
}
