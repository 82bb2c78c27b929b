package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	accountrepo "github.com/nivalabs/creditgate/internal/account/repository"
	authdomain "github.com/nivalabs/creditgate/internal/auth/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/config"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
)

type stubControl struct {
	state syscontroldomain.State
	err   error
}

func (s *stubControl) Current(ctx context.Context) (syscontroldomain.State, error) {
	return s.state, nil
}

func (s *stubControl) Patch(ctx context.Context, flags map[string]any, updatedBy string) (syscontroldomain.State, error) {
	return s.state, nil
}

func (s *stubControl) Enforce(ctx context.Context, account *accountdomain.Account, capability string) (syscontroldomain.State, error) {
	return s.state, s.err
}

type fixture struct {
	svc     authdomain.Service
	db      *gorm.DB
	clock   *clock.Fake
	control *stubControl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&accountdomain.Account{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFake(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	control := &stubControl{state: syscontroldomain.DefaultState()}

	cfg := config.Config{}
	cfg.Auth.JWTSecret = "unit-test-secret"
	cfg.Auth.TokenTTL = time.Hour

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		Cfg:         cfg,
		Clock:       fake,
		GenID:       node,
		AccountRepo: accountrepo.Provide(),
		Control:     control,
	})
	return &fixture{svc: svc, db: db, clock: fake, control: control}
}

func TestSignUp_CreatesAccountAndIssuesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, " Alice@Example.COM ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.Account.Email)
	assert.Equal(t, "free", sess.Account.PlanID)
	assert.NotEmpty(t, sess.Token)

	account, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Account.ID, account.ID)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, "alice@example.com", "other-pass-1")
	assert.ErrorIs(t, err, accountdomain.ErrEmailTaken)
}

func TestSignUp_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "not-an-email", "s3cret-pass")
	assert.ErrorIs(t, err, accountdomain.ErrInvalidCredentials)

	_, err = f.svc.SignUp(ctx, "bob@example.com", "short")
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)
}

func TestSignUp_BlockedBySystemControl(t *testing.T) {
	f := newFixture(t)
	f.control.err = syscontroldomain.CapabilityError(syscontroldomain.CapabilitySignup)

	_, err := f.svc.SignUp(context.Background(), "alice@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, syscontroldomain.ErrCapabilityDisabled)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	sess, err := f.svc.SignIn(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = f.svc.SignIn(ctx, "alice@example.com", "wrong-pass-1")
	assert.ErrorIs(t, err, accountdomain.ErrInvalidCredentials)

	// Unknown accounts get the same error as bad passwords.
	_, err = f.svc.SignIn(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, accountdomain.ErrInvalidCredentials)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestAuthenticate_SessionVersionBumpRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&accountdomain.Account{}).
		Where("id = ?", sess.Account.ID).
		Update("session_version", sess.Account.SessionVersion+1).Error)

	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}
