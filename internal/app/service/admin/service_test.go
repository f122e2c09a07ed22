package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/internal/platform/store/memstore"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/types"
)

const bootstrap = "owner@gym.dz"

type fixture struct {
	svc *Service
	ids *identity.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{Admin: config.AdminConfig{BootstrapEmail: bootstrap}}
	ids := identity.NewProvider(identity.NewMemoryCredentials()).WithCost(bcrypt.MinCost)
	tokens := identity.NewTokenMaker("test-secret", time.Hour)
	svc := NewService(cfg, memstore.New(memstore.Options{}), ids, tokens, zap.NewNop().Sugar())
	require.NoError(t, svc.Seed(context.Background()))
	return &fixture{svc: svc, ids: ids}
}

func asAdmin(email string) context.Context {
	return identity.WithSession(context.Background(), identity.Session{Email: email})
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Seed(ctx))

	admins, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, bootstrap, admins[0].Email)
	require.Equal(t, types.SystemInitialization, admins[0].AddedBy)
	require.Equal(t, types.AdminRoleOwner, admins[0].Role)
}

func TestLogin_FirstLoginSetsPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginInput{Email: "Owner@Gym.dz", Password: "first-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	sess, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, bootstrap, sess.Email)

	_, err = f.svc.Login(ctx, LoginInput{Email: bootstrap, Password: "wrong-pass"})
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginInput{Email: "stranger@gym.dz", Password: "whatever"})
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginInput{Email: "not-an-email", Password: "x"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAdd_RunsInIsolatedContextAndStampsCaller(t *testing.T) {
	f := newFixture(t)
	ctx := asAdmin(bootstrap)

	admin, err := f.svc.Add(ctx, AddInput{Email: "Coach@Gym.dz", Password: "coach-pass"})
	require.NoError(t, err)
	require.Equal(t, "coach@gym.dz", admin.Email)
	require.Equal(t, bootstrap, admin.AddedBy)
	require.Equal(t, types.AdminRoleAdmin, admin.Role)
	require.Zero(t, f.ids.Active(), "isolated context torn down")

	caller, ok := identity.SessionFrom(ctx)
	require.True(t, ok)
	require.Equal(t, bootstrap, caller.Email, "caller session untouched")

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "coach@gym.dz", Password: "coach-pass"})
	require.NoError(t, err)
	require.Equal(t, "coach@gym.dz", res.Admin.Email)

	_, err = f.svc.Add(ctx, AddInput{Email: "coach@gym.dz", Password: "another"})
	require.ErrorIs(t, err, apperr.ErrAdminExists)
}

func TestAdd_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Add(context.Background(), AddInput{Email: "x@gym.dz", Password: "secret1"})
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = f.svc.Add(asAdmin(bootstrap), AddInput{Email: "x@gym.dz", Password: "12345"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Zero(t, f.ids.Active())
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := asAdmin(bootstrap)
	_, err := f.svc.Add(ctx, AddInput{Email: "coach@gym.dz", Password: "coach-pass"})
	require.NoError(t, err)
	res, err := f.svc.Login(context.Background(), LoginInput{Email: "coach@gym.dz", Password: "coach-pass"})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Remove(ctx, "OWNER@gym.dz"), apperr.ErrSelfRemoval)
	require.ErrorIs(t, f.svc.Remove(ctx, "ghost@gym.dz"), apperr.ErrAdminNotFound)

	require.NoError(t, f.svc.Remove(ctx, "coach@gym.dz"))
	_, err = f.svc.Authenticate(context.Background(), res.Token)
	require.ErrorIs(t, err, apperr.ErrNotAdministrator)

	// the email can be added again with a fresh password
	_, err = f.svc.Add(ctx, AddInput{Email: "coach@gym.dz", Password: "new-pass"})
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), LoginInput{Email: "coach@gym.dz", Password: "new-pass"})
	require.NoError(t, err)
}

func TestAuthenticate_BadToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
