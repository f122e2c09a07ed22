// Package admin manages the staff allowed into the dashboard and their
// sessions.
package admin

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/tool"
	"github.com/fatflowers/gymdesk/pkg/types"
	"github.com/fatflowers/gymdesk/pkg/validate"
)

var errLoginTaken = apperr.Domain("email already has a login")

type Service struct {
	cfg    *config.Config
	store  store.Store
	ids    *identity.Provider
	tokens *identity.TokenMaker
	log    *zap.SugaredLogger
	now    tool.Clock
}

func NewService(cfg *config.Config, st store.Store, ids *identity.Provider, tokens *identity.TokenMaker, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, ids: ids, tokens: tokens, log: log, now: time.Now}
}

func (s *Service) WithClock(c tool.Clock) *Service {
	s.now = c
	return s
}

// seedOnStart makes sure somebody can log in on a fresh install.
func seedOnStart(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return s.Seed(ctx) },
	})
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(seedOnStart),
)

// Seed registers the bootstrap administrator when there is none.
func (s *Service) Seed(ctx context.Context) error {
	email := identity.NormalizeEmail(s.cfg.Admin.BootstrapEmail)
	var seeded bool
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		seeded = false
		n, err := tx.CountAdmins(ctx)
		if err != nil || n > 0 {
			return err
		}
		seeded = true
		return tx.SaveAdmin(ctx, &models.Administrator{
			Email:     email,
			AddedBy:   types.SystemInitialization,
			Role:      types.AdminRoleOwner,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return apperr.Store("seed administrator", err)
	}
	if seeded {
		s.log.Infow("bootstrap administrator seeded", "email", email)
	}
	return nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	Admin     *models.Administrator `json:"admin"`
}

// Login issues a session token. The first login of an administrator that
// has no password yet sets it.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(in.Email)
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Store("login", err)
	}

	err = s.ids.Verify(ctx, email, in.Password)
	switch {
	case errors.Is(err, identity.ErrNoCredential):
		if err := s.ids.Claim(ctx, email, in.Password); err != nil {
			return nil, s.credentialError(err)
		}
		logctx.FromCtx(ctx, s.log).Infow("administrator set first password", "email", email)
	case errors.Is(err, identity.ErrWrongPassword):
		return nil, apperr.ErrInvalidCredentials
	case err != nil:
		return nil, apperr.Store("login", err)
	}

	token, expires, err := s.tokens.Issue(email)
	if err != nil {
		return nil, apperr.Store("login", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expires, Admin: admin}, nil
}

func (s *Service) credentialError(err error) error {
	switch {
	case errors.Is(err, identity.ErrWeakPassword):
		return apperr.Validation(identity.ErrWeakPassword.Error())
	case errors.Is(err, identity.ErrAlreadyClaimed):
		return errLoginTaken
	}
	return apperr.Store("create credential", err)
}

// Authenticate resolves a session token to the administrator behind it.
// Tokens of removed administrators are refused.
func (s *Service) Authenticate(ctx context.Context, token string) (identity.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return identity.Session{}, apperr.ErrUnauthenticated
	}
	admin, err := s.store.GetAdminByEmail(ctx, claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		return identity.Session{}, apperr.ErrNotAdministrator
	}
	if err != nil {
		return identity.Session{}, apperr.Store("authenticate", err)
	}
	return identity.Session{Email: admin.Email, Role: admin.Role}, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Administrator, error) {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, apperr.Store("list administrators", err)
	}
	return admins, nil
}

type AddInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Add creates the login of a new administrator in an isolated identity
// context, so the caller's own session is never involved, then records the
// administrator as added by the caller.
func (s *Service) Add(ctx context.Context, in AddInput) (*models.Administrator, error) {
	sess, ok := identity.SessionFrom(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(in.Email)

	if _, err := s.store.GetAdminByEmail(ctx, email); err == nil {
		return nil, apperr.ErrAdminExists.WithDetail("%s", email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Store("add administrator", err)
	}

	err := s.ids.WithIsolatedContext(ctx, func(ic *identity.IsolatedContext) error {
		return ic.CreateCredential(ctx, email, in.Password)
	})
	if err != nil {
		return nil, s.credentialError(err)
	}

	admin := &models.Administrator{Email: email, AddedBy: sess.Email, Role: types.AdminRoleAdmin, CreatedAt: s.now()}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetAdmin(ctx, email); err == nil {
			return apperr.ErrAdminExists.WithDetail("%s", email)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return tx.SaveAdmin(ctx, admin)
	})
	if err != nil {
		if rerr := s.ids.Revoke(ctx, email); rerr != nil {
			s.log.Warnw("revoke orphan credential failed", "email", email, "err", rerr)
		}
		return nil, apperr.Store("add administrator", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("administrator added", "email", email, "added_by", sess.Email)
	return admin, nil
}

// Remove deletes an administrator and its login. Nobody can remove
// themselves.
func (s *Service) Remove(ctx context.Context, email string) error {
	sess, ok := identity.SessionFrom(ctx)
	if !ok {
		return apperr.ErrUnauthenticated
	}
	email = identity.NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("email is required")
	}
	if email == identity.NormalizeEmail(sess.Email) {
		return apperr.ErrSelfRemoval
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetAdmin(ctx, email); errors.Is(err, store.ErrNotFound) {
			return apperr.ErrAdminNotFound.WithDetail("%s", email)
		} else if err != nil {
			return err
		}
		return tx.DeleteAdmin(ctx, email)
	})
	if err != nil {
		return apperr.Store("remove administrator", err)
	}
	if err := s.ids.Revoke(ctx, email); err != nil {
		s.log.Warnw("revoke credential failed", "email", email, "err", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("administrator removed", "email", email, "removed_by", sess.Email)
	return nil
}
