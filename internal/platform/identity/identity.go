// Package identity owns administrator credentials and session tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fatflowers/gymdesk/internal/models"
)

const MinPasswordLength = 6

var (
	ErrWeakPassword   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrWrongPassword  = errors.New("identity: password mismatch")
	ErrContextClosed  = errors.New("identity: isolated context already torn down")
	ErrAlreadyClaimed = errors.New("identity: email already has a credential")
)

type Provider struct {
	creds  CredentialStore
	cost   int
	active atomic.Int64
	now    func() time.Time
}

func NewProvider(creds CredentialStore) *Provider {
	return &Provider{creds: creds, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithCost lowers the bcrypt cost, for tests.
func (p *Provider) WithCost(cost int) *Provider {
	p.cost = cost
	return p
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Verify checks a password against the stored hash. ErrNoCredential means
// the email never set a password.
func (p *Provider) Verify(ctx context.Context, email, password string) error {
	c, err := p.creds.Get(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) != nil {
		return ErrWrongPassword
	}
	return nil
}

// Claim sets the first password of email outside any isolated context.
// Used on the first login of a seeded administrator.
func (p *Provider) Claim(ctx context.Context, email, password string) error {
	return p.WithIsolatedContext(ctx, func(ic *IsolatedContext) error {
		return ic.CreateCredential(ctx, email, password)
	})
}

// Revoke drops the credential of email so it can no longer log in.
func (p *Provider) Revoke(ctx context.Context, email string) error {
	return p.creds.Delete(ctx, NormalizeEmail(email))
}

// Active reports how many isolated contexts are currently open.
func (p *Provider) Active() int64 {
	return p.active.Load()
}

// IsolatedContext creates credentials on behalf of a new administrator
// without touching the caller's session. It is only usable inside the
// callback passed to WithIsolatedContext.
type IsolatedContext struct {
	p      *Provider
	mu     sync.Mutex
	closed bool
}

// WithIsolatedContext opens an isolated identity context, runs fn and tears
// the context down on every exit path, including a panic in fn.
func (p *Provider) WithIsolatedContext(ctx context.Context, fn func(ic *IsolatedContext) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ic := &IsolatedContext{p: p}
	p.active.Add(1)
	defer func() {
		ic.teardown()
		p.active.Add(-1)
	}()
	return fn(ic)
}

func (ic *IsolatedContext) teardown() {
	ic.mu.Lock()
	ic.closed = true
	ic.mu.Unlock()
}

// CreateCredential registers email with password.
func (ic *IsolatedContext) CreateCredential(ctx context.Context, email, password string) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.closed {
		return ErrContextClosed
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), ic.p.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	now := ic.p.now()
	email = NormalizeEmail(email)
	err = ic.p.creds.Create(ctx, &models.Credential{Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now})
	if errors.Is(err, ErrCredentialExists) {
		return ErrAlreadyClaimed
	}
	return err
}
