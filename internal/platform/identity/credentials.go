package identity

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/gymdesk/internal/models"
)

var ErrNoCredential = errors.New("identity: no credential for email")

// CredentialStore persists password hashes, keyed by email.
type CredentialStore interface {
	Get(ctx context.Context, email string) (*models.Credential, error)
	// Create fails with ErrCredentialExists when the email already has one.
	Create(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, email string) error
}

var ErrCredentialExists = errors.New("identity: credential already exists")

// NewCredentialStore uses postgres when db is open and memory otherwise.
func NewCredentialStore(db *gorm.DB) CredentialStore {
	if db == nil {
		return NewMemoryCredentials()
	}
	return &gormCredentials{db: db}
}

type gormCredentials struct {
	db *gorm.DB
}

func (g *gormCredentials) Get(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	err := g.db.WithContext(ctx).Take(&c, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (g *gormCredentials) Create(ctx context.Context, c *models.Credential) error {
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialExists
	}
	return nil
}

func (g *gormCredentials) Delete(ctx context.Context, email string) error {
	return g.db.WithContext(ctx).Delete(&models.Credential{}, "email = ?", email).Error
}

type MemoryCredentials struct {
	mu    sync.Mutex
	byKey map[string]models.Credential
}

func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{byKey: make(map[string]models.Credential)}
}

func (m *MemoryCredentials) Get(_ context.Context, email string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byKey[email]
	if !ok {
		return nil, ErrNoCredential
	}
	return &c, nil
}

func (m *MemoryCredentials) Create(_ context.Context, c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[c.Email]; ok {
		return ErrCredentialExists
	}
	m.byKey[c.Email] = *c
	return nil
}

func (m *MemoryCredentials) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, email)
	return nil
}
