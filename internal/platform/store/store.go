// Package store is the record store behind every consistency operation:
// typed reads, serializable read-check-write transactions that are re-run
// on conflict, and unconditional atomic batches.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/pkg/types"
)

const (
	CollectionSubscribers = "subscribers"
	CollectionPayments    = "payments"
	CollectionProducts    = "products"
	CollectionSales       = "sales"
	CollectionAdmins      = "administrators"
)

var (
	// ErrNotFound is returned by single-record reads. Services translate it
	// into the matching domain error.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict marks a transaction that lost a race and may be re-run.
	ErrConflict = errors.New("store: serialization conflict")
)

// SubscriberQuery narrows ListSubscribers. Results are ordered by name.
type SubscriberQuery struct {
	// NameContains matches case-insensitively; empty matches everyone.
	NameContains string
}

// ScanRequest pages through payments or sales with admin filters.
type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// Normalize applies paging defaults and bounds.
func (r *ScanRequest) Normalize() {
	if r.Size <= 0 {
		r.Size = 20
	}
	if r.Size > 500 {
		r.Size = 500
	}
	if r.From < 0 {
		r.From = 0
	}
}

// Reader serves the projections. Reads are not part of any transaction and
// reflect the latest committed state.
type Reader interface {
	GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	ListSubscribers(ctx context.Context, q SubscriberQuery) ([]*models.Subscriber, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetSale(ctx context.Context, id string) (*models.Sale, error)
	// ListRecentSales returns the newest sales first.
	ListRecentSales(ctx context.Context, limit int) ([]*models.Sale, error)
	// ListPaymentsBySubscriber returns newest first.
	ListPaymentsBySubscriber(ctx context.Context, subscriberID string) ([]*models.Payment, error)
	ListPaymentsSince(ctx context.Context, since time.Time) ([]*models.Payment, error)
	// ListSalesBySubscriber returns newest first.
	ListSalesBySubscriber(ctx context.Context, subscriberID string) ([]*models.Sale, error)
	ScanPayments(ctx context.Context, req ScanRequest) ([]*models.Payment, int64, error)
	ScanSales(ctx context.Context, req ScanRequest) ([]*models.Sale, int64, error)
	// ListAdmins returns administrators in the order they were added.
	ListAdmins(ctx context.Context) ([]*models.Administrator, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Administrator, error)
	CountAdmins(ctx context.Context) (int64, error)
}

// Tx is the view of the store inside RunInTx. Every read registers the
// record with the transaction; commit fails with ErrConflict when any of
// them changed in the meantime. Writes become visible only on commit.
type Tx interface {
	GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetSale(ctx context.Context, id string) (*models.Sale, error)
	GetAdmin(ctx context.Context, email string) (*models.Administrator, error)
	CountAdmins(ctx context.Context) (int64, error)
	// ListPaymentsBySubscriber and ListSalesBySubscriber register the whole
	// collection with the transaction, so a concurrent insert for the
	// subscriber makes the commit conflict.
	ListPaymentsBySubscriber(ctx context.Context, subscriberID string) ([]*models.Payment, error)
	ListSalesBySubscriber(ctx context.Context, subscriberID string) ([]*models.Sale, error)

	SaveSubscriber(ctx context.Context, s *models.Subscriber) error
	SaveProduct(ctx context.Context, p *models.Product) error
	SaveAdmin(ctx context.Context, a *models.Administrator) error
	CreatePayment(ctx context.Context, p *models.Payment) error
	CreateSale(ctx context.Context, s *models.Sale) error
	DeleteSubscriber(ctx context.Context, id string) error
	DeletePayment(ctx context.Context, id string) error
	DeleteSale(ctx context.Context, id string) error
	DeleteProduct(ctx context.Context, id string) error
	DeleteAdmin(ctx context.Context, email string) error
}

// Batch collects unconditional writes applied all together or not at all.
type Batch interface {
	// Set upserts a *models.Subscriber, *models.Product, *models.Payment,
	// *models.Sale or *models.Administrator.
	Set(record any)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

type Store interface {
	Reader
	// RunInTx runs fn in a transaction and commits its writes atomically.
	// fn may be called several times and must not have side effects
	// outside tx. Conflict retries are bounded; exhaustion is a store error.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	NewBatch() Batch
}
