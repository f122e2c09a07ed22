// Package gormstore keeps records in postgres. Transactions run at
// SERIALIZABLE isolation and lock what they read; serialization failures
// and deadlocks are reported as store.ErrConflict and re-run.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/types"
)

type Store struct {
	db          *gorm.DB
	feed        changefeed.Publisher
	maxAttempts int
	l           *zap.SugaredLogger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, feed changefeed.Publisher, maxAttempts int, l *zap.SugaredLogger) *Store {
	return &Store{db: db, feed: feed, maxAttempts: maxAttempts, l: l}
}

// isConflict reports postgres errors after which a transaction may succeed
// when re-run.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

func (s *Store) publish(ctx context.Context, events []changefeed.Event) {
	if s.feed == nil || len(events) == 0 {
		return
	}
	if err := s.feed.Publish(ctx, events...); err != nil {
		s.l.Warnw("gormstore: publish change events failed", "err", err)
	}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var t *tx
	err := store.Retry(ctx, s.maxAttempts, func() error {
		t = &tx{}
		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			t.db = gtx
			return fn(ctx, t)
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
		return classify(err)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, t.events)
	return nil
}

func (s *Store) NewBatch() store.Batch {
	return &batch{s: s}
}

func (s *Store) GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	var m models.Subscriber
	if err := s.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) ListSubscribers(ctx context.Context, q store.SubscriberQuery) ([]*models.Subscriber, error) {
	db := s.db.WithContext(ctx).Model(&models.Subscriber{})
	if needle := strings.TrimSpace(q.NameContains); needle != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+likeEscaper.Replace(strings.ToLower(needle))+"%")
	}
	var rows []*models.Subscriber
	if err := db.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var m models.Product
	if err := s.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var rows []*models.Product
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	var m models.Sale
	if err := s.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

func (s *Store) ListRecentSales(ctx context.Context, limit int) ([]*models.Sale, error) {
	q := s.db.WithContext(ctx).Order("sold_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []*models.Sale
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListPaymentsBySubscriber(ctx context.Context, subscriberID string) ([]*models.Payment, error) {
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("paid_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (s *Store) ListPaymentsSince(ctx context.Context, since time.Time) ([]*models.Payment, error) {
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("paid_at >= ?", since).
		Order("paid_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (s *Store) ListSalesBySubscriber(ctx context.Context, subscriberID string) ([]*models.Sale, error) {
	var rows []*models.Sale
	err := s.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("sold_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// scannable whitelists the columns admin filters and sorting may name,
// since CommonFilter writes the field into SQL as is.
var scannable = map[string]map[string]bool{
	store.CollectionPayments: {"id": true, "subscriber_id": true, "amount": true, "paid_at": true, "method": true},
	store.CollectionSales:    {"id": true, "product_id": true, "subscriber_id": true, "quantity": true, "total": true, "sold_at": true},
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func scan[T any](ctx context.Context, db *gorm.DB, collection string, req store.ScanRequest, defaultSort string) ([]T, int64, error) {
	req.Normalize()
	allowed := scannable[collection]
	for _, f := range req.Filters {
		if f == nil || !allowed[f.Field] {
			return nil, 0, apperr.Validation("unsupported filter field").WithDetail("%q", fieldOf(f))
		}
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = defaultSort
	}
	if !allowed[sortBy] {
		return nil, 0, apperr.Validation("unsupported sort field").WithDetail("%q", sortBy)
	}

	var model T
	q := db.WithContext(ctx).Model(&model)
	if len(req.Filters) > 0 {
		q = q.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", collection, err)
	}

	desc := req.SortOrder != "asc"
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: sortBy}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}).Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", collection, err)
	}
	return rows, total, nil
}

func fieldOf(f *types.CommonFilter) string {
	if f == nil {
		return ""
	}
	return f.Field
}

func (s *Store) ScanPayments(ctx context.Context, req store.ScanRequest) ([]*models.Payment, int64, error) {
	rows, total, err := scan[models.Payment](ctx, s.db, store.CollectionPayments, req, "paid_at")
	return ptrs(rows), total, err
}

func (s *Store) ScanSales(ctx context.Context, req store.ScanRequest) ([]*models.Sale, int64, error) {
	rows, total, err := scan[models.Sale](ctx, s.db, store.CollectionSales, req, "sold_at")
	return ptrs(rows), total, err
}

func ptrs[T any](rows []T) []*T {
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func (s *Store) ListAdmins(ctx context.Context) ([]*models.Administrator, error) {
	var rows []*models.Administrator
	err := s.db.WithContext(ctx).Order("created_at ASC, email ASC").Find(&rows).Error
	return rows, err
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Administrator, error) {
	var m models.Administrator
	if err := s.db.WithContext(ctx).Take(&m, "email = ?", email).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Administrator{}).Count(&n).Error
	return n, err
}
