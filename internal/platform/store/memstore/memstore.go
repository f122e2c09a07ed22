// Package memstore is an in-process store with optimistic concurrency:
// transactions record the version of everything they read and commit only
// if none of it changed, otherwise they are re-run.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/types"
)

type key struct {
	collection string
	id         string
}

// wholeCollection is the read-set key of queries spanning a collection.
const wholeCollection = "*"

type record struct {
	value   any
	version uint64
}

// Op is one write handed to the commit hook.
type Op struct {
	Collection string
	ID         string
	Delete     bool
}

// CommitHook runs under the store lock before a commit is applied. A
// non-nil error aborts the commit with nothing written.
type CommitHook func(ops []Op) error

type Options struct {
	Feed        changefeed.Publisher
	MaxAttempts int
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

type Store struct {
	mu       sync.RWMutex
	records  map[key]record
	versions map[key]uint64
	clock    uint64
	hook     CommitHook

	feed        changefeed.Publisher
	maxAttempts int
	l           *zap.SugaredLogger
	now         func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(opts Options) *Store {
	s := &Store{
		records:     make(map[key]record),
		versions:    make(map[key]uint64),
		feed:        opts.Feed,
		maxAttempts: opts.MaxAttempts,
		l:           opts.Logger,
		now:         opts.Now,
	}
	if s.l == nil {
		s.l = zap.NewNop().Sugar()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SetCommitHook installs h for subsequent commits; nil removes it.
func (s *Store) SetCommitHook(h CommitHook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

// version returns the current version of k, zero when absent.
// Callers hold s.mu.
func (s *Store) version(k key) uint64 {
	return s.versions[k]
}

// apply writes ops atomically. Callers hold s.mu for writing.
func (s *Store) apply(writes []write) []changefeed.Event {
	s.clock++
	at := s.now()
	events := make([]changefeed.Event, 0, len(writes))
	for _, w := range writes {
		if w.value == nil {
			delete(s.records, w.key)
		} else {
			s.records[w.key] = record{value: w.value, version: s.clock}
		}
		s.versions[w.key] = s.clock
		s.versions[key{w.key.collection, wholeCollection}] = s.clock

		op := changefeed.OpPut
		if w.value == nil {
			op = changefeed.OpDelete
		}
		events = append(events, changefeed.Event{Collection: w.key.collection, ID: w.key.id, Op: op, At: at})
	}
	return events
}

func (s *Store) publish(ctx context.Context, events []changefeed.Event) {
	if s.feed == nil || len(events) == 0 {
		return
	}
	if err := s.feed.Publish(ctx, events...); err != nil {
		s.l.Warnw("memstore: publish change events failed", "err", err)
	}
}

type write struct {
	key   key
	value any // nil deletes
}

func opsOf(writes []write) []Op {
	ops := make([]Op, len(writes))
	for i, w := range writes {
		ops[i] = Op{Collection: w.key.collection, ID: w.key.id, Delete: w.value == nil}
	}
	return ops
}

func clone(v any) any {
	switch r := v.(type) {
	case *models.Subscriber:
		return r.Clone()
	case *models.Product:
		cp := *r
		return &cp
	case *models.Payment:
		cp := *r
		return &cp
	case *models.Sale:
		cp := *r
		return &cp
	case *models.Administrator:
		cp := *r
		return &cp
	}
	panic(fmt.Sprintf("memstore: unsupported record %T", v))
}

func keyOf(v any) key {
	switch r := v.(type) {
	case *models.Subscriber:
		return key{store.CollectionSubscribers, r.ID}
	case *models.Product:
		return key{store.CollectionProducts, r.ID}
	case *models.Payment:
		return key{store.CollectionPayments, r.ID}
	case *models.Sale:
		return key{store.CollectionSales, r.ID}
	case *models.Administrator:
		return key{store.CollectionAdmins, r.Email}
	}
	panic(fmt.Sprintf("memstore: unsupported record %T", v))
}

// get returns a copy of the record at k. Callers hold s.mu.
func (s *Store) get(k key) (any, bool) {
	r, ok := s.records[k]
	if !ok {
		return nil, false
	}
	return clone(r.value), true
}

// scan returns copies of every record of collection. Callers hold s.mu.
func scan[T any](s *Store, collection string) []T {
	var out []T
	for k, r := range s.records {
		if k.collection == collection {
			out = append(out, clone(r.value).(T))
		}
	}
	return out
}

func getTyped[T any](s *Store, collection, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.get(key{collection, id})
	if !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	return v.(T), nil
}

func listTyped[T any](s *Store, collection string) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan[T](s, collection)
}

func (s *Store) GetSubscriber(_ context.Context, id string) (*models.Subscriber, error) {
	return getTyped[*models.Subscriber](s, store.CollectionSubscribers, id)
}

func (s *Store) ListSubscribers(_ context.Context, q store.SubscriberQuery) ([]*models.Subscriber, error) {
	all := listTyped[*models.Subscriber](s, store.CollectionSubscribers)
	needle := strings.ToLower(strings.TrimSpace(q.NameContains))
	out := all[:0]
	for _, sub := range all {
		if needle == "" || strings.Contains(strings.ToLower(sub.Name), needle) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*models.Product, error) {
	return getTyped[*models.Product](s, store.CollectionProducts, id)
}

func (s *Store) ListProducts(_ context.Context) ([]*models.Product, error) {
	out := listTyped[*models.Product](s, store.CollectionProducts)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*models.Sale, error) {
	return getTyped[*models.Sale](s, store.CollectionSales, id)
}

func newestSalesFirst(sales []*models.Sale) {
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].SoldAt.Equal(sales[j].SoldAt) {
			return sales[i].SoldAt.After(sales[j].SoldAt)
		}
		return sales[i].ID > sales[j].ID
	})
}

func newestPaymentsFirst(payments []*models.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.After(payments[j].PaidAt)
		}
		return payments[i].ID > payments[j].ID
	})
}

func (s *Store) ListRecentSales(_ context.Context, limit int) ([]*models.Sale, error) {
	out := listTyped[*models.Sale](s, store.CollectionSales)
	newestSalesFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListPaymentsBySubscriber(_ context.Context, subscriberID string) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range listTyped[*models.Payment](s, store.CollectionPayments) {
		if p.SubscriberID == subscriberID {
			out = append(out, p)
		}
	}
	newestPaymentsFirst(out)
	return out, nil
}

func (s *Store) ListPaymentsSince(_ context.Context, since time.Time) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range listTyped[*models.Payment](s, store.CollectionPayments) {
		if !p.PaidAt.Before(since) {
			out = append(out, p)
		}
	}
	newestPaymentsFirst(out)
	return out, nil
}

func (s *Store) ListSalesBySubscriber(_ context.Context, subscriberID string) ([]*models.Sale, error) {
	var out []*models.Sale
	for _, sale := range listTyped[*models.Sale](s, store.CollectionSales) {
		if sale.SubscriberID == subscriberID {
			out = append(out, sale)
		}
	}
	newestSalesFirst(out)
	return out, nil
}

type fielder interface {
	Field(name string) (any, bool)
}

// scanPage filters, sorts and pages rows the way the SQL store does.
func scanPage[T fielder](rows []T, req store.ScanRequest, defaultSort string) ([]T, int64) {
	req.Normalize()
	matched := make([]T, 0, len(rows))
	for _, r := range rows {
		if types.MatchAll(req.Filters, r.Field) {
			matched = append(matched, r)
		}
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = defaultSort
	}
	asc := req.SortOrder == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		a, _ := matched[i].Field(sortBy)
		b, _ := matched[j].Field(sortBy)
		c := compare(a, b)
		if c == 0 {
			ai, _ := matched[i].Field("id")
			bi, _ := matched[j].Field("id")
			c = compare(ai, bi)
		}
		if asc {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(matched))
	if req.From >= len(matched) {
		return []T{}, total
	}
	end := req.From + req.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[req.From:end], total
}

func compare(a, b any) int {
	c, _ := types.CompareValues(a, b)
	return c
}

func (s *Store) ScanPayments(_ context.Context, req store.ScanRequest) ([]*models.Payment, int64, error) {
	rows, total := scanPage(listTyped[*models.Payment](s, store.CollectionPayments), req, "paid_at")
	return rows, total, nil
}

func (s *Store) ScanSales(_ context.Context, req store.ScanRequest) ([]*models.Sale, int64, error) {
	rows, total := scanPage(listTyped[*models.Sale](s, store.CollectionSales), req, "sold_at")
	return rows, total, nil
}

func (s *Store) ListAdmins(_ context.Context) ([]*models.Administrator, error) {
	out := listTyped[*models.Administrator](s, store.CollectionAdmins)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *Store) GetAdminByEmail(_ context.Context, email string) (*models.Administrator, error) {
	return getTyped[*models.Administrator](s, store.CollectionAdmins, email)
}

func (s *Store) CountAdmins(_ context.Context) (int64, error) {
	return int64(len(listTyped[*models.Administrator](s, store.CollectionAdmins))), nil
}
