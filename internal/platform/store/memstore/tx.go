package memstore

import (
	"context"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
)

type tx struct {
	s       *Store
	readSet map[key]uint64
	writes  []write
	pending map[key]any // latest buffered write per key, nil for delete
}

func (t *tx) read(k key) (any, bool) {
	if v, ok := t.pending[k]; ok {
		if v == nil {
			return nil, false
		}
		return clone(v), true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if _, seen := t.readSet[k]; !seen {
		t.readSet[k] = t.s.version(k)
	}
	return t.s.get(k)
}

func (t *tx) put(v any) {
	v = clone(v)
	k := keyOf(v)
	t.writes = append(t.writes, write{key: k, value: v})
	t.pending[k] = v
}

func (t *tx) del(collection, id string) {
	k := key{collection, id}
	t.writes = append(t.writes, write{key: k})
	t.pending[k] = nil
}

func txGet[T any](t *tx, collection, id string) (T, error) {
	v, ok := t.read(key{collection, id})
	if !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	return v.(T), nil
}

func (t *tx) GetSubscriber(_ context.Context, id string) (*models.Subscriber, error) {
	return txGet[*models.Subscriber](t, store.CollectionSubscribers, id)
}

func (t *tx) GetProduct(_ context.Context, id string) (*models.Product, error) {
	return txGet[*models.Product](t, store.CollectionProducts, id)
}

func (t *tx) GetSale(_ context.Context, id string) (*models.Sale, error) {
	return txGet[*models.Sale](t, store.CollectionSales, id)
}

func (t *tx) GetAdmin(_ context.Context, email string) (*models.Administrator, error) {
	return txGet[*models.Administrator](t, store.CollectionAdmins, email)
}

// txList returns the records of collection accepted by keep, with the
// transaction's own writes applied.
func txList[T any](t *tx, collection string, keep func(T) bool) []T {
	t.s.mu.RLock()
	k := key{collection, wholeCollection}
	if _, seen := t.readSet[k]; !seen {
		t.readSet[k] = t.s.version(k)
	}
	all := scan[T](t.s, collection)
	t.s.mu.RUnlock()

	var out []T
	for _, v := range all {
		if _, written := t.pending[keyOf(v)]; written {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	for pk, v := range t.pending {
		if pk.collection != collection || v == nil {
			continue
		}
		if r := clone(v).(T); keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (t *tx) ListPaymentsBySubscriber(_ context.Context, subscriberID string) ([]*models.Payment, error) {
	return txList(t, store.CollectionPayments, func(p *models.Payment) bool { return p.SubscriberID == subscriberID }), nil
}

func (t *tx) ListSalesBySubscriber(_ context.Context, subscriberID string) ([]*models.Sale, error) {
	return txList(t, store.CollectionSales, func(s *models.Sale) bool { return s.SubscriberID == subscriberID }), nil
}

func (t *tx) CountAdmins(_ context.Context) (int64, error) {
	t.s.mu.RLock()
	k := key{store.CollectionAdmins, wholeCollection}
	if _, seen := t.readSet[k]; !seen {
		t.readSet[k] = t.s.version(k)
	}
	n := make(map[string]bool)
	for rk := range t.s.records {
		if rk.collection == store.CollectionAdmins {
			n[rk.id] = true
		}
	}
	t.s.mu.RUnlock()

	for pk, v := range t.pending {
		if pk.collection == store.CollectionAdmins {
			n[pk.id] = v != nil
		}
	}
	var count int64
	for _, present := range n {
		if present {
			count++
		}
	}
	return count, nil
}

func (t *tx) SaveSubscriber(_ context.Context, s *models.Subscriber) error {
	t.put(s)
	return nil
}

func (t *tx) SaveProduct(_ context.Context, p *models.Product) error {
	t.put(p)
	return nil
}

func (t *tx) SaveAdmin(_ context.Context, a *models.Administrator) error {
	t.put(a)
	return nil
}

func (t *tx) CreatePayment(_ context.Context, p *models.Payment) error {
	t.put(p)
	return nil
}

func (t *tx) CreateSale(_ context.Context, s *models.Sale) error {
	t.put(s)
	return nil
}

func (t *tx) DeleteSubscriber(_ context.Context, id string) error {
	t.del(store.CollectionSubscribers, id)
	return nil
}

func (t *tx) DeletePayment(_ context.Context, id string) error {
	t.del(store.CollectionPayments, id)
	return nil
}

func (t *tx) DeleteSale(_ context.Context, id string) error {
	t.del(store.CollectionSales, id)
	return nil
}

func (t *tx) DeleteProduct(_ context.Context, id string) error {
	t.del(store.CollectionProducts, id)
	return nil
}

func (t *tx) DeleteAdmin(_ context.Context, email string) error {
	t.del(store.CollectionAdmins, email)
	return nil
}

// commit validates the read set and applies the buffered writes.
func (t *tx) commit() ([]changefeed.Event, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for k, v := range t.readSet {
		if t.s.version(k) != v {
			return nil, store.ErrConflict
		}
	}
	if len(t.writes) == 0 {
		return nil, nil
	}
	if t.s.hook != nil {
		if err := t.s.hook(opsOf(t.writes)); err != nil {
			return nil, err
		}
	}
	return t.s.apply(t.writes), nil
}

// RunInTx re-runs fn on a fresh transaction whenever its commit finds a
// record it read was changed by someone else.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var events []changefeed.Event
	err := store.Retry(ctx, s.maxAttempts, func() error {
		t := &tx{s: s, readSet: make(map[key]uint64), pending: make(map[key]any)}
		if err := fn(ctx, t); err != nil {
			return err
		}
		var err error
		events, err = t.commit()
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

type batch struct {
	s      *Store
	writes []write
}

func (s *Store) NewBatch() store.Batch {
	return &batch{s: s}
}

func (b *batch) Set(v any) {
	v = clone(v)
	b.writes = append(b.writes, write{key: keyOf(v), value: v})
}

func (b *batch) Delete(collection, id string) {
	b.writes = append(b.writes, write{key: key{collection, id}})
}

func (b *batch) Commit(ctx context.Context) error {
	b.s.mu.Lock()
	if b.s.hook != nil {
		if err := b.s.hook(opsOf(b.writes)); err != nil {
			b.s.mu.Unlock()
			return err
		}
	}
	events := b.s.apply(b.writes)
	b.s.mu.Unlock()
	b.s.publish(ctx, events)
	return nil
}
