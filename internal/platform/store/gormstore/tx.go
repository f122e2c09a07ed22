package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
)

type tx struct {
	db     *gorm.DB
	events []changefeed.Event
}

func (t *tx) record(collection, id string, op changefeed.Op) {
	t.events = append(t.events, changefeed.Event{Collection: collection, ID: id, Op: op, At: time.Now()})
}

// forUpdate locks the rows a transaction reads so a concurrent writer
// waits instead of producing a lost update.
func (t *tx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *tx) GetSubscriber(_ context.Context, id string) (*models.Subscriber, error) {
	var m models.Subscriber
	if err := t.forUpdate().Take(&m, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

func (t *tx) GetProduct(_ context.Context, id string) (*models.Product, error) {
	var m models.Product
	if err := t.forUpdate().Take(&m, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

func (t *tx) GetSale(_ context.Context, id string) (*models.Sale, error) {
	var m models.Sale
	if err := t.forUpdate().Take(&m, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

func (t *tx) GetAdmin(_ context.Context, email string) (*models.Administrator, error) {
	var m models.Administrator
	if err := t.forUpdate().Take(&m, "email = ?", email).Error; err != nil {
		return nil, classify(err)
	}
	return &m, nil
}

// CountAdmins relies on SERIALIZABLE predicate locking; a concurrent insert
// makes one of the two transactions fail with a serialization error.
func (t *tx) CountAdmins(_ context.Context) (int64, error) {
	var n int64
	err := t.db.Model(&models.Administrator{}).Count(&n).Error
	return n, classify(err)
}

// The child listings lock the rows they find; SERIALIZABLE predicate
// locking covers rows inserted after the read.
func (t *tx) ListPaymentsBySubscriber(_ context.Context, subscriberID string) ([]*models.Payment, error) {
	var rows []*models.Payment
	err := t.forUpdate().Where("subscriber_id = ?", subscriberID).Find(&rows).Error
	return rows, classify(err)
}

func (t *tx) ListSalesBySubscriber(_ context.Context, subscriberID string) ([]*models.Sale, error) {
	var rows []*models.Sale
	err := t.forUpdate().Where("subscriber_id = ?", subscriberID).Find(&rows).Error
	return rows, classify(err)
}

func (t *tx) SaveSubscriber(_ context.Context, s *models.Subscriber) error {
	if err := t.db.Save(s).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionSubscribers, s.ID, changefeed.OpPut)
	return nil
}

func (t *tx) SaveProduct(_ context.Context, p *models.Product) error {
	if err := t.db.Save(p).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionProducts, p.ID, changefeed.OpPut)
	return nil
}

func (t *tx) SaveAdmin(_ context.Context, a *models.Administrator) error {
	if err := t.db.Save(a).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionAdmins, a.Email, changefeed.OpPut)
	return nil
}

func (t *tx) CreatePayment(_ context.Context, p *models.Payment) error {
	if err := t.db.Create(p).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionPayments, p.ID, changefeed.OpPut)
	return nil
}

func (t *tx) CreateSale(_ context.Context, s *models.Sale) error {
	if err := t.db.Create(s).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionSales, s.ID, changefeed.OpPut)
	return nil
}

func (t *tx) DeleteSubscriber(_ context.Context, id string) error {
	if err := t.db.Delete(&models.Subscriber{}, "id = ?", id).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionSubscribers, id, changefeed.OpDelete)
	return nil
}

func (t *tx) DeletePayment(_ context.Context, id string) error {
	if err := t.db.Delete(&models.Payment{}, "id = ?", id).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionPayments, id, changefeed.OpDelete)
	return nil
}

func (t *tx) DeleteSale(_ context.Context, id string) error {
	if err := t.db.Delete(&models.Sale{}, "id = ?", id).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionSales, id, changefeed.OpDelete)
	return nil
}

func (t *tx) DeleteProduct(_ context.Context, id string) error {
	if err := t.db.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionProducts, id, changefeed.OpDelete)
	return nil
}

func (t *tx) DeleteAdmin(_ context.Context, email string) error {
	if err := t.db.Delete(&models.Administrator{}, "email = ?", email).Error; err != nil {
		return classify(err)
	}
	t.record(store.CollectionAdmins, email, changefeed.OpDelete)
	return nil
}

type batchOp struct {
	collection string
	id         string
	value      any // nil deletes
}

type batch struct {
	s   *Store
	ops []batchOp
}

func (b *batch) Set(v any) {
	collection, id := identify(v)
	b.ops = append(b.ops, batchOp{collection: collection, id: id, value: v})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id})
}

func identify(v any) (string, string) {
	switch r := v.(type) {
	case *models.Subscriber:
		return store.CollectionSubscribers, r.ID
	case *models.Product:
		return store.CollectionProducts, r.ID
	case *models.Payment:
		return store.CollectionPayments, r.ID
	case *models.Sale:
		return store.CollectionSales, r.ID
	case *models.Administrator:
		return store.CollectionAdmins, r.Email
	}
	panic(fmt.Sprintf("gormstore: unsupported record %T", v))
}

var tables = map[string]struct {
	model  func() any
	column string
}{
	store.CollectionSubscribers: {func() any { return &models.Subscriber{} }, "id"},
	store.CollectionProducts:    {func() any { return &models.Product{} }, "id"},
	store.CollectionPayments:    {func() any { return &models.Payment{} }, "id"},
	store.CollectionSales:       {func() any { return &models.Sale{} }, "id"},
	store.CollectionAdmins:      {func() any { return &models.Administrator{} }, "email"},
}

// Commit applies the operations in order inside one transaction.
func (b *batch) Commit(ctx context.Context) error {
	var events []changefeed.Event
	err := store.Retry(ctx, b.s.maxAttempts, func() error {
		events = events[:0]
		err := b.s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			for _, op := range b.ops {
				ev := changefeed.Event{Collection: op.collection, ID: op.id, Op: changefeed.OpPut, At: time.Now()}
				if op.value != nil {
					if err := gtx.Save(op.value).Error; err != nil {
						return err
					}
				} else {
					tbl, ok := tables[op.collection]
					if !ok {
						return fmt.Errorf("gormstore: unknown collection %q", op.collection)
					}
					if err := gtx.Where(clause.Eq{Column: clause.Column{Name: tbl.column}, Value: op.id}).Delete(tbl.model()).Error; err != nil {
						return err
					}
					ev.Op = changefeed.OpDelete
				}
				events = append(events, ev)
			}
			return nil
		})
		return classify(err)
	})
	if err != nil {
		return err
	}
	b.s.publish(ctx, events)
	return nil
}
