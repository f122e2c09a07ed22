package inventory

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/internal/platform/store/memstore"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/tool"
)

var testNow = time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *memstore.Store
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New(memstore.Options{MaxAttempts: 1000})
	rec := events.NewRecorder()
	svc := NewService(st, rec, zap.NewNop().Sugar()).
		WithClock(tool.FixedClock(testNow)).
		WithIDs(tool.SequentialIDs("inv"))
	return &fixture{svc: svc, store: st, events: rec}
}

func (f *fixture) product(t *testing.T, stock int64) *models.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), ProductInput{Name: "Protein bar", Price: 250, Stock: stock, Unit: "piece"})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	p, err := f.svc.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestRecordSale_InsufficientStockScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 5)

	sale, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, int64(1250), sale.Total)
	require.Equal(t, "Protein bar", sale.ProductName)
	require.Equal(t, int64(0), f.stock(t, p.ID))

	_, err = f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 1})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	require.Equal(t, int64(0), f.stock(t, p.ID))
}

func TestRecordSale_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 5)

	_, err := f.svc.RecordSale(ctx, SaleInput{ProductID: "ghost", Quantity: 1})
	require.ErrorIs(t, err, apperr.ErrProductNotFound)

	_, err = f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 0})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 1, SubscriberID: "ghost"})
	require.ErrorIs(t, err, apperr.ErrSubscriberNotFound)
	require.Equal(t, int64(5), f.stock(t, p.ID), "rejected sale must not touch stock")
}

func TestRecordSale_TotalOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, ProductInput{Name: "Gold bar", Price: math.MaxInt64, Stock: 3})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.svc.CreateProduct(ctx, ProductInput{Name: "Water", Price: 50, Stock: math.MaxInt64})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// a price written outside the service, e.g. by a migration
	b := f.store.NewBatch()
	b.Set(&models.Product{ID: "legacy", Name: "Legacy", Price: math.MaxInt64 / 2, Stock: 10})
	require.NoError(t, b.Commit(ctx))

	_, err = f.svc.RecordSale(ctx, SaleInput{ProductID: "legacy", Quantity: 3})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Equal(t, int64(10), f.stock(t, "legacy"))
	require.Empty(t, f.events.Drain())
}

func TestRecordSale_SnapshotsSubscriberName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 5)
	b := f.store.NewBatch()
	b.Set(&models.Subscriber{ID: "s1", Name: "Yasmine"})
	require.NoError(t, b.Commit(ctx))

	sale, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 2, SubscriberID: "s1"})
	require.NoError(t, err)

	_, err = f.svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Renamed bar", Price: 300, Stock: 3})
	require.NoError(t, err)

	recent, err := f.svc.RecentSales(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, sale.ID, recent[0].ID)
	require.Equal(t, "Protein bar", recent[0].ProductName)
	require.Equal(t, "Yasmine", recent[0].SubscriberName)
}

func TestCancelSale_RestoresStockScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 10)

	sale, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, int64(8), f.stock(t, p.ID))

	require.NoError(t, f.svc.CancelSale(ctx, CancelSaleInput{SaleID: sale.ID, ProductID: p.ID, Quantity: 2}))
	require.Equal(t, int64(10), f.stock(t, p.ID))
	_, err = f.store.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	err = f.svc.CancelSale(ctx, CancelSaleInput{SaleID: sale.ID})
	require.ErrorIs(t, err, apperr.ErrSaleNotFound)
	require.Equal(t, int64(10), f.stock(t, p.ID), "double cancel must not restore twice")
}

func TestCancelSale_ToleratesMissingProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 3)
	sale, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))
	f.events.Drain()

	require.NoError(t, f.svc.CancelSale(ctx, CancelSaleInput{SaleID: sale.ID}))
	_, err = f.store.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	evs := f.events.Drain()
	require.Len(t, evs, 1)
	require.Equal(t, events.TypeSaleCancelled, evs[0].Type)
	require.Equal(t, false, evs[0].Payload.(map[string]any)["stock_restored"])
}

func TestCancelSale_MismatchIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 3)
	sale, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	err = f.svc.CancelSale(ctx, CancelSaleInput{SaleID: sale.ID, Quantity: 3})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Equal(t, int64(2), f.stock(t, p.ID))
}

func TestSales_ConcurrentNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := int64(0)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: 1})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrInsufficientStock), "%v", err)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(10), sold)
	require.Equal(t, int64(0), f.stock(t, p.ID))
}

func TestSales_ReplayKeepsStockConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const initial = 20
	p := f.product(t, initial)
	rng := rand.New(rand.NewSource(7))

	var open []*models.Sale
	var sold, cancelled int64
	for i := 0; i < 200; i++ {
		if len(open) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(open))
			s := open[idx]
			require.NoError(t, f.svc.CancelSale(ctx, CancelSaleInput{SaleID: s.ID}))
			cancelled += s.Quantity
			open = append(open[:idx], open[idx+1:]...)
		} else {
			qty := int64(rng.Intn(4) + 1)
			s, err := f.svc.RecordSale(ctx, SaleInput{ProductID: p.ID, Quantity: qty})
			if err != nil {
				require.ErrorIs(t, err, apperr.ErrInsufficientStock)
			} else {
				sold += qty
				open = append(open, s)
			}
		}
		stock := f.stock(t, p.ID)
		require.GreaterOrEqual(t, stock, int64(0))
		require.Equal(t, initial-(sold-cancelled), stock)
	}
}

func TestProductCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, ProductInput{Name: "", Price: 1})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.svc.CreateProduct(ctx, ProductInput{Name: "Water", Price: 50, Stock: -1})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	p := f.product(t, 4)
	list, err := f.svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.UpdateProduct(ctx, "ghost", ProductInput{Name: "x"})
	require.ErrorIs(t, err, apperr.ErrProductNotFound)

	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))
	require.ErrorIs(t, f.svc.DeleteProduct(ctx, p.ID), apperr.ErrProductNotFound)
}
