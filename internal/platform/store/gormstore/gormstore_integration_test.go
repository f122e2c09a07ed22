//go:build integration

package gormstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gymdesk"),
		postgres.WithUsername("gym"),
		postgres.WithPassword("gym"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Subscriber{}, &models.Payment{}, &models.Product{},
		&models.Sale{}, &models.Administrator{},
	))
	return New(db, changefeed.NewBroadcaster(), 50, zap.NewNop().Sugar())
}

func TestIntegration_ConcurrentDecrementsNeverOversell(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveProduct(ctx, &models.Product{ID: "p1", Name: "Water", Price: 50, Stock: 10})
	}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
				p, err := tx.GetProduct(ctx, "p1")
				if err != nil {
					return err
				}
				if p.Stock < 1 {
					return nil
				}
				p.Stock--
				if err := tx.SaveProduct(ctx, p); err != nil {
					return err
				}
				mu.Lock()
				sold++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(0), p.Stock)
	require.GreaterOrEqual(t, sold, 10)
}

func TestIntegration_BatchAndScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	b := s.NewBatch()
	b.Set(&models.Subscriber{ID: "s1", Name: "Nadia", History: []models.Contract{{StartDate: now, EndDate: types.AddCalendarMonth(now), TotalAmount: 1500}}})
	b.Set(&models.Payment{ID: "pay1", SubscriberID: "s1", Amount: 300, PaidAt: now, Method: types.PaymentMethodInitial})
	b.Set(&models.Payment{ID: "pay2", SubscriberID: "s1", Amount: 200, PaidAt: now.Add(time.Minute), Method: types.PaymentMethodManual})
	require.NoError(t, b.Commit(ctx))

	sub, err := s.GetSubscriber(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sub.History, 1)

	rows, total, err := s.ScanPayments(ctx, store.ScanRequest{
		Filters: []*types.CommonFilter{{Field: "method", Operator: types.CommonFilterOperatorEq, Values: []any{"manual"}}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "pay2", rows[0].ID)

	del := s.NewBatch()
	del.Delete(store.CollectionPayments, "pay1")
	del.Delete(store.CollectionPayments, "pay2")
	del.Delete(store.CollectionSubscribers, "s1")
	require.NoError(t, del.Commit(ctx))
	_, err = s.GetSubscriber(ctx, "s1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIntegration_CascadeInTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SaveSubscriber(ctx, &models.Subscriber{ID: "s1", Name: "Nadia"}); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, &models.Payment{ID: "pay-1", SubscriberID: "s1", Amount: 300, PaidAt: time.Now()}); err != nil {
			return err
		}
		return tx.CreateSale(ctx, &models.Sale{ID: "sale-1", ProductID: "p1", Quantity: 1, SubscriberID: "s1", SoldAt: time.Now()})
	}))

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		pays, err := tx.ListPaymentsBySubscriber(ctx, "s1")
		if err != nil {
			return err
		}
		sales, err := tx.ListSalesBySubscriber(ctx, "s1")
		if err != nil {
			return err
		}
		require.Len(t, pays, 1)
		require.Len(t, sales, 1)
		if err := tx.DeletePayment(ctx, pays[0].ID); err != nil {
			return err
		}
		if err := tx.DeleteSale(ctx, sales[0].ID); err != nil {
			return err
		}
		return tx.DeleteSubscriber(ctx, "s1")
	}))

	_, err := s.GetSubscriber(ctx, "s1")
	require.ErrorIs(t, err, store.ErrNotFound)
	pays, err := s.ListPaymentsBySubscriber(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, pays)
}
