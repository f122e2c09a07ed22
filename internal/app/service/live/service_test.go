package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/app/service/inventory"
	"github.com/fatflowers/gymdesk/internal/app/service/membership"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/store/memstore"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
)

func newLive(t *testing.T) (*Service, *membership.Service, *inventory.Service) {
	t.Helper()
	feed := changefeed.NewBroadcaster()
	st := memstore.New(memstore.Options{Feed: feed})
	cfg := &config.Config{Membership: config.MembershipConfig{ContractTotal: 1500, Currency: "DA"}}
	log := zap.NewNop().Sugar()
	m := membership.NewService(cfg, st, events.Noop{}, log)
	inv := inventory.NewService(st, events.Noop{}, log)
	return NewService(feed, m, inv, nil, log), m, inv
}

func TestSubscribers_SnapshotAfterEnroll(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := newLive(t)

	h := svc.Subscribers(ctx, "")
	defer h.Close()
	require.Empty(t, next(t, h))

	_, err := m.Enroll(ctx, membership.EnrollInput{Name: "Amina", StartDate: time.Now(), Amount: 500})
	require.NoError(t, err)

	views := next(t, h)
	require.Len(t, views, 1)
	require.Equal(t, "Amina", views[0].Name)
	require.Equal(t, int64(1000), views[0].Remaining)
}

func TestContracts_EndsWhenSubscriberDeleted(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := newLive(t)
	sub, err := m.Enroll(ctx, membership.EnrollInput{Name: "Yacine", StartDate: time.Now(), Amount: 0})
	require.NoError(t, err)

	h := svc.Contracts(ctx, sub.ID)
	require.Len(t, next(t, h), 1)

	require.NoError(t, m.Delete(ctx, sub.ID))
	_, ok := <-h.C
	require.False(t, ok)
	require.ErrorIs(t, h.Err(), apperr.ErrSubscriberNotFound)
}

func TestProducts_SnapshotAfterCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, inv := newLive(t)

	h := svc.Products(ctx)
	defer h.Close()
	require.Empty(t, next(t, h))

	_, err := inv.CreateProduct(ctx, inventory.ProductInput{Name: "Protein bar", Price: 250, Stock: 10, Unit: "piece"})
	require.NoError(t, err)
	products := next(t, h)
	require.Len(t, products, 1)
	require.Equal(t, int64(10), products[0].Stock)
}
