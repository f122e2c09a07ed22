package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/internal/platform/store/memstore"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/tool"
)

func at(s string) time.Time {
	t, err := time.Parse(time.DateTime, s)
	if err != nil {
		panic(err)
	}
	return t
}

func subscriber(id string, start, end string, paid int64) *models.Subscriber {
	sub := &models.Subscriber{ID: id, Name: id}
	sub.AppendContract(models.Contract{
		StartDate: at(start + " 00:00:00"), EndDate: at(end + " 00:00:00"), TotalAmount: 1500, AmountPaid: paid,
	})
	return sub
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	st := memstore.New(memstore.Options{})
	b := st.NewBatch()
	b.Set(subscriber("active", "2024-03-01", "2024-04-01", 1000))
	b.Set(subscriber("ends-today", "2024-02-20", "2024-03-20", 1500))
	b.Set(subscriber("expired", "2024-01-01", "2024-02-01", 500))
	b.Set(&models.Payment{ID: "p-old", Amount: 900, PaidAt: at("2024-02-28 23:59:59")})
	b.Set(&models.Payment{ID: "p1", Amount: 1000, PaidAt: at("2024-03-01 00:00:00")})
	b.Set(&models.Payment{ID: "p2", Amount: 200, PaidAt: at("2024-03-05 12:00:00")})
	b.Set(&models.Payment{ID: "p3", Amount: 300, PaidAt: at("2024-03-05 18:00:00")})
	b.Set(&models.Sale{ID: "s-old", Total: 700, SoldAt: at("2024-02-10 10:00:00")})
	b.Set(&models.Sale{ID: "s1", Total: 250, SoldAt: at("2024-03-02 10:00:00")})
	require.NoError(t, b.Commit(ctx))

	cfg := &config.Config{Membership: config.MembershipConfig{Currency: "DA"}}
	svc := New(cfg, st).WithClock(tool.FixedClock(at("2024-03-20 21:00:00")))

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, "2024-03", d.Month)
	require.Equal(t, int64(3), d.Values[StatisticTypeTotalSubscribers])
	require.Equal(t, int64(2), d.Values[StatisticTypeActiveSubscribers])
	require.Equal(t, int64(1), d.Values[StatisticTypeExpiredSubscribers])
	require.Equal(t, int64(500+1000), d.Values[StatisticTypeOutstandingBalance])
	require.Equal(t, int64(1500), d.Values[StatisticTypeMonthlyRevenue])
	require.Equal(t, int64(250), d.Values[StatisticTypeMonthlySalesRevenue])
	require.Equal(t, []DailyDataItem{{Date: "2024-03-01", Value: 1000}, {Date: "2024-03-05", Value: 500}}, d.DailyRevenue)
}

type failingReader struct {
	store.Store
}

func (failingReader) ListSubscribers(context.Context, store.SubscriberQuery) ([]*models.Subscriber, error) {
	return nil, errors.New("connection refused")
}

func TestDashboard_StoreFailure(t *testing.T) {
	svc := New(&config.Config{}, failingReader{Store: memstore.New(memstore.Options{})})
	_, err := svc.Dashboard(context.Background())
	require.Equal(t, apperr.KindStore, apperr.KindOf(err))
}

func TestCountSubscribers_NoContractIsExpired(t *testing.T) {
	c := countSubscribers([]*models.Subscriber{{ID: "bare"}}, time.Now())
	require.Equal(t, int64(1), c.expired)
}
