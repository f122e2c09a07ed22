// Package statistics computes the dashboard projections. Every figure is
// recomputed from the latest records on each call; nothing is cached.
package statistics

import (
	"context"
	"sort"
	"time"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/tool"
	"github.com/fatflowers/gymdesk/pkg/types"
)

type StatisticType string

const (
	StatisticTypeTotalSubscribers    StatisticType = "total_subscribers"
	StatisticTypeActiveSubscribers   StatisticType = "active_subscribers"
	StatisticTypeExpiredSubscribers  StatisticType = "expired_subscribers"
	StatisticTypeOutstandingBalance  StatisticType = "outstanding_balance"
	StatisticTypeMonthlyRevenue      StatisticType = "monthly_revenue"
	StatisticTypeMonthlySalesRevenue StatisticType = "monthly_sales_revenue"
)

type DailyDataItem struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

type Dashboard struct {
	Currency string                  `json:"currency"`
	Month    string                  `json:"month"`
	Values   map[StatisticType]int64 `json:"values"`
	// DailyRevenue sums this month's payments per day, oldest first.
	DailyRevenue []DailyDataItem `json:"daily_revenue"`
}

// Service provides statistics operations
type Service struct {
	cfg   *config.Config
	store store.Reader
	now   tool.Clock
}

func New(cfg *config.Config, st store.Store) *Service {
	return &Service{cfg: cfg, store: st, now: time.Now}
}

func (s *Service) WithClock(c tool.Clock) *Service {
	s.now = c
	return s
}

var Module = fx.Options(
	fx.Provide(New),
)

type subscriberCounts struct {
	total, active, expired, outstanding int64
}

// countSubscribers splits subscribers into active and expired by comparing
// the active contract's end with today, dates only.
func countSubscribers(subs []*models.Subscriber, today time.Time) subscriberCounts {
	var c subscriberCounts
	for _, sub := range subs {
		c.total++
		if sub.IsExpired(today) {
			c.expired++
		} else {
			c.active++
		}
		if r := sub.Remaining(); r > 0 {
			c.outstanding += r
		}
	}
	return c
}

func revenueByDay(payments []*models.Payment) (int64, []DailyDataItem) {
	var total int64
	byDay := make(map[string]int64)
	for _, p := range payments {
		total += p.Amount
		byDay[p.PaidAt.Format(time.DateOnly)] += p.Amount
	}
	items := make([]DailyDataItem, 0, len(byDay))
	for d, v := range byDay {
		items = append(items, DailyDataItem{Date: d, Value: v})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date < items[j].Date })
	return total, items
}

func (s *Service) salesSince(ctx context.Context, since time.Time) (int64, error) {
	req := store.ScanRequest{
		Filters: []*types.CommonFilter{{Field: "sold_at", Operator: types.CommonFilterOperatorGte, Values: []any{since}}},
		Size:    500,
	}
	var total int64
	for {
		rows, count, err := s.store.ScanSales(ctx, req)
		if err != nil {
			return 0, err
		}
		for _, sale := range rows {
			total += sale.Total
		}
		req.From += len(rows)
		if len(rows) == 0 || int64(req.From) >= count {
			return total, nil
		}
	}
}

// Dashboard scans subscribers, this month's payments and this month's
// sales concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	monthStart := types.StartOfMonth(now)

	var (
		counts   subscriberCounts
		revenue  int64
		daily    []DailyDataItem
		salesSum int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, err := s.store.ListSubscribers(gctx, store.SubscriberQuery{})
		if err != nil {
			return err
		}
		counts = countSubscribers(subs, now)
		return nil
	})
	g.Go(func() error {
		payments, err := s.store.ListPaymentsSince(gctx, monthStart)
		if err != nil {
			return err
		}
		revenue, daily = revenueByDay(payments)
		return nil
	})
	g.Go(func() error {
		var err error
		salesSum, err = s.salesSince(gctx, monthStart)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Store("dashboard", err)
	}

	return &Dashboard{
		Currency: s.cfg.Membership.Currency,
		Month:    monthStart.Format("2006-01"),
		Values: map[StatisticType]int64{
			StatisticTypeTotalSubscribers:    counts.total,
			StatisticTypeActiveSubscribers:   counts.active,
			StatisticTypeExpiredSubscribers:  counts.expired,
			StatisticTypeOutstandingBalance:  counts.outstanding,
			StatisticTypeMonthlyRevenue:      revenue,
			StatisticTypeMonthlySalesRevenue: salesSum,
		},
		DailyRevenue: daily,
	}, nil
}
