package live

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/app/service/admin"
	"github.com/fatflowers/gymdesk/internal/app/service/inventory"
	"github.com/fatflowers/gymdesk/internal/app/service/membership"
	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
)

// Service exposes the dashboard projections as live snapshot streams.
type Service struct {
	feed       changefeed.Feed
	membership *membership.Service
	inventory  *inventory.Service
	admins     *admin.Service
	log        *zap.SugaredLogger
}

func NewService(feed changefeed.Feed, m *membership.Service, inv *inventory.Service, adm *admin.Service, log *zap.SugaredLogger) *Service {
	return &Service{feed: feed, membership: m, inventory: inv, admins: adm, log: log}
}

var Module = fx.Options(
	fx.Provide(NewService),
)

// Subscribers streams the subscriber list filtered by name.
func (s *Service) Subscribers(ctx context.Context, search string) *Handle[[]*membership.SubscriberView] {
	return Watch(ctx, s.feed, OnCollections(store.CollectionSubscribers),
		func(ctx context.Context) ([]*membership.SubscriberView, error) {
			return s.membership.List(ctx, search)
		}, s.log)
}

// Contracts streams one subscriber's contract history, newest first. The
// stream ends with a not-found error once the subscriber is deleted.
func (s *Service) Contracts(ctx context.Context, subscriberID string) *Handle[[]models.Contract] {
	return Watch(ctx, s.feed, OnRecord(store.CollectionSubscribers, subscriberID),
		func(ctx context.Context) ([]models.Contract, error) {
			return s.membership.Contracts(ctx, subscriberID)
		}, s.log)
}

func (s *Service) Products(ctx context.Context) *Handle[[]*models.Product] {
	return Watch(ctx, s.feed, OnCollections(store.CollectionProducts), s.inventory.ListProducts, s.log)
}

// Sales streams the recent sales list.
func (s *Service) Sales(ctx context.Context) *Handle[[]*models.Sale] {
	return Watch(ctx, s.feed, OnCollections(store.CollectionSales), s.inventory.RecentSales, s.log)
}

func (s *Service) Admins(ctx context.Context) *Handle[[]*models.Administrator] {
	return Watch(ctx, s.feed, OnCollections(store.CollectionAdmins), s.admins.List, s.log)
}
