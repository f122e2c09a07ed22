// Package inventory manages products and the point of sale. Stock moves
// only through transactions that read the product they change.
package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/metrics"
	"github.com/fatflowers/gymdesk/pkg/tool"
	"github.com/fatflowers/gymdesk/pkg/validate"
)

const (
	metricType = "inventory"
	// RecentSalesLimit is how many sales the point of sale lists.
	RecentSalesLimit = 20
)

type Service struct {
	store  store.Store
	events events.Publisher
	log    *zap.SugaredLogger
	now    tool.Clock
	newID  tool.IDGenerator
}

func NewService(st store.Store, ev events.Publisher, log *zap.SugaredLogger) *Service {
	return &Service{store: st, events: ev, log: log, now: time.Now, newID: tool.GenerateUUIDV7}
}

func (s *Service) WithClock(c tool.Clock) *Service {
	s.now = c
	return s
}

func (s *Service) WithIDs(g tool.IDGenerator) *Service {
	s.newID = g
	return s
}

var Module = fx.Options(
	fx.Provide(NewService),
)

func (s *Service) observe(op string, start time.Time, errp *error) {
	metrics.ObserveBusinessProcess(metricType, op, metrics.Outcome(*errp), start)
}

func actor(ctx context.Context) string {
	if sess, ok := identity.SessionFrom(ctx); ok {
		return sess.Email
	}
	return ""
}

// Price and stock bounds keep every sale total inside int64.
type ProductInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Price int64  `json:"price" validate:"gte=0,lte=1000000000000"`
	Stock int64  `json:"stock" validate:"gte=0,lte=1000000"`
	Unit  string `json:"unit" validate:"max=32"`
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	now := s.now()
	p := &models.Product{ID: s.newID(), Name: in.Name, Price: in.Price, Stock: in.Stock, Unit: in.Unit, CreatedAt: now, UpdatedAt: now}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveProduct(ctx, p)
	})
	if err != nil {
		return nil, apperr.Store("create product", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("product created", "product_id", p.ID, "stock", p.Stock)
	return p, nil
}

// UpdateProduct overwrites the editable fields, stock included, of an
// existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	var out *models.Product
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := loadProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		p.Name, p.Price, p.Stock, p.Unit = in.Name, in.Price, in.Stock, in.Unit
		p.UpdatedAt = s.now()
		out = p
		return tx.SaveProduct(ctx, p)
	})
	if err != nil {
		return nil, apperr.Store("update product", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("product updated", "product_id", id, "stock", out.Stock)
	return out, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := loadProduct(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return apperr.Store("delete product", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("product deleted", "product_id", id)
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrProductNotFound.WithDetail("%s", id)
	}
	if err != nil {
		return nil, apperr.Store("get product", err)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]*models.Product, error) {
	ps, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Store("list products", err)
	}
	return ps, nil
}

func loadProduct(ctx context.Context, tx store.Tx, id string) (*models.Product, error) {
	p, err := tx.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrProductNotFound.WithDetail("%s", id)
	}
	return p, err
}
