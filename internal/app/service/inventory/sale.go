package inventory

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/validate"
)

type SaleInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"gt=0,lte=1000000"`
	// SubscriberID optionally attributes the sale to a member.
	SubscriberID string `json:"subscriber_id"`
}

// RecordSale takes quantity units out of stock and records the sale.
// Concurrent sales of one product serialize on the product read, so stock
// never goes negative.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (sale *models.Sale, err error) {
	defer s.observe("record_sale", time.Now(), &err)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	saleID := s.newID()

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := loadProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		if p.Stock < in.Quantity {
			return apperr.ErrInsufficientStock.WithDetail("%d in stock, %d requested", p.Stock, in.Quantity)
		}
		if p.Price > 0 && in.Quantity > math.MaxInt64/p.Price {
			return apperr.Validation("sale total out of range").WithDetail("%d x %d", p.Price, in.Quantity)
		}

		var subscriberName string
		if in.SubscriberID != "" {
			sub, err := tx.GetSubscriber(ctx, in.SubscriberID)
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrSubscriberNotFound.WithDetail("%s", in.SubscriberID)
			}
			if err != nil {
				return err
			}
			subscriberName = sub.Name
		}

		now := s.now()
		p.Stock -= in.Quantity
		p.UpdatedAt = now
		if err := tx.SaveProduct(ctx, p); err != nil {
			return err
		}
		sale = &models.Sale{
			ID:             saleID,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       in.Quantity,
			UnitPrice:      p.Price,
			Total:          p.Price * in.Quantity,
			SubscriberID:   in.SubscriberID,
			SubscriberName: subscriberName,
			SoldAt:         now,
		}
		return tx.CreateSale(ctx, sale)
	})
	if err != nil {
		return nil, apperr.Store("record sale", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("sale recorded",
		"sale_id", sale.ID, "product_id", sale.ProductID, "quantity", sale.Quantity, "total", sale.Total)
	events.Emit(ctx, s.events, s.log, events.TypeSaleRecorded, actor(ctx), sale)
	return sale, nil
}

type CancelSaleInput struct {
	SaleID string `json:"sale_id" validate:"required"`
	// ProductID and Quantity, when given, must match what the sale recorded.
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity" validate:"gte=0"`
}

// CancelSale deletes a sale and puts its quantity back in stock. A product
// that no longer exists is tolerated: the sale is deleted anyway.
func (s *Service) CancelSale(ctx context.Context, in CancelSaleInput) (err error) {
	defer s.observe("cancel_sale", time.Now(), &err)
	if err := validate.Struct(in); err != nil {
		return err
	}

	var restored bool
	var cancelled *models.Sale
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		restored = false
		sale, err := tx.GetSale(ctx, in.SaleID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrSaleNotFound.WithDetail("%s", in.SaleID)
		}
		if err != nil {
			return err
		}
		cancelled = sale
		if in.ProductID != "" && in.ProductID != sale.ProductID {
			return apperr.Validation("sale does not match product").WithDetail("%s", in.ProductID)
		}
		if in.Quantity > 0 && in.Quantity != sale.Quantity {
			return apperr.Validation("sale does not match quantity").WithDetail("%d", in.Quantity)
		}

		p, err := tx.GetProduct(ctx, sale.ProductID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// restoration target vanished, only the delete applies
		case err != nil:
			return err
		default:
			p.Stock += sale.Quantity
			p.UpdatedAt = s.now()
			if err := tx.SaveProduct(ctx, p); err != nil {
				return err
			}
			restored = true
		}
		return tx.DeleteSale(ctx, in.SaleID)
	})
	if err != nil {
		return apperr.Store("cancel sale", err)
	}

	l := logctx.FromCtx(ctx, s.log)
	if !restored {
		l.Warnw("sale cancelled without stock restoration, product missing",
			"sale_id", in.SaleID, "product_id", cancelled.ProductID)
	} else {
		l.Infow("sale cancelled", "sale_id", in.SaleID, "product_id", cancelled.ProductID)
	}
	events.Emit(ctx, s.events, s.log, events.TypeSaleCancelled, actor(ctx), map[string]any{
		"sale_id": in.SaleID, "product_id": cancelled.ProductID, "stock_restored": restored,
	})
	return nil
}

// RecentSales lists the latest sales, newest first.
func (s *Service) RecentSales(ctx context.Context) ([]*models.Sale, error) {
	sales, err := s.store.ListRecentSales(ctx, RecentSalesLimit)
	if err != nil {
		return nil, apperr.Store("list sales", err)
	}
	return sales, nil
}

type ScanSalesResponse struct {
	Items []*models.Sale `json:"items"`
	Total int64          `json:"total"`
}

func (s *Service) ScanSales(ctx context.Context, req *store.ScanRequest) (*ScanSalesResponse, error) {
	if req == nil {
		return nil, apperr.Validation("nil request")
	}
	rows, total, err := s.store.ScanSales(ctx, *req)
	if err != nil {
		return nil, apperr.Store("scan sales", err)
	}
	return &ScanSalesResponse{Items: rows, Total: total}, nil
}
