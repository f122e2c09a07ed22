package membership

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/types"
)

// SubscriberView is a subscriber row as the dashboard lists it.
type SubscriberView struct {
	*models.Subscriber
	Status        types.SubscriberStatus `json:"status"`
	BalanceStatus types.BalanceStatus    `json:"balance_status"`
	Remaining     int64                  `json:"remaining"`
}

func (s *Service) view(sub *models.Subscriber) *SubscriberView {
	v := &SubscriberView{
		Subscriber:    sub,
		Status:        types.SubscriberStatusActive,
		BalanceStatus: types.BalanceStatusFullyPaid,
		Remaining:     sub.Remaining(),
	}
	if sub.IsExpired(s.now()) {
		v.Status = types.SubscriberStatusExpired
	}
	if v.Remaining > 0 {
		v.BalanceStatus = types.BalanceStatusRemaining
	}
	return v
}

// Views renders subscribers with their status as of now.
func (s *Service) Views(subs []*models.Subscriber) []*SubscriberView {
	return lo.Map(subs, func(sub *models.Subscriber, _ int) *SubscriberView { return s.view(sub) })
}

func (s *Service) Get(ctx context.Context, id string) (*SubscriberView, error) {
	sub, err := s.store.GetSubscriber(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrSubscriberNotFound.WithDetail("%s", id)
	}
	if err != nil {
		return nil, apperr.Store("get subscriber", err)
	}
	return s.view(sub), nil
}

// List returns subscribers ordered by name, optionally narrowed by a
// case-insensitive name search.
func (s *Service) List(ctx context.Context, search string) ([]*SubscriberView, error) {
	subs, err := s.store.ListSubscribers(ctx, store.SubscriberQuery{NameContains: search})
	if err != nil {
		return nil, apperr.Store("list subscribers", err)
	}
	return s.Views(subs), nil
}

// Contracts returns the contract history newest first.
func (s *Service) Contracts(ctx context.Context, id string) ([]models.Contract, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]models.Contract, len(view.History))
	for i, c := range view.History {
		out[len(out)-1-i] = c
	}
	return out, nil
}

// Payments returns the payment history newest first.
func (s *Service) Payments(ctx context.Context, id string) ([]*models.Payment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	payments, err := s.store.ListPaymentsBySubscriber(ctx, id)
	if err != nil {
		return nil, apperr.Store("list payments", err)
	}
	return payments, nil
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// ScanPayments implements paginated/admin listing with filters
func (s *Service) ScanPayments(ctx context.Context, req *store.ScanRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, apperr.Validation("nil request")
	}
	rows, total, err := s.store.ScanPayments(ctx, *req)
	if err != nil {
		return nil, apperr.Store("scan payments", err)
	}
	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}
