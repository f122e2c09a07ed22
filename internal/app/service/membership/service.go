// Package membership implements the subscriber lifecycle: enrollment,
// renewals, partial payments and removal. Every operation that touches
// more than one record commits atomically or not at all.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/metrics"
	"github.com/fatflowers/gymdesk/pkg/tool"
	"github.com/fatflowers/gymdesk/pkg/types"
	"github.com/fatflowers/gymdesk/pkg/validate"
)

const metricType = "membership"

type Service struct {
	cfg    *config.Config
	store  store.Store
	events events.Publisher
	log    *zap.SugaredLogger
	now    tool.Clock
	newID  tool.IDGenerator
}

func NewService(cfg *config.Config, st store.Store, ev events.Publisher, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, events: ev, log: log, now: time.Now, newID: tool.GenerateUUIDV7}
}

// WithClock pins the service's notion of now.
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

// PeriodComment describes a contract period on its payment record.
func PeriodComment(start, end time.Time) string {
	return fmt.Sprintf("Subscription from %s to %s", types.FormatDay(start), types.FormatDay(end))
}

func (s *Service) contractTotal() int64 {
	return s.cfg.Membership.ContractTotal
}

func (s *Service) newContract(start time.Time, paid int64) models.Contract {
	start = types.DateOnly(start)
	return models.Contract{
		StartDate:   start,
		EndDate:     types.AddCalendarMonth(start),
		TotalAmount: s.contractTotal(),
		AmountPaid:  paid,
	}
}

func (s *Service) checkContractAmount(amount int64) error {
	if amount > s.contractTotal() {
		return apperr.Validation("amount exceeds contract total").WithDetail("%d > %d", amount, s.contractTotal())
	}
	return nil
}

func actor(ctx context.Context) string {
	if sess, ok := identity.SessionFrom(ctx); ok {
		return sess.Email
	}
	return ""
}

// observe is deferred with a pointer to the named error result.
func (s *Service) observe(op string, start time.Time, errp *error) {
	metrics.ObserveBusinessProcess(metricType, op, metrics.Outcome(*errp), start)
}

func loadSubscriber(ctx context.Context, tx store.Tx, id string) (*models.Subscriber, error) {
	sub, err := tx.GetSubscriber(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrSubscriberNotFound.WithDetail("%s", id)
	}
	return sub, err
}

type EnrollInput struct {
	Name      string    `json:"name" validate:"required,max=255"`
	StartDate time.Time `json:"start_date" validate:"required"`
	// Amount is paid up front; zero records no payment.
	Amount int64 `json:"amount" validate:"gte=0"`
}

// Enroll creates a subscriber with its first contract and, when something
// was paid, the initial payment.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (sub *models.Subscriber, err error) {
	defer s.observe("enroll", time.Now(), &err)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkContractAmount(in.Amount); err != nil {
		return nil, err
	}

	contract := s.newContract(in.StartDate, in.Amount)
	now := s.now()
	sub = &models.Subscriber{ID: s.newID(), Name: in.Name, CreatedAt: now, UpdatedAt: now}
	sub.AppendContract(contract)

	var payment *models.Payment
	if in.Amount > 0 {
		payment = &models.Payment{
			ID:           s.newID(),
			SubscriberID: sub.ID,
			Amount:       in.Amount,
			PaidAt:       now,
			Method:       types.PaymentMethodInitial,
			Comment:      PeriodComment(contract.StartDate, contract.EndDate),
			CreatedAt:    now,
		}
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SaveSubscriber(ctx, sub); err != nil {
			return err
		}
		if payment != nil {
			return tx.CreatePayment(ctx, payment)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Store("enroll subscriber", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscriber enrolled", "subscriber_id", sub.ID, "amount", in.Amount)
	events.Emit(ctx, s.events, s.log, events.TypeSubscriberEnrolled, actor(ctx), map[string]any{
		"subscriber_id": sub.ID, "start_date": contract.StartDate, "end_date": contract.EndDate, "amount": in.Amount,
	})
	return sub, nil
}

type EditInput struct {
	Name      string    `json:"name" validate:"required,max=255"`
	StartDate time.Time `json:"start_date" validate:"required"`
}

// Edit renames a subscriber and moves its active contract. The end date is
// always re-derived as one calendar month after the new start.
func (s *Service) Edit(ctx context.Context, id string, in EditInput) (sub *models.Subscriber, err error) {
	defer s.observe("edit", time.Now(), &err)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	start := types.DateOnly(in.StartDate)
	end := types.AddCalendarMonth(start)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := loadSubscriber(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, ok := cur.ActiveContract(); !ok {
			return apperr.ErrNoActiveContract
		}
		cur.Name = in.Name
		cur.Reschedule(start, end)
		cur.UpdatedAt = s.now()
		sub = cur
		return tx.SaveSubscriber(ctx, cur)
	})
	if err != nil {
		return nil, apperr.Store("edit subscriber", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscriber edited", "subscriber_id", id)
	return sub, nil
}

type RenewInput struct {
	SubscriberID string    `json:"subscriber_id" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	Amount       int64     `json:"amount" validate:"gte=0"`
}

// Renew appends a new contract starting at StartDate, makes it the active
// one and records the renewal payment, in one transaction.
func (s *Service) Renew(ctx context.Context, in RenewInput) (sub *models.Subscriber, err error) {
	defer s.observe("renew", time.Now(), &err)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkContractAmount(in.Amount); err != nil {
		return nil, err
	}
	contract := s.newContract(in.StartDate, in.Amount)
	paymentID := s.newID()

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := loadSubscriber(ctx, tx, in.SubscriberID)
		if err != nil {
			return err
		}
		now := s.now()
		cur.AppendContract(contract)
		cur.UpdatedAt = now
		if err := tx.SaveSubscriber(ctx, cur); err != nil {
			return err
		}
		sub = cur
		if in.Amount == 0 {
			return nil
		}
		return tx.CreatePayment(ctx, &models.Payment{
			ID:           paymentID,
			SubscriberID: cur.ID,
			Amount:       in.Amount,
			PaidAt:       now,
			Method:       types.PaymentMethodRenewal,
			Comment:      PeriodComment(contract.StartDate, contract.EndDate),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, apperr.Store("renew subscription", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription renewed",
		"subscriber_id", in.SubscriberID, "start", contract.StartDate, "end", contract.EndDate, "amount", in.Amount)
	events.Emit(ctx, s.events, s.log, events.TypeSubscriptionRenewed, actor(ctx), map[string]any{
		"subscriber_id": in.SubscriberID, "start_date": contract.StartDate, "end_date": contract.EndDate, "amount": in.Amount,
	})
	return sub, nil
}

type PaymentInput struct {
	SubscriberID string `json:"subscriber_id" validate:"required"`
	Amount       int64  `json:"amount" validate:"gt=0"`
	Comment      string `json:"comment" validate:"max=500"`
}

// RecordPayment credits a partial payment to the active contract. The
// remaining balance is checked against the same transactional read the
// write is based on, so concurrent payments can never overpay a contract.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (payment *models.Payment, err error) {
	defer s.observe("record_payment", time.Now(), &err)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	paymentID := s.newID()

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sub, err := loadSubscriber(ctx, tx, in.SubscriberID)
		if err != nil {
			return err
		}
		active, ok := sub.ActiveContract()
		if !ok {
			return apperr.ErrNoActiveContract
		}
		remaining := active.Remaining()
		if remaining <= 0 {
			return apperr.ErrContractFullyPaid
		}
		if in.Amount > remaining {
			return apperr.ErrOverpayment.WithDetail("%d exceeds remaining %d", in.Amount, remaining)
		}

		now := s.now()
		sub.ApplyPayment(in.Amount)
		sub.UpdatedAt = now
		if err := tx.SaveSubscriber(ctx, sub); err != nil {
			return err
		}
		payment = &models.Payment{
			ID:           paymentID,
			SubscriberID: sub.ID,
			Amount:       in.Amount,
			PaidAt:       now,
			Method:       types.PaymentMethodManual,
			Comment:      in.Comment,
			CreatedAt:    now,
		}
		return tx.CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, apperr.Store("record payment", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("payment recorded", "subscriber_id", in.SubscriberID, "amount", in.Amount)
	events.Emit(ctx, s.events, s.log, events.TypePaymentRecorded, actor(ctx), payment)
	return payment, nil
}

// Delete removes a subscriber together with every payment and sale that
// references it. Children are listed and deleted in the same transaction,
// so one recorded concurrently either conflicts or is deleted too.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	defer s.observe("delete_subscriber", time.Now(), &err)
	if id == "" {
		return apperr.Validation("subscriber id is required")
	}

	var payments []*models.Payment
	var sales []*models.Sale
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := loadSubscriber(ctx, tx, id); err != nil {
			return err
		}
		var err error
		if payments, err = tx.ListPaymentsBySubscriber(ctx, id); err != nil {
			return err
		}
		if sales, err = tx.ListSalesBySubscriber(ctx, id); err != nil {
			return err
		}
		for _, p := range payments {
			if err := tx.DeletePayment(ctx, p.ID); err != nil {
				return err
			}
		}
		for _, sale := range sales {
			if err := tx.DeleteSale(ctx, sale.ID); err != nil {
				return err
			}
		}
		return tx.DeleteSubscriber(ctx, id)
	})
	if err != nil {
		return apperr.Store("delete subscriber", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscriber deleted",
		"subscriber_id", id, "payments", len(payments), "sales", len(sales))
	events.Emit(ctx, s.events, s.log, events.TypeSubscriberDeleted, actor(ctx), map[string]any{
		"subscriber_id": id, "payments": len(payments), "sales": len(sales),
	})
	return nil
}
