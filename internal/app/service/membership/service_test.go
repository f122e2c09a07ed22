package membership

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/internal/platform/store/memstore"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/tool"
	"github.com/fatflowers/gymdesk/pkg/types"
)

var testNow = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{Membership: config.MembershipConfig{ContractTotal: 1500, Currency: "DA"}}
	st := memstore.New(memstore.Options{MaxAttempts: 1000})
	rec := events.NewRecorder()
	svc := NewService(cfg, st, rec, zap.NewNop().Sugar()).
		WithClock(tool.FixedClock(testNow)).
		WithIDs(tool.SequentialIDs("id"))
	return &fixture{svc: svc, store: st, events: rec}
}

func (f *fixture) enroll(t *testing.T, name string, start string, amount int64) *models.Subscriber {
	t.Helper()
	sub, err := f.svc.Enroll(context.Background(), EnrollInput{Name: name, StartDate: day(start), Amount: amount})
	require.NoError(t, err)
	return sub
}

func TestEnroll_CreatesContractAndInitialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := identity.WithSession(context.Background(), identity.Session{Email: "owner@gym.dz"})

	sub, err := f.svc.Enroll(ctx, EnrollInput{Name: "Sofiane", StartDate: day("2024-01-31"), Amount: 500})
	require.NoError(t, err)
	require.Len(t, sub.History, 1)
	require.Equal(t, day("2024-03-02"), sub.EndDate, "one calendar month, normalised")
	require.Equal(t, int64(500), sub.AmountPaid)

	payments, err := f.svc.Payments(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, types.PaymentMethodInitial, payments[0].Method)

	evs := f.events.Drain()
	require.Len(t, evs, 1)
	require.Equal(t, events.TypeSubscriberEnrolled, evs[0].Type)
	require.Equal(t, "owner@gym.dz", evs[0].Actor)
}

func TestEnroll_ZeroAmountRecordsNoPayment(t *testing.T) {
	f := newFixture(t)
	sub := f.enroll(t, "Lina", "2024-03-01", 0)
	payments, err := f.svc.Payments(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Empty(t, payments)
}

func TestEnroll_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []EnrollInput{
		{StartDate: day("2024-03-01")},
		{Name: "x"},
		{Name: "x", StartDate: day("2024-03-01"), Amount: -1},
		{Name: "x", StartDate: day("2024-03-01"), Amount: 1501},
	}
	for _, in := range cases {
		_, err := f.svc.Enroll(context.Background(), in)
		require.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%+v", in)
	}
	subs, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestRecordPayment_OverpaymentScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.enroll(t, "Amine", "2024-03-01", 500)

	p, err := f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: sub.ID, Amount: 700, Comment: "cash"})
	require.NoError(t, err)
	require.Equal(t, types.PaymentMethodManual, p.Method)
	require.Equal(t, testNow, p.PaidAt)

	got, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1200), got.AmountPaid)
	require.Equal(t, int64(1200), got.History[0].AmountPaid)

	_, err = f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: sub.ID, Amount: 400})
	require.ErrorIs(t, err, apperr.ErrOverpayment)
	require.Equal(t, apperr.KindDomain, apperr.KindOf(err))

	got, err = f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1200), got.AmountPaid)
	require.Equal(t, int64(300), got.Remaining)

	payments, _ := f.svc.Payments(ctx, sub.ID)
	require.Len(t, payments, 2)
}

func TestRecordPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	paid := f.enroll(t, "Paid", "2024-03-01", 1500)

	_, err := f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: paid.ID, Amount: 1})
	require.ErrorIs(t, err, apperr.ErrContractFullyPaid)

	_, err = f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: "ghost", Amount: 1})
	require.ErrorIs(t, err, apperr.ErrSubscriberNotFound)
	require.True(t, apperr.IsNotFound(err))

	_, err = f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: paid.ID, Amount: 0})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	b := f.store.NewBatch()
	b.Set(&models.Subscriber{ID: "bare", Name: "No contract"})
	require.NoError(t, b.Commit(ctx))
	_, err = f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: "bare", Amount: 1})
	require.ErrorIs(t, err, apperr.ErrNoActiveContract)
}

func TestRecordPayment_ConcurrentPaymentsNeverExceedTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.enroll(t, "Rush", "2024-03-01", 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: sub.ID, Amount: 100})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrContractFullyPaid) || errors.Is(err, apperr.ErrOverpayment), "%v", err)
		}()
	}
	wg.Wait()

	require.Equal(t, 15, accepted)
	got, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.AmountPaid)

	payments, err := f.svc.Payments(ctx, sub.ID)
	require.NoError(t, err)
	var sum int64
	for _, p := range payments {
		sum += p.Amount
	}
	require.Equal(t, int64(1500), sum)
}

func TestRenew_AppendsContractAndRenewalPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.enroll(t, "Karim", "2024-02-01", 1500)

	renewed, err := f.svc.Renew(ctx, RenewInput{SubscriberID: sub.ID, StartDate: day("2024-03-01"), Amount: 1500})
	require.NoError(t, err)
	require.Len(t, renewed.History, 2)
	require.Equal(t, models.Contract{
		StartDate: day("2024-03-01"), EndDate: day("2024-04-01"), TotalAmount: 1500, AmountPaid: 1500,
	}, renewed.History[1])
	require.Equal(t, day("2024-04-01"), renewed.EndDate)

	payments, err := f.svc.Payments(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	var renewal *models.Payment
	for _, p := range payments {
		if p.Method == types.PaymentMethodRenewal {
			renewal = p
		}
	}
	require.NotNil(t, renewal)
	require.Equal(t, testNow, renewal.PaidAt)
	require.Equal(t, "Subscription from 01/03/2024 to 01/04/2024", renewal.Comment)

	again, err := f.svc.Renew(ctx, RenewInput{SubscriberID: sub.ID, StartDate: day("2024-04-01"), Amount: 0})
	require.NoError(t, err)
	require.Len(t, again.History, 3, "each renewal appends its own contract")
	require.Equal(t, int64(1500), again.History[1].AmountPaid, "superseded contract untouched")

	payments, _ = f.svc.Payments(ctx, sub.ID)
	require.Len(t, payments, 2, "zero renewal records no payment")

	contracts, err := f.svc.Contracts(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, day("2024-04-01"), contracts[0].StartDate, "newest first")
}

func TestRenew_RejectsBadInputWithoutWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.enroll(t, "Karim", "2024-02-01", 0)

	_, err := f.svc.Renew(ctx, RenewInput{SubscriberID: sub.ID, StartDate: day("2024-03-01"), Amount: 1600})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.svc.Renew(ctx, RenewInput{SubscriberID: sub.ID, StartDate: day("2024-03-01"), Amount: -5})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.svc.Renew(ctx, RenewInput{SubscriberID: "ghost", StartDate: day("2024-03-01"), Amount: 100})
	require.ErrorIs(t, err, apperr.ErrSubscriberNotFound)

	got, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
}

func TestEdit_RederivesEndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.enroll(t, "Old name", "2024-02-01", 800)

	edited, err := f.svc.Edit(ctx, sub.ID, EditInput{Name: "New name", StartDate: day("2024-02-15")})
	require.NoError(t, err)
	require.Equal(t, "New name", edited.Name)
	require.Equal(t, day("2024-03-15"), edited.EndDate)
	require.Equal(t, day("2024-03-15"), edited.History[0].EndDate)
	require.Equal(t, int64(800), edited.History[0].AmountPaid)

	_, err = f.svc.Edit(ctx, "ghost", EditInput{Name: "x", StartDate: day("2024-02-15")})
	require.True(t, apperr.IsNotFound(err))
}

func TestDelete_CascadesPaymentsAndSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone := f.enroll(t, "Gone", "2024-03-01", 300)
	kept := f.enroll(t, "Kept", "2024-03-01", 300)

	b := f.store.NewBatch()
	b.Set(&models.Sale{ID: "sale-gone", ProductID: "p1", Quantity: 1, SubscriberID: gone.ID, SoldAt: testNow})
	b.Set(&models.Sale{ID: "sale-kept", ProductID: "p1", Quantity: 1, SubscriberID: kept.ID, SoldAt: testNow})
	require.NoError(t, b.Commit(ctx))

	require.NoError(t, f.svc.Delete(ctx, gone.ID))

	_, err := f.svc.Get(ctx, gone.ID)
	require.ErrorIs(t, err, apperr.ErrSubscriberNotFound)
	pays, _ := f.store.ListPaymentsBySubscriber(ctx, gone.ID)
	sales, _ := f.store.ListSalesBySubscriber(ctx, gone.ID)
	require.Empty(t, pays)
	require.Empty(t, sales)

	pays, _ = f.store.ListPaymentsBySubscriber(ctx, kept.ID)
	sales, _ = f.store.ListSalesBySubscriber(ctx, kept.ID)
	require.Len(t, pays, 1)
	require.Len(t, sales, 1)

	require.ErrorIs(t, f.svc.Delete(ctx, gone.ID), apperr.ErrSubscriberNotFound)
}

func TestDelete_MidCommitFailureLeavesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.enroll(t, "Fragile", "2024-03-01", 300)
	b := f.store.NewBatch()
	b.Set(&models.Sale{ID: "sale-1", ProductID: "p1", Quantity: 1, SubscriberID: sub.ID, SoldAt: testNow})
	require.NoError(t, b.Commit(ctx))

	f.store.SetCommitHook(func(ops []memstore.Op) error {
		for _, op := range ops {
			if op.Collection == store.CollectionSales {
				return errors.New("connection reset mid-batch")
			}
		}
		return nil
	})
	err := f.svc.Delete(ctx, sub.ID)
	require.Equal(t, apperr.KindStore, apperr.KindOf(err))

	_, err = f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	pays, _ := f.store.ListPaymentsBySubscriber(ctx, sub.ID)
	sales, _ := f.store.ListSalesBySubscriber(ctx, sub.ID)
	require.Len(t, pays, 1)
	require.Len(t, sales, 1)
}

func TestDelete_ConcurrentPaymentsLeaveNoOrphans(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()
		sub := f.enroll(t, "Racer", "2024-03-01", 300)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.RecordPayment(ctx, PaymentInput{SubscriberID: sub.ID, Amount: 10})
				if err != nil {
					assert.ErrorIs(t, err, apperr.ErrSubscriberNotFound)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.Delete(ctx, sub.ID))
		}()
		wg.Wait()

		_, err := f.svc.Get(ctx, sub.ID)
		require.ErrorIs(t, err, apperr.ErrSubscriberNotFound)
		pays, err := f.store.ListPaymentsBySubscriber(ctx, sub.ID)
		require.NoError(t, err)
		require.Empty(t, pays, "round %d", round)
	}
}

func TestList_StatusAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "Expired Ali", "2024-01-01", 1500)
	f.enroll(t, "Active Sara", "2024-03-01", 200)

	views, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "Active Sara", views[0].Name)
	require.Equal(t, types.SubscriberStatusActive, views[0].Status)
	require.Equal(t, types.BalanceStatusRemaining, views[0].BalanceStatus)
	require.Equal(t, int64(1300), views[0].Remaining)
	require.Equal(t, types.SubscriberStatusExpired, views[1].Status)
	require.Equal(t, types.BalanceStatusFullyPaid, views[1].BalanceStatus)

	views, err = f.svc.List(ctx, "sara")
	require.NoError(t, err)
	require.Len(t, views, 1)
}
