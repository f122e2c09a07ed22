package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSubscriber_ContractLifecycle(t *testing.T) {
	s := &Subscriber{ID: "s1", Name: "Amine"}
	_, ok := s.ActiveContract()
	require.False(t, ok)
	require.True(t, s.IsExpired(day("2024-01-01")))

	s.AppendContract(Contract{StartDate: day("2024-02-01"), EndDate: day("2024-03-01"), TotalAmount: 1500, AmountPaid: 500})
	require.Equal(t, int64(1000), s.Remaining())
	require.Equal(t, day("2024-03-01"), s.EndDate)

	s.ApplyPayment(700)
	require.Equal(t, int64(1200), s.AmountPaid)
	require.Equal(t, int64(1200), s.History[0].AmountPaid)

	s.AppendContract(Contract{StartDate: day("2024-03-01"), EndDate: day("2024-04-01"), TotalAmount: 1500, AmountPaid: 1500})
	require.Len(t, s.History, 2)
	require.Equal(t, int64(1200), s.History[0].AmountPaid, "superseded contract untouched")
	require.Equal(t, int64(0), s.Remaining())
}

func TestSubscriber_IsExpiredComparesDatesOnly(t *testing.T) {
	s := &Subscriber{}
	s.AppendContract(Contract{StartDate: day("2024-02-01"), EndDate: day("2024-03-01"), TotalAmount: 1500})

	require.False(t, s.IsExpired(day("2024-03-01").Add(23*time.Hour)))
	require.True(t, s.IsExpired(day("2024-03-02")))
}

func TestSubscriber_CloneIsDeep(t *testing.T) {
	s := &Subscriber{}
	s.AppendContract(Contract{TotalAmount: 1500})
	cp := s.Clone()
	cp.ApplyPayment(100)
	require.Equal(t, int64(0), s.History[0].AmountPaid)
}

func TestPayment_Field(t *testing.T) {
	p := &Payment{SubscriberID: "s1", Amount: 300}
	v, ok := p.Field("subscriber_id")
	require.True(t, ok)
	require.Equal(t, "s1", v)
	_, ok = p.Field("nope")
	require.False(t, ok)
}
