package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/gymdesk/pkg/types"
)

// Contract is one subscription period. Only the last contract of a
// subscriber's history may change, and only its AmountPaid.
type Contract struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TotalAmount int64     `json:"total_amount"`
	AmountPaid  int64     `json:"amount_paid"`
}

// Remaining is the balance still due on the contract.
func (c Contract) Remaining() int64 {
	return c.TotalAmount - c.AmountPaid
}

// Subscriber is a gym member. The active fields mirror the last entry of
// History, which is append-only and ordered oldest first.
type Subscriber struct {
	ID          string                        `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Name        string                        `gorm:"column:name;type:varchar(255);not null;index" json:"name"`
	TotalAmount int64                         `gorm:"column:total_amount;type:bigint;not null" json:"total_amount"`
	AmountPaid  int64                         `gorm:"column:amount_paid;type:bigint;not null" json:"amount_paid"`
	StartDate   time.Time                     `gorm:"column:start_date;not null" json:"start_date"`
	EndDate     time.Time                     `gorm:"column:end_date;not null;index" json:"end_date"`
	History     datatypes.JSONSlice[Contract] `gorm:"column:history;type:jsonb;not null" json:"history"`
	CreatedAt   time.Time                     `json:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}

func (Subscriber) TableName() string {
	return "subscriber"
}

// ActiveContract returns the last contract of the history.
func (s *Subscriber) ActiveContract() (Contract, bool) {
	if len(s.History) == 0 {
		return Contract{}, false
	}
	return s.History[len(s.History)-1], true
}

// AppendContract adds c as the new active contract and mirrors it onto the
// active fields.
func (s *Subscriber) AppendContract(c Contract) {
	s.History = append(s.History, c)
	s.syncActive()
}

// ApplyPayment credits amount to the active contract. Callers check the
// remaining balance first.
func (s *Subscriber) ApplyPayment(amount int64) {
	last := len(s.History) - 1
	s.History[last].AmountPaid += amount
	s.AmountPaid += amount
}

// Reschedule moves the active contract to a new period.
func (s *Subscriber) Reschedule(start, end time.Time) {
	last := len(s.History) - 1
	s.History[last].StartDate = start
	s.History[last].EndDate = end
	s.syncActive()
}

func (s *Subscriber) syncActive() {
	c := s.History[len(s.History)-1]
	s.StartDate, s.EndDate = c.StartDate, c.EndDate
	s.TotalAmount, s.AmountPaid = c.TotalAmount, c.AmountPaid
}

// Remaining is the balance due on the active contract, zero without one.
func (s *Subscriber) Remaining() int64 {
	c, ok := s.ActiveContract()
	if !ok {
		return 0
	}
	return c.Remaining()
}

// IsExpired compares the active contract's end against today by date only.
// A subscriber without contracts counts as expired.
func (s *Subscriber) IsExpired(today time.Time) bool {
	c, ok := s.ActiveContract()
	if !ok {
		return true
	}
	return types.DateOnly(c.EndDate).Before(types.DateOnly(today))
}

// Clone returns a deep copy safe to mutate.
func (s *Subscriber) Clone() *Subscriber {
	cp := *s
	cp.History = append(datatypes.JSONSlice[Contract](nil), s.History...)
	return &cp
}
