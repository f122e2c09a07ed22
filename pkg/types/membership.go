package types

// PaymentMethod tags how a payment entered the ledger.
type PaymentMethod string

const (
	PaymentMethodInitial PaymentMethod = "initial"
	PaymentMethodRenewal PaymentMethod = "renewal"
	PaymentMethodManual  PaymentMethod = "manual"
)

type AdminRole string

const (
	AdminRoleAdmin AdminRole = "admin"
	// AdminRoleOwner is carried by the seeded bootstrap administrator.
	AdminRoleOwner AdminRole = "owner"
)

// SubscriberStatus is the projection shown next to each subscriber row.
type SubscriberStatus string

const (
	SubscriberStatusActive  SubscriberStatus = "active"
	SubscriberStatusExpired SubscriberStatus = "expired"
)

const SystemInitialization = "system-initialization"

// BalanceStatus tells whether the active contract is settled.
type BalanceStatus string

const (
	BalanceStatusFullyPaid BalanceStatus = "fully_paid"
	BalanceStatusRemaining BalanceStatus = "remaining"
)
