package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentValidated PaymentStatus = "validated"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodPoints PaymentMethod = "loyalty_points"
	MethodMixed  PaymentMethod = "mixed"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodCard, MethodPoints, MethodMixed:
		return true
	}
	return false
}

// pending -> validated | failed, validated -> refunded.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return to == PaymentValidated || to == PaymentFailed
	case PaymentValidated:
		return to == PaymentRefunded
	}
	return false
}

type Payment struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderId   int64         `gorm:"uniqueIndex;not null" json:"order_id"`
	Reference string        `gorm:"type:varchar(32);uniqueIndex;not null" json:"reference"`
	Amount    string        `gorm:"type:varchar(32);not null" json:"amount"`
	Method    PaymentMethod `gorm:"type:varchar(16);not null" json:"method"`
	Status    PaymentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	// mixed payments split the amount between loyalty points and cash
	PointsAmount *string `gorm:"type:varchar(32)" json:"points_amount,omitempty"`
	CashAmount   *string `gorm:"type:varchar(32)" json:"cash_amount,omitempty"`

	TransactionId *string `gorm:"type:varchar(64)" json:"transaction_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
