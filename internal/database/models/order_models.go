package models

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPreparing  OrderStatus = "preparing"
	OrderReady      OrderStatus = "ready"
	OrderInDelivery OrderStatus = "in_delivery"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type ServiceType string

const (
	ServiceDineIn   ServiceType = "dine-in"
	ServiceTakeaway ServiceType = "takeaway"
	ServiceDelivery ServiceType = "delivery"
)

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderInDelivery, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func ValidServiceType(s ServiceType) bool {
	switch s {
	case ServiceDineIn, ServiceTakeaway, ServiceDelivery:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition enforces the forward path
// pending -> preparing -> ready -> (in_delivery) -> delivered,
// with cancellation allowed from any non-terminal state. The in_delivery
// hop only exists for delivery orders.
func (s OrderStatus) CanTransition(to OrderStatus, serviceType ServiceType) bool {
	if to == OrderCancelled {
		return !s.Terminal()
	}
	switch s {
	case OrderPending:
		return to == OrderPreparing
	case OrderPreparing:
		return to == OrderReady
	case OrderReady:
		if serviceType == ServiceDelivery {
			return to == OrderInDelivery
		}
		return to == OrderDelivered
	case OrderInDelivery:
		return to == OrderDelivered
	}
	return false
}

type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserId      int64       `gorm:"index;not null" json:"user_id"`
	ServiceType ServiceType `gorm:"type:varchar(16);not null" json:"service_type"`
	Status      OrderStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	TotalAmount  string `gorm:"type:varchar(32);not null" json:"total_amount"`
	PointsEarned int32  `gorm:"not null;default:0" json:"points_earned"`

	ArrivalTime *time.Time `json:"arrival_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     *User          `gorm:"foreignKey:UserId" json:"user,omitempty"`
	Lines    []LineItem     `gorm:"foreignKey:OrderId" json:"lines,omitempty"`
	Payment  *Payment       `gorm:"foreignKey:OrderId" json:"payment,omitempty"`
	Delivery *Delivery      `gorm:"foreignKey:OrderId" json:"delivery,omitempty"`
	Comments []OrderComment `gorm:"foreignKey:OrderId" json:"comments,omitempty"`
}

type LineItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderId   int64     `gorm:"index;not null" json:"order_id"`
	ItemId    int32     `gorm:"not null" json:"item_id"`
	Quantity  int32     `gorm:"not null" json:"quantity"`
	UnitPrice string    `gorm:"type:varchar(32);not null" json:"unit_price"`
	Subtotal  string    `gorm:"type:varchar(32);not null" json:"subtotal"`
	Comment   *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Item *MenuItem `gorm:"foreignKey:ItemId" json:"item,omitempty"`
}

type OrderComment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderId   int64     `gorm:"index;not null" json:"order_id"`
	UserId    int64     `gorm:"not null" json:"user_id"`
	Rating    int32     `gorm:"not null" json:"rating"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
