package models

import "time"

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryInProgress DeliveryStatus = "in_progress"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryCancelled  DeliveryStatus = "cancelled"
)

// pending -> in_progress -> delivered, any non-terminal -> cancelled.
func (s DeliveryStatus) CanTransition(to DeliveryStatus) bool {
	if to == DeliveryCancelled {
		return s == DeliveryPending || s == DeliveryInProgress
	}
	switch s {
	case DeliveryPending:
		return to == DeliveryInProgress
	case DeliveryInProgress:
		return to == DeliveryDelivered
	}
	return false
}

type Delivery struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderId      int64          `gorm:"uniqueIndex;not null" json:"order_id"`
	Address      string         `gorm:"type:text;not null" json:"address"`
	Status       DeliveryStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	CourierId    *int64         `json:"courier_id,omitempty"`
	Instructions *string        `gorm:"type:text" json:"instructions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Courier *User `gorm:"foreignKey:CourierId" json:"courier,omitempty"`
}
