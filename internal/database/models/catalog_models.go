package models

import "time"

type Category struct {
	ID           int32     `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryName string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"category_name"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	ImageUrl     *string   `gorm:"type:varchar(256)" json:"image_url,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Items []MenuItem `gorm:"foreignKey:CategoryId" json:"items,omitempty"`
}

type MenuItem struct {
	ID          int32     `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName    string    `gorm:"type:varchar(128);not null" json:"item_name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	UnitPrice   string    `gorm:"type:varchar(32);not null" json:"unit_price"`
	CategoryId  *int32    `json:"category_id,omitempty"`
	ImageUrl    *string   `gorm:"type:varchar(256)" json:"image_url,omitempty"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryId" json:"category,omitempty"`
}
