package models

import "time"

// LoyaltyLedger holds one row of cumulative counters per user. Rows are
// created lazily by the first increment; all writes go through upserts or
// additive updates so concurrent orders never lose counts.
type LoyaltyLedger struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId        int64  `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalOrders   int64  `gorm:"not null;default:0" json:"total_orders"`
	TotalSpent    string `gorm:"type:numeric(14,2);not null;default:0" json:"total_spent"`
	PointsEarned  int64  `gorm:"not null;default:0" json:"points_earned"`
	PointsUsed    int64  `gorm:"not null;default:0" json:"points_used"`
	ReferralCount int64  `gorm:"not null;default:0" json:"referral_count"`
	AverageRating string `gorm:"type:numeric(4,2);not null;default:0" json:"average_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Promotion struct {
	ID          int32     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(128);not null" json:"title"`
	Code        *string   `gorm:"type:varchar(32);uniqueIndex" json:"code,omitempty"`
	Percentage  *string   `gorm:"type:varchar(32)" json:"percentage,omitempty"`
	FixedAmount *string   `gorm:"type:varchar(32)" json:"fixed_amount,omitempty"`
	StartsAt    time.Time `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time `gorm:"not null" json:"ends_at"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	UsageCount  int32     `gorm:"not null;default:0" json:"usage_count"`
	UsageLimit  *int32    `json:"usage_limit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsableAt reports the read-only validity check; reserving a usage slot is
// a separate conditional update so two checkouts cannot both consume the
// last slot.
func (p Promotion) UsableAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.StartsAt) || now.After(p.EndsAt) {
		return false
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return false
	}
	return true
}

type Referral struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerId    int64 `gorm:"not null;uniqueIndex:idx_referrer_referred" json:"referrer_id"`
	ReferredId    int64 `gorm:"not null;uniqueIndex:idx_referrer_referred" json:"referred_id"`
	RewardGranted bool  `gorm:"not null;default:false" json:"reward_granted"`
	PointsAwarded int32 `gorm:"not null;default:0" json:"points_awarded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
