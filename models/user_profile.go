package models

import "time"

// UserProfile keeps onboarding answers used by the dashboard.
type UserProfile struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	AvgCycleLength         int        `gorm:"not null;default:0" json:"avg_cycle_length"`
	LastPeriodStart        *time.Time `gorm:"type:date" json:"last_period_start"`
	HasCompletedOnboarding bool       `gorm:"not null;default:false" json:"has_completed_onboarding"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}
