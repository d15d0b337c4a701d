package models

import "time"

// Check-in status values. Dismissed and completed are terminal.
const (
	CheckInPending   = "pending"
	CheckInDismissed = "dismissed"
	CheckInCompleted = "completed"
)

// CheckIn is the single daily prompt record of a user. At most one row exists per (user, date).
type CheckIn struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:uidx_checkin_user_date" json:"user_id"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:uidx_checkin_user_date" json:"date"`
	Status       string    `gorm:"size:16;not null;default:pending;index" json:"status"`
	PromptText   string    `gorm:"type:text;not null" json:"prompt_text"`
	ResponseText string    `gorm:"type:text" json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName pins the table name.
func (CheckIn) TableName() string {
	return "daily_check_ins"
}
