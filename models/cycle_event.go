package models

import "time"

// CycleEvent is one logged cycle start. Rows are append-only.
type CycleEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_cycle_user_start" json:"user_id"`
	StartDate time.Time `gorm:"type:date;not null;index:idx_cycle_user_start" json:"start_date"`
	CreatedAt time.Time `json:"created_at"`
}
