package models

import "time"

// Follow is a directed edge between two handles. When Blocked is set the edge
// records that EndUserID blocked StartUserID.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StartUserID string    `gorm:"uniqueIndex:idx_follow_edge;size:255;not null" json:"start_user_id"`
	EndUserID   string    `gorm:"uniqueIndex:idx_follow_edge;index;size:255;not null" json:"end_user_id"`
	Blocked     bool      `gorm:"uniqueIndex:idx_follow_edge;not null;default:false" json:"blocked"`
	CreatedAt   time.Time `json:"created_at"`
}
