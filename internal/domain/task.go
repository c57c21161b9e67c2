package domain

import "time"

// ExpiryLayout is the wire format of Task.Expiry in request payloads.
const ExpiryLayout = "2006-01-02 15:04:05"

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string     `gorm:"size:36;not null;index:idx_tasks_project_created,priority:1" json:"project_id"`
	Title       string     `gorm:"size:1024;not null" json:"title"`
	Name        string     `gorm:"type:text;not null" json:"name"`
	Expiry      time.Time  `gorm:"not null" json:"expiry"`
	Action      bool       `gorm:"not null;default:false" json:"action"`
	CompletedAt *time.Time `json:"date_complete"`
	CreatedAt   time.Time  `gorm:"index:idx_tasks_project_created,priority:2" json:"created"`
}
