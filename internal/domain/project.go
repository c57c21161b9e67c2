package domain

import "time"

type Project struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index:idx_projects_owner_created,priority:1" json:"-"`
	Name      string    `gorm:"size:1000;not null" json:"name"`
	Action    bool      `gorm:"not null;default:false" json:"action"`
	CreatedAt time.Time `gorm:"index:idx_projects_owner_created,priority:2" json:"created"`
}
