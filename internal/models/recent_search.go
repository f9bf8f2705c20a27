package models

import "time"

// RecentSearch is one entry of the dashboard's recent-search list.
// Non-authoritative convenience data: losing it is harmless.
type RecentSearch struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Term       string    `gorm:"size:256;index" json:"term"`
	SearchedAt time.Time `gorm:"index" json:"searched_at"`
}

func (RecentSearch) TableName() string { return "recent_searches" }
