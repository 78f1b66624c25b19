package model

import "time"

// Group is a named chat group.
type Group struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GroupMember links a user to a group. Membership is unique per pair.
type GroupMember struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64     `gorm:"uniqueIndex:idx_group_member;not null" json:"group_id"`
	UserID    int64     `gorm:"uniqueIndex:idx_group_member;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
