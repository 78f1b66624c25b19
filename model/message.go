package model

import "time"

// Message is a private or group chat message. GroupID is nil for private
// messages. Delivered transitions false→true exactly once and never
// reverses; rows are never deleted by the server.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"index:idx_msg_sender;not null" json:"sender_id"`
	ReceiverID int64     `gorm:"index:idx_msg_receiver;not null" json:"receiver_id"`
	GroupID    *int64    `gorm:"index:idx_msg_group" json:"group_id"`
	Content    string    `gorm:"type:text" json:"content"`
	Timestamp  time.Time `gorm:"index:idx_msg_ts;autoCreateTime" json:"timestamp"`
	Delivered  bool      `gorm:"default:false" json:"delivered"`
}
