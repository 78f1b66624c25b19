package model

import "time"

// FriendRequest status values.
const (
	RequestPending  = 0
	RequestAccepted = 1
	RequestRejected = 2
)

// FriendEdge is one direction of a friendship. Acceptance of a request
// creates the edge in both directions; Blocked is independent per direction.
type FriendEdge struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_friend_edge;not null" json:"user_id"`
	FriendID  int64     `gorm:"uniqueIndex:idx_friend_edge;not null" json:"friend_id"`
	Blocked   bool      `gorm:"default:false" json:"blocked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FriendRequest records a friend request and its outcome. Rows are never
// deleted; terminal states are retained as history.
type FriendRequest struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromID    int64     `gorm:"index:idx_request_from;not null" json:"from_id"`
	ToID      int64     `gorm:"index:idx_request_to;not null" json:"to_id"`
	Status    int       `gorm:"default:0" json:"status"` // 0=pending 1=accepted 2=rejected
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
