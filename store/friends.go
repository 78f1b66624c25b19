package store

import (
	"errors"
	"fmt"

	"github.com/ayasaki/udpchat/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SendFriendRequest inserts a pending request from one user to another.
// Fails with ErrDuplicateRequest when a pending request already connects the
// pair in either direction; the existence check and the insert share one
// transaction so concurrent senders cannot both slip through.
func (s *Store) SendFriendRequest(fromID, toID int64) (int64, error) {
	if fromID == toID {
		return 0, ErrSelfRequest
	}
	var reqID int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&model.FriendRequest{}).
			Where("((from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)) AND status = ?",
				fromID, toID, toID, fromID, model.RequestPending).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("count pending requests: %w", err)
		}
		if n > 0 {
			return ErrDuplicateRequest
		}
		req := model.FriendRequest{FromID: fromID, ToID: toID, Status: model.RequestPending}
		if err := tx.Create(&req).Error; err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		reqID = req.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reqID, nil
}

// PendingRequests returns all pending requests addressed to a user.
func (s *Store) PendingRequests(toID int64) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	err := s.db.Where("to_id = ? AND status = ?", toID, model.RequestPending).
		Order("id").Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return reqs, nil
}

// RespondFriendRequest resolves a pending request. Status update and edge
// insertion happen in a single transaction: a crash cannot leave an accepted
// request without edges, and concurrent accepts cannot double-insert because
// the second one no longer sees a pending row. Edge inserts are idempotent
// upserts.
func (s *Store) RespondFriendRequest(requestID int64, accept bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var req model.FriendRequest
		err := tx.Where("id = ? AND status = ?", requestID, model.RequestPending).
			First(&req).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load request: %w", err)
		}

		status := model.RequestRejected
		if accept {
			status = model.RequestAccepted
		}
		if err := tx.Model(&req).Update("status", status).Error; err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if !accept {
			return nil
		}

		edges := []model.FriendEdge{
			{UserID: req.FromID, FriendID: req.ToID},
			{UserID: req.ToID, FriendID: req.FromID},
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoNothing: true,
		}).Create(&edges).Error
		if err != nil {
			return fmt.Errorf("insert edges: %w", err)
		}
		return nil
	})
}

// DeleteFriend removes both directional edges of the pair. At most the one
// or two rows that exist are affected.
func (s *Store) DeleteFriend(userID, friendID int64) error {
	err := s.db.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
		userID, friendID, friendID, userID).
		Delete(&model.FriendEdge{}).Error
	if err != nil {
		return fmt.Errorf("delete edges: %w", err)
	}
	return nil
}

// SetBlocked flips the blocked flag on the user→friend edge only. The
// reverse direction is untouched.
func (s *Store) SetBlocked(userID, friendID int64, blocked bool) error {
	res := s.db.Model(&model.FriendEdge{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Update("blocked", blocked)
	if res.Error != nil {
		return fmt.Errorf("update edge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Friends returns every edge originating at the user, blocked or not.
func (s *Store) Friends(userID int64) ([]model.FriendEdge, error) {
	var edges []model.FriendEdge
	err := s.db.Where("user_id = ?", userID).Order("friend_id").Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return edges, nil
}

// IsUnblockedFriend reports whether the user has a non-blocked edge to the
// peer. This is the precondition for private messaging.
func (s *Store) IsUnblockedFriend(userID, friendID int64) (bool, error) {
	var n int64
	err := s.db.Model(&model.FriendEdge{}).
		Where("user_id = ? AND friend_id = ? AND blocked = ?", userID, friendID, false).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count edges: %w", err)
	}
	return n > 0, nil
}
