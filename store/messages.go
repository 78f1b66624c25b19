package store

import (
	"fmt"

	"github.com/ayasaki/udpchat/model"
)

// StoreMessage persists an undelivered message. groupID is nil for private
// messages; for group fan-out one row is stored per offline member with the
// group id attached.
func (s *Store) StoreMessage(senderID, receiverID int64, groupID *int64, content string) (*model.Message, error) {
	msg := model.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		GroupID:    groupID,
		Content:    content,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &msg, nil
}

// LoadOffline returns every undelivered message addressed to the receiver,
// private and group alike, oldest first.
func (s *Store) LoadOffline(receiverID int64) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.Where("receiver_id = ? AND delivered = ?", receiverID, false).
		Order("timestamp").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load offline: %w", err)
	}
	return msgs, nil
}

// MarkDelivered flips the delivered flag on the given rows. The transition
// is one-way; already-delivered rows are unaffected.
func (s *Store) MarkDelivered(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.Model(&model.Message{}).
		Where("id IN ? AND delivered = ?", ids, false).
		Update("delivered", true).Error
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// ChatHistory returns the most recent limit private messages between two
// users, newest first. Group messages are excluded.
func (s *Store) ChatHistory(userID, friendID int64, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.Where("group_id IS NULL AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
		userID, friendID, friendID, userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}
