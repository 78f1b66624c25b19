package store

import (
	"errors"
	"fmt"

	"github.com/ayasaki/udpchat/model"
	"gorm.io/gorm"
)

// CreateGroup creates a group with a unique name. The name lookup and the
// insert share one transaction so two concurrent creators cannot both
// succeed.
func (s *Store) CreateGroup(name string) (int64, error) {
	var groupID int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Group{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return fmt.Errorf("count groups: %w", err)
		}
		if n > 0 {
			return ErrDuplicateGroup
		}
		g := model.Group{Name: name}
		if err := tx.Create(&g).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateGroup
			}
			return fmt.Errorf("create group: %w", err)
		}
		groupID = g.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return groupID, nil
}

// GroupByName resolves a group by its unique name.
func (s *Store) GroupByName(name string) (*model.Group, error) {
	var g model.Group
	if err := s.db.Where("name = ?", name).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup group: %w", err)
	}
	return &g, nil
}

// AddUserToGroup inserts a membership row. Fails with ErrAlreadyMember on a
// duplicate pair and ErrNotFound when the group does not exist.
func (s *Store) AddUserToGroup(userID, groupID int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Group{}).Where("id = ?", groupID).Count(&n).Error; err != nil {
			return fmt.Errorf("count groups: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		m := model.GroupMember{GroupID: groupID, UserID: userID}
		if err := tx.Create(&m).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("create membership: %w", err)
		}
		return nil
	})
}

// IsGroupMember reports whether the user belongs to the group.
func (s *Store) IsGroupMember(userID, groupID int64) (bool, error) {
	var n int64
	err := s.db.Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count memberships: %w", err)
	}
	return n > 0, nil
}

// GroupMembers returns the user ids of all members of a group.
func (s *Store) GroupMembers(groupID int64) ([]int64, error) {
	var ids []int64
	err := s.db.Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ids, nil
}
