package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayasaki/udpchat/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterUser creates an account with a salted bcrypt hash; the plaintext
// password is never stored. Fails with ErrDuplicateUsername when the name
// is taken.
func (s *Store) RegisterUser(username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{Username: username, PasswordHash: string(hash)}
	if err := s.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateUsername
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return user.ID, nil
}

// VerifyUser returns the user id on a hash match, ErrNotFound otherwise.
// An unknown username and a wrong password are indistinguishable to the
// caller.
func (s *Store) VerifyUser(username, password string) (int64, error) {
	var user model.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return 0, ErrNotFound
	}
	return user.ID, nil
}

// UpdateUser replaces a user's name and password.
func (s *Store) UpdateUser(id int64, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res := s.db.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"username":      username,
		"password_hash": string(hash),
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the account row. Friend edges and requests referencing
// the id are left in place as orphans; readers treat them as inactive.
func (s *Store) DeleteUser(id int64) error {
	res := s.db.Delete(&model.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UserExists reports whether a user id resolves to an account.
func (s *Store) UserExists(id int64) (bool, error) {
	var n int64
	if err := s.db.Model(&model.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// TouchLastLogin records a successful login (best-effort).
func (s *Store) TouchLastLogin(id int64) {
	now := time.Now()
	if err := s.db.Model(&model.User{}).Where("id = ?", id).
		Update("last_login_at", now).Error; err != nil {
		s.logger.Warn("last login update failed", zap.Int64("user_id", id), zap.Error(err))
	}
}
