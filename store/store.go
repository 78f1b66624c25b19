// Package store is the durable persistence layer for accounts, friend
// relationships, groups and messages. Every operation is synchronous and
// transactional; failures surface as sentinel errors the handlers map onto
// the wire's success flag.
package store

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound covers absent users, groups, requests and edges,
	// including credential mismatches.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateUsername is returned when registering an existing name.
	ErrDuplicateUsername = errors.New("store: username already taken")
	// ErrDuplicateRequest is returned when a pending friend request already
	// connects the pair in either direction.
	ErrDuplicateRequest = errors.New("store: friend request already pending")
	// ErrSelfRequest is returned when a user friend-requests themselves.
	ErrSelfRequest = errors.New("store: cannot friend-request self")
	// ErrDuplicateGroup is returned when creating a group whose name exists.
	ErrDuplicateGroup = errors.New("store: group name already taken")
	// ErrAlreadyMember is returned when joining a group twice.
	ErrAlreadyMember = errors.New("store: already a group member")
	// ErrNotFriends is returned when messaging without an unblocked edge.
	ErrNotFriends = errors.New("store: users are not friends")
)

// Store wraps the database handle for all persistence operations.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a Store.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying handle for collaborators that share the
// database (audit service, admin API).
func (s *Store) DB() *gorm.DB { return s.db }

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
