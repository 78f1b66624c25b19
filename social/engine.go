// Package social implements account lifecycle and the relationship state
// machine on top of the store, coordinating with the presence registry where
// an operation changes who is online.
package social

import (
	"errors"
	"fmt"
	"net"

	"github.com/ayasaki/udpchat/model"
	"github.com/ayasaki/udpchat/presence"
	"github.com/ayasaki/udpchat/store"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyOnline is returned by Login when the account has a live
	// session from another address.
	ErrAlreadyOnline = errors.New("user already online")
	// ErrInvalidInput is returned when a username or password fails
	// validation before any storage call.
	ErrInvalidInput = errors.New("invalid input")
)

const maxUsernameLen = 32

// Engine ties account and relationship operations to the presence registry.
type Engine struct {
	store  *store.Store
	reg    *presence.Registry
	logger *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(st *store.Store, reg *presence.Registry, logger *zap.Logger) *Engine {
	return &Engine{store: st, reg: reg, logger: logger}
}

func validCredentials(username, password string) error {
	if username == "" || len(username) > maxUsernameLen || password == "" {
		return ErrInvalidInput
	}
	return nil
}

// Register creates a new account.
func (e *Engine) Register(username, password string) (int64, error) {
	if err := validCredentials(username, password); err != nil {
		return 0, err
	}
	return e.store.RegisterUser(username, password)
}

// Login verifies credentials and claims the single presence slot for the
// account. Verification happens first so a failed password never disturbs an
// existing session; the claim itself is atomic inside the registry, so two
// concurrent logins for the same account resolve to exactly one winner.
func (e *Engine) Login(username, password string, addr net.Addr) (int64, error) {
	if err := validCredentials(username, password); err != nil {
		return 0, err
	}
	id, err := e.store.VerifyUser(username, password)
	if err != nil {
		return 0, err
	}
	if !e.reg.MarkOnline(id, addr) {
		return 0, fmt.Errorf("login %q: %w", username, ErrAlreadyOnline)
	}
	e.store.TouchLastLogin(id)
	return id, nil
}

// Logout releases the presence slot. Unknown or already-offline ids are a
// no-op.
func (e *Engine) Logout(userID int64) {
	e.reg.MarkOffline(userID)
}

// UpdateUser replaces username and password for an existing account.
func (e *Engine) UpdateUser(userID int64, username, password string) error {
	if err := validCredentials(username, password); err != nil {
		return err
	}
	return e.store.UpdateUser(userID, username, password)
}

// DeleteUser removes the account and drops any live session. Relationship
// edges and requests referencing the id are left behind; list operations
// simply stop resolving them.
func (e *Engine) DeleteUser(userID int64) error {
	if err := e.store.DeleteUser(userID); err != nil {
		return err
	}
	e.reg.MarkOffline(userID)
	return nil
}

// SendFriendRequest starts the none -> pending transition.
func (e *Engine) SendFriendRequest(fromID, toID int64) (int64, error) {
	ok, err := e.store.UserExists(toID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, store.ErrNotFound
	}
	return e.store.SendFriendRequest(fromID, toID)
}

// PendingRequests lists requests awaiting the user's decision.
func (e *Engine) PendingRequests(userID int64) ([]model.FriendRequest, error) {
	return e.store.PendingRequests(userID)
}

// RespondFriendRequest resolves a pending request. Accepting creates the
// friendship in both directions in the same transaction as the status
// change.
func (e *Engine) RespondFriendRequest(requestID int64, accept bool) error {
	return e.store.RespondFriendRequest(requestID, accept)
}

// DeleteFriend removes the friendship in both directions.
func (e *Engine) DeleteFriend(userID, friendID int64) error {
	return e.store.DeleteFriend(userID, friendID)
}

// Block marks the user's own edge blocked. The reverse direction is
// untouched.
func (e *Engine) Block(userID, targetID int64) error {
	return e.store.SetBlocked(userID, targetID, true)
}

// Unblock clears the blocked mark on the user's own edge.
func (e *Engine) Unblock(userID, targetID int64) error {
	return e.store.SetBlocked(userID, targetID, false)
}

// Friends lists the user's edges with their blocked state.
func (e *Engine) Friends(userID int64) ([]model.FriendEdge, error) {
	return e.store.Friends(userID)
}

// CreateGroup creates a group with a unique name.
func (e *Engine) CreateGroup(name string) (int64, error) {
	if name == "" {
		return 0, ErrInvalidInput
	}
	return e.store.CreateGroup(name)
}

// JoinGroup resolves the group by name and adds the user as a member.
func (e *Engine) JoinGroup(userID int64, groupName string) (int64, error) {
	g, err := e.store.GroupByName(groupName)
	if err != nil {
		return 0, err
	}
	if err := e.store.AddUserToGroup(userID, g.ID); err != nil {
		return 0, err
	}
	return g.ID, nil
}
