// Package chat routes messages between users: push when the recipient is
// online, persist as undelivered when not.
package chat

import (
	"errors"
	"net"
	"time"

	"github.com/ayasaki/udpchat/model"
	"github.com/ayasaki/udpchat/presence"
	"github.com/ayasaki/udpchat/protocol"
	"github.com/ayasaki/udpchat/store"
	"go.uber.org/zap"
)

var (
	// ErrEmptyMessage is returned for a message with no content.
	ErrEmptyMessage = errors.New("empty message")
	// ErrNotMember is returned when the sender is not in the target group.
	ErrNotMember = errors.New("not a group member")
)

// TimestampLayout is the wire format for message timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// PushFunc delivers an encoded frame to a client address. The router treats
// a push error as "recipient unreachable" and leaves the message queued.
type PushFunc func(addr net.Addr, frame []byte) error

// Router decides, per message, between immediate push and offline
// persistence.
type Router struct {
	store  *store.Store
	reg    *presence.Registry
	push   PushFunc
	logger *zap.Logger
}

// NewRouter creates a Router that delivers via push.
func NewRouter(st *store.Store, reg *presence.Registry, push PushFunc, logger *zap.Logger) *Router {
	return &Router{store: st, reg: reg, push: push, logger: logger}
}

// SendPrivate pushes the message directly when the recipient is online and
// persists it for offline delivery otherwise. The sender must hold an
// unblocked edge toward the recipient. It reports whether the message was
// pushed; false with nil error means it is queued.
func (r *Router) SendPrivate(senderID, receiverID int64, content string) (bool, error) {
	if content == "" {
		return false, ErrEmptyMessage
	}
	ok, err := r.store.IsUnblockedFriend(senderID, receiverID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, store.ErrNotFriends
	}

	if addr := r.reg.Lookup(receiverID); addr != nil {
		frame := protocol.EncodeFrame(protocol.PrivateMsgPush, protocol.NewWriter().
			Uint32(uint32(senderID)).
			CString(time.Now().Format(TimestampLayout)).
			Tail([]byte(content)).
			Bytes())
		if err := r.push(addr, frame); err == nil {
			return true, nil
		}
		r.logger.Warn("push failed, queueing offline",
			zap.Int64("receiver_id", receiverID),
			zap.Error(err))
	}
	if _, err := r.store.StoreMessage(senderID, receiverID, nil, content); err != nil {
		return false, err
	}
	return false, nil
}

// SendGroup fans a message out to every member except the sender. Online
// members get an immediate push of the group frame; offline members get a
// per-member undelivered row tagged with the group id. It returns how many
// members were pushed to.
func (r *Router) SendGroup(senderID, groupID int64, content string) (int, error) {
	if content == "" {
		return 0, ErrEmptyMessage
	}
	ok, err := r.store.IsGroupMember(senderID, groupID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotMember
	}
	members, err := r.store.GroupMembers(groupID)
	if err != nil {
		return 0, err
	}

	frame := protocol.EncodeFrame(protocol.GroupMsg, protocol.NewWriter().
		Uint32(uint32(senderID)).
		Uint32(uint32(groupID)).
		Tail([]byte(content)).
		Bytes())

	pushed := 0
	for _, member := range members {
		if member == senderID {
			continue
		}
		if addr := r.reg.Lookup(member); addr != nil {
			if err := r.push(addr, frame); err == nil {
				pushed++
				continue
			}
			r.logger.Warn("group push failed, queueing offline",
				zap.Int64("member_id", member))
		}
		if _, err := r.store.StoreMessage(senderID, member, &groupID, content); err != nil {
			r.logger.Error("queue group message failed",
				zap.Int64("member_id", member), zap.Error(err))
		}
	}
	return pushed, nil
}

// FetchOffline returns the user's queued messages, oldest first, and marks
// them delivered.
func (r *Router) FetchOffline(userID int64) ([]model.Message, error) {
	msgs, err := r.store.LoadOffline(userID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := r.store.MarkDelivered(ids); err != nil {
		return nil, err
	}
	return msgs, nil
}

// History returns the newest stored private messages between two users,
// newest first. Messages pushed directly leave no row and do not appear.
func (r *Router) History(userID, friendID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return r.store.ChatHistory(userID, friendID, limit)
}
