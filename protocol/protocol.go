// Package protocol defines the datagram wire format shared by the server and
// every client: a fixed header followed by a type-specific payload. This
// enumeration is the single source of truth; clients must not carry their own
// copy of the numbering.
package protocol

import "fmt"

// Version is the protocol revision carried out-of-band (config/docs); frames
// themselves are unversioned.
const Version = 1

// MsgType tags the payload carried by a frame.
type MsgType uint8

const (
	// Account.
	Register       MsgType = 1
	RegisterResp   MsgType = 2
	Login          MsgType = 3
	LoginResp      MsgType = 4
	Logout         MsgType = 5
	LogoutResp     MsgType = 6
	UpdateUser     MsgType = 7
	UpdateUserResp MsgType = 8
	DeleteUser     MsgType = 9
	DeleteUserResp MsgType = 10

	// Friends.
	FriendRequest           MsgType = 11
	FriendRequestResp       MsgType = 12
	FriendRequestList       MsgType = 13
	FriendRequestListResp   MsgType = 14
	FriendRequestAction     MsgType = 15
	FriendRequestActionResp MsgType = 16
	DeleteFriend            MsgType = 17
	DeleteFriendResp        MsgType = 18
	BlockUser               MsgType = 19
	BlockUserResp           MsgType = 20
	UnblockUser             MsgType = 21
	UnblockUserResp         MsgType = 22
	FriendList              MsgType = 23
	FriendListResp          MsgType = 24

	// Groups.
	CreateGroup     MsgType = 25
	CreateGroupResp MsgType = 26
	JoinGroup       MsgType = 27
	JoinGroupResp   MsgType = 28
	GroupMsg        MsgType = 29
	GroupMsgResp    MsgType = 30

	// Messaging.
	PrivateMsg         MsgType = 31
	PrivateMsgResp     MsgType = 32
	PrivateMsgPush     MsgType = 33
	OfflineMsgFetch    MsgType = 34
	OfflineMsgListResp MsgType = 35
	ChatHistory        MsgType = 36
	ChatHistoryResp    MsgType = 37
)

var msgTypeNames = map[MsgType]string{
	Register:                "register",
	RegisterResp:            "register_resp",
	Login:                   "login",
	LoginResp:               "login_resp",
	Logout:                  "logout",
	LogoutResp:              "logout_resp",
	UpdateUser:              "update_user",
	UpdateUserResp:          "update_user_resp",
	DeleteUser:              "delete_user",
	DeleteUserResp:          "delete_user_resp",
	FriendRequest:           "friend_request",
	FriendRequestResp:       "friend_request_resp",
	FriendRequestList:       "friend_request_list",
	FriendRequestListResp:   "friend_request_list_resp",
	FriendRequestAction:     "friend_request_action",
	FriendRequestActionResp: "friend_request_action_resp",
	DeleteFriend:            "delete_friend",
	DeleteFriendResp:        "delete_friend_resp",
	BlockUser:               "block_user",
	BlockUserResp:           "block_user_resp",
	UnblockUser:             "unblock_user",
	UnblockUserResp:         "unblock_user_resp",
	FriendList:              "friend_list",
	FriendListResp:          "friend_list_resp",
	CreateGroup:             "create_group",
	CreateGroupResp:         "create_group_resp",
	JoinGroup:               "join_group",
	JoinGroupResp:           "join_group_resp",
	GroupMsg:                "group_msg",
	GroupMsgResp:            "group_msg_resp",
	PrivateMsg:              "private_msg",
	PrivateMsgResp:          "private_msg_resp",
	PrivateMsgPush:          "private_msg_push",
	OfflineMsgFetch:         "offline_msg_fetch",
	OfflineMsgListResp:      "offline_msg_list_resp",
	ChatHistory:             "chat_history",
	ChatHistoryResp:         "chat_history_resp",
}

// String returns the lowercase name of the message type, or "unknown(n)".
func (t MsgType) String() string {
	if s, ok := msgTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}
