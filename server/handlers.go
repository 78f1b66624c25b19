package server

import (
	"github.com/ayasaki/udpchat/audit"
	"github.com/ayasaki/udpchat/chat"
	"github.com/ayasaki/udpchat/model"
	"github.com/ayasaki/udpchat/protocol"
	"go.uber.org/zap"
)

func flagFrame(t protocol.MsgType, ok bool) []byte {
	return protocol.EncodeFrame(t, protocol.NewWriter().Bool(ok).Bytes())
}

func (s *Server) buildHandlers() map[protocol.MsgType]handlerFunc {
	return map[protocol.MsgType]handlerFunc{
		protocol.Register:            s.handleRegister,
		protocol.Login:               s.handleLogin,
		protocol.Logout:              s.handleLogout,
		protocol.UpdateUser:          s.handleUpdateUser,
		protocol.DeleteUser:          s.handleDeleteUser,
		protocol.FriendRequest:       s.handleFriendRequest,
		protocol.FriendRequestList:   s.handleFriendRequestList,
		protocol.FriendRequestAction: s.handleFriendRequestAction,
		protocol.DeleteFriend:        s.handleDeleteFriend,
		protocol.BlockUser:           s.handleBlockUser,
		protocol.UnblockUser:         s.handleUnblockUser,
		protocol.FriendList:          s.handleFriendList,
		protocol.CreateGroup:         s.handleCreateGroup,
		protocol.JoinGroup:           s.handleJoinGroup,
		protocol.GroupMsg:            s.handleGroupMsg,
		protocol.PrivateMsg:          s.handlePrivateMsg,
		protocol.OfflineMsgFetch:     s.handleOfflineMsgFetch,
		protocol.ChatHistory:         s.handleChatHistory,
	}
}

// auditLog records one handler outcome through the async audit writer.
func (s *Server) auditLog(req *request, userID *int64, action string, detail interface{}, err error) {
	entry := audit.Entry{
		TraceID: req.traceID,
		UserID:  userID,
		Action:  action,
		Detail:  detail,
		Addr:    req.addr.String(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Log(entry)
}

func (s *Server) logErr(req *request, action string, err error) {
	s.logger.Info("request failed",
		zap.String("trace_id", req.traceID),
		zap.String("action", action),
		zap.String("addr", req.addr.String()),
		zap.Error(err))
}

func (s *Server) handleRegister(req *request) []byte {
	username := req.rd.CString()
	password := req.rd.CString()
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.RegisterResp, false)
	}
	id, err := s.engine.Register(username, password)
	if err != nil {
		s.logErr(req, "register", err)
		s.auditLog(req, nil, "register", map[string]string{"username": username}, err)
		return flagFrame(protocol.RegisterResp, false)
	}
	s.auditLog(req, &id, "register", map[string]string{"username": username}, nil)
	return flagFrame(protocol.RegisterResp, true)
}

func (s *Server) handleLogin(req *request) []byte {
	username := req.rd.CString()
	password := req.rd.CString()
	fail := protocol.EncodeFrame(protocol.LoginResp,
		protocol.NewWriter().Bool(false).Uint32(0).Bytes())
	if err := req.rd.Err(); err != nil {
		return fail
	}
	id, err := s.engine.Login(username, password, req.addr)
	if err != nil {
		s.logErr(req, "login", err)
		s.auditLog(req, nil, "login", map[string]string{"username": username}, err)
		return fail
	}
	s.auditLog(req, &id, "login", map[string]string{"username": username}, nil)
	return protocol.EncodeFrame(protocol.LoginResp,
		protocol.NewWriter().Bool(true).Uint32(uint32(id)).Bytes())
}

func (s *Server) handleLogout(req *request) []byte {
	userID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.LogoutResp, false)
	}
	s.engine.Logout(userID)
	s.auditLog(req, &userID, "logout", nil, nil)
	return flagFrame(protocol.LogoutResp, true)
}

func (s *Server) handleUpdateUser(req *request) []byte {
	userID := int64(req.rd.Uint32())
	username := req.rd.CString()
	password := req.rd.CString()
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.UpdateUserResp, false)
	}
	s.reg.Touch(userID)
	if err := s.engine.UpdateUser(userID, username, password); err != nil {
		s.logErr(req, "update_user", err)
		return flagFrame(protocol.UpdateUserResp, false)
	}
	return flagFrame(protocol.UpdateUserResp, true)
}

func (s *Server) handleDeleteUser(req *request) []byte {
	userID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.DeleteUserResp, false)
	}
	if err := s.engine.DeleteUser(userID); err != nil {
		s.logErr(req, "delete_user", err)
		s.auditLog(req, &userID, "delete_user", nil, err)
		return flagFrame(protocol.DeleteUserResp, false)
	}
	s.auditLog(req, &userID, "delete_user", nil, nil)
	return flagFrame(protocol.DeleteUserResp, true)
}

func (s *Server) handleFriendRequest(req *request) []byte {
	userID := int64(req.rd.Uint32())
	targetID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.FriendRequestResp, false)
	}
	s.reg.Touch(userID)
	reqID, err := s.engine.SendFriendRequest(userID, targetID)
	if err != nil {
		s.logErr(req, "friend_request", err)
		s.auditLog(req, &userID, "friend_request", map[string]int64{"target_id": targetID}, err)
		return flagFrame(protocol.FriendRequestResp, false)
	}
	s.auditLog(req, &userID, "friend_request",
		map[string]int64{"target_id": targetID, "request_id": reqID}, nil)
	return flagFrame(protocol.FriendRequestResp, true)
}

func (s *Server) handleFriendRequestList(req *request) []byte {
	userID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.FriendRequestListResp, false)
	}
	s.reg.Touch(userID)
	reqs, err := s.engine.PendingRequests(userID)
	if err != nil {
		s.logErr(req, "friend_request_list", err)
		return flagFrame(protocol.FriendRequestListResp, false)
	}
	w := protocol.NewWriter().Bool(true)
	for _, r := range reqs {
		w.Uint32(uint32(r.ID)).Uint32(uint32(r.FromID))
	}
	return protocol.EncodeFrame(protocol.FriendRequestListResp, w.Bytes())
}

func (s *Server) handleFriendRequestAction(req *request) []byte {
	requestID := int64(req.rd.Uint32())
	accept := req.rd.Bool()
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.FriendRequestActionResp, false)
	}
	if err := s.engine.RespondFriendRequest(requestID, accept); err != nil {
		s.logErr(req, "friend_request_action", err)
		s.auditLog(req, nil, "friend_request_action",
			map[string]interface{}{"request_id": requestID, "accept": accept}, err)
		return flagFrame(protocol.FriendRequestActionResp, false)
	}
	s.auditLog(req, nil, "friend_request_action",
		map[string]interface{}{"request_id": requestID, "accept": accept}, nil)
	return flagFrame(protocol.FriendRequestActionResp, true)
}

func (s *Server) handleDeleteFriend(req *request) []byte {
	userID := int64(req.rd.Uint32())
	friendID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.DeleteFriendResp, false)
	}
	s.reg.Touch(userID)
	if err := s.engine.DeleteFriend(userID, friendID); err != nil {
		s.logErr(req, "delete_friend", err)
		return flagFrame(protocol.DeleteFriendResp, false)
	}
	return flagFrame(protocol.DeleteFriendResp, true)
}

func (s *Server) handleBlockUser(req *request) []byte {
	userID := int64(req.rd.Uint32())
	targetID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.BlockUserResp, false)
	}
	s.reg.Touch(userID)
	err := s.engine.Block(userID, targetID)
	s.auditLog(req, &userID, "block", map[string]int64{"target_id": targetID}, err)
	if err != nil {
		s.logErr(req, "block", err)
		return flagFrame(protocol.BlockUserResp, false)
	}
	return flagFrame(protocol.BlockUserResp, true)
}

func (s *Server) handleUnblockUser(req *request) []byte {
	userID := int64(req.rd.Uint32())
	targetID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.UnblockUserResp, false)
	}
	s.reg.Touch(userID)
	err := s.engine.Unblock(userID, targetID)
	s.auditLog(req, &userID, "unblock", map[string]int64{"target_id": targetID}, err)
	if err != nil {
		s.logErr(req, "unblock", err)
		return flagFrame(protocol.UnblockUserResp, false)
	}
	return flagFrame(protocol.UnblockUserResp, true)
}

func (s *Server) handleFriendList(req *request) []byte {
	userID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.FriendListResp, false)
	}
	s.reg.Touch(userID)
	edges, err := s.engine.Friends(userID)
	if err != nil {
		s.logErr(req, "friend_list", err)
		return flagFrame(protocol.FriendListResp, false)
	}
	w := protocol.NewWriter().Bool(true)
	for _, e := range edges {
		w.Uint32(uint32(e.FriendID)).Bool(e.Blocked)
	}
	return protocol.EncodeFrame(protocol.FriendListResp, w.Bytes())
}

func (s *Server) handleCreateGroup(req *request) []byte {
	name := req.rd.CString()
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.CreateGroupResp, false)
	}
	id, err := s.engine.CreateGroup(name)
	if err != nil {
		s.logErr(req, "create_group", err)
		s.auditLog(req, nil, "create_group", map[string]string{"name": name}, err)
		return flagFrame(protocol.CreateGroupResp, false)
	}
	s.auditLog(req, nil, "create_group",
		map[string]interface{}{"name": name, "group_id": id}, nil)
	return flagFrame(protocol.CreateGroupResp, true)
}

func (s *Server) handleJoinGroup(req *request) []byte {
	userID := int64(req.rd.Uint32())
	name := req.rd.CString()
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.JoinGroupResp, false)
	}
	s.reg.Touch(userID)
	if _, err := s.engine.JoinGroup(userID, name); err != nil {
		s.logErr(req, "join_group", err)
		return flagFrame(protocol.JoinGroupResp, false)
	}
	return flagFrame(protocol.JoinGroupResp, true)
}

func (s *Server) handleGroupMsg(req *request) []byte {
	senderID := int64(req.rd.Uint32())
	groupID := int64(req.rd.Uint32())
	content := string(req.rd.Tail())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.GroupMsgResp, false)
	}
	s.reg.Touch(senderID)
	if _, err := s.router.SendGroup(senderID, groupID, content); err != nil {
		s.logErr(req, "group_msg", err)
		return flagFrame(protocol.GroupMsgResp, false)
	}
	return flagFrame(protocol.GroupMsgResp, true)
}

func (s *Server) handlePrivateMsg(req *request) []byte {
	senderID := int64(req.rd.Uint32())
	receiverID := int64(req.rd.Uint32())
	content := string(req.rd.Tail())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.PrivateMsgResp, false)
	}
	s.reg.Touch(senderID)
	if _, err := s.router.SendPrivate(senderID, receiverID, content); err != nil {
		s.logErr(req, "private_msg", err)
		return flagFrame(protocol.PrivateMsgResp, false)
	}
	return flagFrame(protocol.PrivateMsgResp, true)
}

func (s *Server) handleOfflineMsgFetch(req *request) []byte {
	userID := int64(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.OfflineMsgListResp, false)
	}
	s.reg.Touch(userID)
	msgs, err := s.router.FetchOffline(userID)
	if err != nil {
		s.logErr(req, "offline_msg_fetch", err)
		return flagFrame(protocol.OfflineMsgListResp, false)
	}
	return protocol.EncodeFrame(protocol.OfflineMsgListResp, encodeOfflineList(msgs))
}

func encodeOfflineList(msgs []model.Message) []byte {
	w := protocol.NewWriter().Bool(true)
	for _, m := range msgs {
		gid := uint32(0)
		if m.GroupID != nil {
			gid = uint32(*m.GroupID)
		}
		w.Uint32(uint32(m.ID)).
			Uint32(uint32(m.SenderID)).
			Uint32(gid).
			CString(m.Timestamp.Format(chat.TimestampLayout)).
			CString(m.Content)
	}
	return w.Bytes()
}

func (s *Server) handleChatHistory(req *request) []byte {
	userID := int64(req.rd.Uint32())
	friendID := int64(req.rd.Uint32())
	limit := int(req.rd.Uint32())
	if err := req.rd.Err(); err != nil {
		return flagFrame(protocol.ChatHistoryResp, false)
	}
	s.reg.Touch(userID)
	msgs, err := s.router.History(userID, friendID, limit)
	if err != nil {
		s.logErr(req, "chat_history", err)
		return flagFrame(protocol.ChatHistoryResp, false)
	}
	w := protocol.NewWriter().Bool(true)
	for _, m := range msgs {
		w.Uint32(uint32(m.SenderID)).
			CString(m.Timestamp.Format(chat.TimestampLayout)).
			CString(m.Content)
	}
	return protocol.EncodeFrame(protocol.ChatHistoryResp, w.Bytes())
}
