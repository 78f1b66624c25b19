package chat_test

import (
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/ayasaki/udpchat/chat"
	"github.com/ayasaki/udpchat/presence"
	"github.com/ayasaki/udpchat/protocol"
	"github.com/ayasaki/udpchat/store"
	"github.com/ayasaki/udpchat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pushRecorder captures frames the router pushes, keyed by address.
type pushRecorder struct {
	mu     sync.Mutex
	frames map[string][][]byte
	fail   bool
}

func (p *pushRecorder) push(addr net.Addr, frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("unreachable")
	}
	if p.frames == nil {
		p.frames = make(map[string][][]byte)
	}
	p.frames[addr.String()] = append(p.frames[addr.String()], frame)
	return nil
}

func (p *pushRecorder) framesFor(addr net.Addr) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames[addr.String()]
}

type fixture struct {
	store  *store.Store
	reg    *presence.Registry
	rec    *pushRecorder
	router *chat.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(testutil.SetupTestDB(t), zap.NewNop())
	reg := presence.NewRegistry(zap.NewNop())
	rec := &pushRecorder{}
	return &fixture{
		store:  st,
		reg:    reg,
		rec:    rec,
		router: chat.NewRouter(st, reg, rec.push, zap.NewNop()),
	}
}

func (f *fixture) user(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.store.RegisterUser(name, "pw")
	require.NoError(t, err)
	return id
}

func (f *fixture) friends(t *testing.T, a, b int64) {
	t.Helper()
	reqID, err := f.store.SendFriendRequest(a, b)
	require.NoError(t, err)
	require.NoError(t, f.store.RespondFriendRequest(reqID, true))
}

func addrFor(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestSendPrivate_OnlinePush(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.friends(t, a, b)

	bAddr := addrFor(4002)
	require.True(t, f.reg.MarkOnline(b, bAddr))

	pushed, err := f.router.SendPrivate(a, b, "hello")
	require.NoError(t, err)
	assert.True(t, pushed)

	frames := f.rec.framesFor(bAddr)
	require.Len(t, frames, 1)
	typ, payload, err := protocol.DecodeFrame(frames[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.PrivateMsgPush, typ)

	rd := protocol.NewReader(payload)
	assert.Equal(t, uint32(a), rd.Uint32())
	assert.NotEmpty(t, rd.CString()) // timestamp
	assert.Equal(t, "hello", string(rd.Tail()))
	require.NoError(t, rd.Err())

	// A pushed message is not persisted: no offline backlog, no history row.
	msgs, err := f.store.LoadOffline(b)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	hist, err := f.store.ChatHistory(a, b, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestSendPrivate_OfflinePersist(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.friends(t, a, b)

	pushed, err := f.router.SendPrivate(a, b, "hello")
	require.NoError(t, err)
	assert.False(t, pushed)

	msgs, err := f.router.FetchOffline(b)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, a, msgs[0].SenderID)

	// Fetch marks them delivered.
	msgs, err = f.router.FetchOffline(b)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendPrivate_RequiresFriendship(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	_, err := f.router.SendPrivate(a, b, "hello")
	require.ErrorIs(t, err, store.ErrNotFriends)
}

func TestSendPrivate_BlockedEdgeStopsSender(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.friends(t, a, b)

	// Bob blocks Alice: Bob's own sends through the blocked edge are
	// refused.
	require.NoError(t, f.store.SetBlocked(b, a, true))
	_, err := f.router.SendPrivate(b, a, "hello")
	require.ErrorIs(t, err, store.ErrNotFriends)

	// Alice's edge toward Bob is untouched; her messages still flow.
	pushed, err := f.router.SendPrivate(a, b, "hi")
	require.NoError(t, err)
	assert.False(t, pushed)
}

func TestSendPrivate_EmptyContent(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.friends(t, a, b)

	_, err := f.router.SendPrivate(a, b, "")
	require.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestSendPrivate_PushFailureLeavesQueued(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.friends(t, a, b)

	require.True(t, f.reg.MarkOnline(b, addrFor(4002)))
	f.rec.fail = true

	pushed, err := f.router.SendPrivate(a, b, "hello")
	require.NoError(t, err)
	assert.False(t, pushed)

	msgs, err := f.store.LoadOffline(b)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestSendGroup_FanOut(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	c := f.user(t, "carol")

	gid, err := f.store.CreateGroup("gophers")
	require.NoError(t, err)
	for _, id := range []int64{a, b, c} {
		require.NoError(t, f.store.AddUserToGroup(id, gid))
	}

	// Bob online, Carol offline, Alice sends.
	bAddr := addrFor(4002)
	require.True(t, f.reg.MarkOnline(b, bAddr))

	pushed, err := f.router.SendGroup(a, gid, "meeting at noon")
	require.NoError(t, err)
	assert.Equal(t, 1, pushed)

	frames := f.rec.framesFor(bAddr)
	require.Len(t, frames, 1)
	typ, payload, err := protocol.DecodeFrame(frames[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.GroupMsg, typ)

	rd := protocol.NewReader(payload)
	assert.Equal(t, uint32(a), rd.Uint32())
	assert.Equal(t, uint32(gid), rd.Uint32())
	assert.Equal(t, "meeting at noon", string(rd.Tail()))

	// Carol finds the message queued with the group id; the sender gets
	// nothing.
	msgs, err := f.router.FetchOffline(c)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].GroupID)
	assert.Equal(t, gid, *msgs[0].GroupID)

	msgs, err = f.router.FetchOffline(a)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendGroup_NonMemberRejected(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	gid, err := f.store.CreateGroup("gophers")
	require.NoError(t, err)
	require.NoError(t, f.store.AddUserToGroup(b, gid))

	_, err = f.router.SendGroup(a, gid, "hi")
	require.ErrorIs(t, err, chat.ErrNotMember)
}

func TestHistory_LimitClamped(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.friends(t, a, b)

	for i := 0; i < 3; i++ {
		_, err := f.router.SendPrivate(a, b, "msg")
		require.NoError(t, err)
	}

	msgs, err := f.router.History(a, b, 0) // falls back to the default limit
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	msgs, err = f.router.History(a, b, 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
