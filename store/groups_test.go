package store_test

import (
	"testing"

	"github.com/ayasaki/udpchat/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup(t *testing.T) {
	s := newStore(t)

	id, err := s.CreateGroup("gophers")
	require.NoError(t, err)
	assert.Positive(t, id)

	g, err := s.GroupByName("gophers")
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
}

func TestCreateGroup_DuplicateName(t *testing.T) {
	s := newStore(t)

	_, err := s.CreateGroup("gophers")
	require.NoError(t, err)

	_, err = s.CreateGroup("gophers")
	require.ErrorIs(t, err, store.ErrDuplicateGroup)
}

func TestGroupByName_Unknown(t *testing.T) {
	s := newStore(t)
	_, err := s.GroupByName("nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddUserToGroup(t *testing.T) {
	s := newStore(t)
	a, b := twoUsers(t, s)

	gid, err := s.CreateGroup("gophers")
	require.NoError(t, err)

	require.NoError(t, s.AddUserToGroup(a, gid))
	require.NoError(t, s.AddUserToGroup(b, gid))

	members, err := s.GroupMembers(gid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a, b}, members)

	ok, err := s.IsGroupMember(a, gid)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddUserToGroup_Twice(t *testing.T) {
	s := newStore(t)
	a, _ := twoUsers(t, s)

	gid, err := s.CreateGroup("gophers")
	require.NoError(t, err)

	require.NoError(t, s.AddUserToGroup(a, gid))
	require.ErrorIs(t, s.AddUserToGroup(a, gid), store.ErrAlreadyMember)
}

func TestAddUserToGroup_UnknownGroup(t *testing.T) {
	s := newStore(t)
	a, _ := twoUsers(t, s)
	require.ErrorIs(t, s.AddUserToGroup(a, 999), store.ErrNotFound)
}
