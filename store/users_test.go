package store_test

import (
	"testing"

	"github.com/ayasaki/udpchat/model"
	"github.com/ayasaki/udpchat/store"
	"github.com/ayasaki/udpchat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(testutil.SetupTestDB(t), zap.NewNop())
}

func TestRegisterUser(t *testing.T) {
	s := newStore(t)

	id, err := s.RegisterUser("alice", "pw1")
	require.NoError(t, err)
	assert.Positive(t, id)

	// Plaintext must never be stored.
	var u model.User
	require.NoError(t, s.DB().First(&u, id).Error)
	assert.NotEqual(t, "pw1", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)
}

func TestRegisterUser_DuplicateUsername(t *testing.T) {
	s := newStore(t)

	_, err := s.RegisterUser("alice", "pw1")
	require.NoError(t, err)

	_, err = s.RegisterUser("alice", "other")
	require.ErrorIs(t, err, store.ErrDuplicateUsername)
}

func TestVerifyUser(t *testing.T) {
	s := newStore(t)

	id, err := s.RegisterUser("bob", "secret99")
	require.NoError(t, err)

	got, err := s.VerifyUser("bob", "secret99")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifyUser_WrongPassword(t *testing.T) {
	s := newStore(t)

	_, err := s.RegisterUser("bob", "secret99")
	require.NoError(t, err)

	_, err = s.VerifyUser("bob", "wrong")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerifyUser_UnknownUsername(t *testing.T) {
	s := newStore(t)
	_, err := s.VerifyUser("ghost", "pw")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := newStore(t)

	id, err := s.RegisterUser("carol", "pw1")
	require.NoError(t, err)

	require.NoError(t, s.UpdateUser(id, "caroline", "pw2"))

	got, err := s.VerifyUser("caroline", "pw2")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = s.VerifyUser("carol", "pw1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateUser_Unknown(t *testing.T) {
	s := newStore(t)
	require.ErrorIs(t, s.UpdateUser(12345, "x", "y"), store.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	s := newStore(t)

	id, err := s.RegisterUser("dave", "pw")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(id))
	require.ErrorIs(t, s.DeleteUser(id), store.ErrNotFound)

	ok, err := s.UserExists(id)
	require.NoError(t, err)
	assert.False(t, ok)
}
