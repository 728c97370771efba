package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/server/auth"
	"github.com/dmitrijs2005/socialgraph/internal/server/config"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

func newAccountService(t *testing.T, rm *fakeRepoManager) (*AccountService, func(commit bool)) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		PasswordHashCost:             bcrypt.MinCost,
	}
	expectTx := func(commit bool) {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("sql expectations: %v", err)
		}
	})
	return NewAccountService(db, rm, cfg, nil), expectTx
}

func register(t *testing.T, s *AccountService, expectTx func(bool), email, username, password string, private bool) *models.Account {
	t.Helper()
	expectTx(true)
	a, err := s.Register(context.Background(), email, username, []byte(password), private)
	require.NoError(t, err)
	return a
}

func TestRegister_CreatesAccountAndCredential(t *testing.T) {
	rm := newFakeRepoManager()
	s, expectTx := newAccountService(t, rm)

	a := register(t, s, expectTx, "alice@example.com", "alice", "secret1", true)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "alice", a.UserName)
	assert.True(t, a.IsPrivate)

	cred, ok := rm.c.byAccount[a.ID]
	require.True(t, ok)
	assert.NotEqual(t, a.ID, cred.ID)
	match, err := auth.CheckPassword(cred.PasswordHash, []byte("secret1"))
	require.NoError(t, err)
	assert.True(t, match)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	rm := newFakeRepoManager()
	s, expectTx := newAccountService(t, rm)
	register(t, s, expectTx, "alice@example.com", "alice", "secret1", false)

	expectTx(false)
	_, err := s.Register(context.Background(), "alice@example.com", "other", []byte("secret1"), false)
	require.ErrorIs(t, err, common.ErrorConflict)

	expectTx(false)
	_, err = s.Register(context.Background(), "other@example.com", "alice", []byte("secret1"), false)
	require.ErrorIs(t, err, common.ErrorConflict)
}

func TestRegister_CredentialErrorRollsBack(t *testing.T) {
	rm := newFakeRepoManager()
	rm.c.createErr = errBoom{}
	s, expectTx := newAccountService(t, rm)

	expectTx(false)
	_, err := s.Register(context.Background(), "bob@example.com", "bob", []byte("secret1"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating credential")
}

func TestGetAccount(t *testing.T) {
	rm := newFakeRepoManager(publicAccount)
	s, _ := newAccountService(t, rm)

	a, err := s.GetAccount(context.Background(), publicAccount.ID)
	require.NoError(t, err)
	assert.Equal(t, publicAccount, a)

	_, err = s.GetAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)

	rm.a.findErr = errBoom{}
	_, err = s.GetAccount(context.Background(), publicAccount.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorNotFound))
}

func TestGetCredential(t *testing.T) {
	rm := newFakeRepoManager()
	s, expectTx := newAccountService(t, rm)
	a := register(t, s, expectTx, "carol@example.com", "carol", "secret1", false)

	c, err := s.GetCredential(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, c.AccountID)

	_, err = s.GetCredential(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLogin_Flows(t *testing.T) {
	rm := newFakeRepoManager()
	s, expectTx := newAccountService(t, rm)
	a := register(t, s, expectTx, "dave@example.com", "dave", "secret1", false)
	ctx := context.Background()

	// unknown email and wrong password look the same
	_, _, err := s.Login(ctx, "ghost@example.com", []byte("secret1"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, _, err = s.Login(ctx, "dave@example.com", []byte("wrong"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	account, pair, err := s.Login(ctx, "dave@example.com", []byte("secret1"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, account.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.Len(t, pair.RefreshToken, 2*common.RefreshTokenSize)

	id, err := s.AccountIDFromAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	_, ok := rm.r.tokens[pair.RefreshToken]
	assert.True(t, ok)
}

func TestLogin_InternalErrors(t *testing.T) {
	rm := newFakeRepoManager()
	rm.a.findErr = errBoom{}
	s, _ := newAccountService(t, rm)

	_, _, err := s.Login(context.Background(), "x@example.com", []byte("secret1"))
	require.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin_MissingCredentialIsUnauthorized(t *testing.T) {
	rm := newFakeRepoManager(publicAccount)
	s, _ := newAccountService(t, rm)

	_, _, err := s.Login(context.Background(), publicAccount.Email, []byte("secret1"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_RefreshStoreError(t *testing.T) {
	rm := newFakeRepoManager()
	s, expectTx := newAccountService(t, rm)
	register(t, s, expectTx, "erin@example.com", "erin", "secret1", false)
	rm.r.createErr = errBoom{}

	_, _, err := s.Login(context.Background(), "erin@example.com", []byte("secret1"))
	require.ErrorIs(t, err, common.ErrorInternal)
}

func TestRefreshToken_RotatesOnce(t *testing.T) {
	rm := newFakeRepoManager()
	s, expectTx := newAccountService(t, rm)
	a := register(t, s, expectTx, "frank@example.com", "frank", "secret1", false)
	ctx := context.Background()

	_, pair, err := s.Login(ctx, "frank@example.com", []byte("secret1"))
	require.NoError(t, err)

	expectTx(true)
	next, err := s.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	id, err := s.AccountIDFromAccessToken(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	// the old token is gone after rotation
	_, err = s.RefreshToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefreshToken_Expired(t *testing.T) {
	rm := newFakeRepoManager()
	rm.r.tokens["old"] = &models.RefreshToken{AccountID: "u1", Token: "old", Expires: time.Now().Add(-time.Minute)}
	s, _ := newAccountService(t, rm)

	_, err := s.RefreshToken(context.Background(), "old")
	require.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefreshToken_FindErr(t *testing.T) {
	rm := newFakeRepoManager()
	rm.r.findErr = errBoom{}
	s, _ := newAccountService(t, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error searching refresh token: boom")
}

func TestRefreshToken_DeleteErr(t *testing.T) {
	rm := newFakeRepoManager()
	rm.r.tokens["r"] = &models.RefreshToken{AccountID: "u1", Token: "r", Expires: time.Now().Add(time.Minute)}
	rm.r.delErr = errBoom{}
	s, expectTx := newAccountService(t, rm)

	expectTx(false)
	_, err := s.RefreshToken(context.Background(), "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error deleting refresh token: boom")
}

func TestRefreshToken_CreateErr(t *testing.T) {
	rm := newFakeRepoManager()
	rm.r.tokens["r"] = &models.RefreshToken{AccountID: "u1", Token: "r", Expires: time.Now().Add(time.Minute)}
	rm.r.createErr = errBoom{}
	s, expectTx := newAccountService(t, rm)

	expectTx(false)
	_, err := s.RefreshToken(context.Background(), "r")
	require.ErrorIs(t, err, common.ErrorInternal)
}
