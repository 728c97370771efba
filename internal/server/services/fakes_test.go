package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/dbx"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/follows"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/refreshtokens"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeAccountsRepo is an in-memory account directory. Lookups may run
// concurrently.
type fakeAccountsRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.Account
	createErr error
	findErr   error

	// slowErrs fails lookups of the given ids after a short delay, so any
	// concurrent lookup finishes first.
	slowErrs map[string]error
}

func newFakeAccountsRepo(list ...*models.Account) *fakeAccountsRepo {
	r := &fakeAccountsRepo{byID: map[string]*models.Account{}}
	for _, a := range list {
		r.byID[a.ID] = a
	}
	return r
}

func (r *fakeAccountsRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == a.Email || existing.UserName == a.UserName {
			return nil, common.ErrorConflict
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.byID[a.ID] = a
	return a, nil
}

func (r *fakeAccountsRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if err, ok := r.slowErrs[id]; ok {
		time.Sleep(20 * time.Millisecond)
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (r *fakeAccountsRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeCredentialsRepo struct {
	byAccount map[string]*models.Credential
	createErr error
	findErr   error
}

func newFakeCredentialsRepo() *fakeCredentialsRepo {
	return &fakeCredentialsRepo{byAccount: map[string]*models.Credential{}}
}

func (r *fakeCredentialsRepo) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.byAccount[c.AccountID] = c
	return c, nil
}

func (r *fakeCredentialsRepo) FindByAccountID(ctx context.Context, accountID string) (*models.Credential, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.byAccount[accountID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

// fakeFollowsRepo keeps edges in insertion order and enforces pair
// uniqueness the way the unique index does.
type fakeFollowsRepo struct {
	edges []*models.Follow

	findPairErr error
	insertErr   error
	updateErr   error
	deleteErr   error

	// staleLock makes FindByIDForUpdate report the edge as pending even when
	// it is already approved, standing in for a read that lost a race.
	staleLock bool
}

func (r *fakeFollowsRepo) Insert(ctx context.Context, f *models.Follow) (*models.Follow, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	for _, e := range r.edges {
		if e.FollowerID == f.FollowerID && e.FollowedID == f.FollowedID {
			return nil, common.ErrorConflict
		}
	}
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	r.edges = append(r.edges, &cp)
	return f, nil
}

func (r *fakeFollowsRepo) FindByPair(ctx context.Context, followerID, followedID string) (*models.Follow, error) {
	if r.findPairErr != nil {
		return nil, r.findPairErr
	}
	for _, e := range r.edges {
		if e.FollowerID == followerID && e.FollowedID == followedID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFollowsRepo) FindByID(ctx context.Context, id string) (*models.Follow, error) {
	for _, e := range r.edges {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFollowsRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Follow, error) {
	f, err := r.FindByID(ctx, id)
	if err == nil && r.staleLock {
		f.IsApproved = false
	}
	return f, err
}

func (r *fakeFollowsRepo) FindAllByFollowed(ctx context.Context, followedID string) ([]*models.Follow, error) {
	out := make([]*models.Follow, 0)
	for _, e := range r.edges {
		if e.FollowedID == followedID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFollowsRepo) Update(ctx context.Context, f *models.Follow) (*models.Follow, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	for _, e := range r.edges {
		if e.ID == f.ID {
			if e.IsApproved {
				break
			}
			e.IsApproved = f.IsApproved
			e.UpdatedAt = time.Now()
			f.UpdatedAt = e.UpdatedAt
			return f, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFollowsRepo) Delete(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i, e := range r.edges {
		if e.ID == id {
			r.edges = append(r.edges[:i], r.edges[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken

	findErr   error
	delErr    error
	createErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (r *fakeRefreshRepo) Create(ctx context.Context, accountID string, token string, validity time.Duration) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.tokens[token] = &models.RefreshToken{AccountID: accountID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if r.delErr != nil {
		return r.delErr
	}
	if _, ok := r.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.tokens, token)
	return nil
}

// fakeRepoManager hands out the same repositories regardless of whether a
// pool or a transaction is passed in.
type fakeRepoManager struct {
	a *fakeAccountsRepo
	c *fakeCredentialsRepo
	f *fakeFollowsRepo
	r *fakeRefreshRepo
}

func newFakeRepoManager(list ...*models.Account) *fakeRepoManager {
	return &fakeRepoManager{
		a: newFakeAccountsRepo(list...),
		c: newFakeCredentialsRepo(),
		f: &fakeFollowsRepo{},
		r: newFakeRefreshRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository           { return m.a }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository     { return m.c }
func (m *fakeRepoManager) Follows(dbx.DBTX) follows.Repository             { return m.f }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }

type recordingRecorder struct {
	transitions []string
}

func (r *recordingRecorder) FollowTransition(t string) {
	r.transitions = append(r.transitions, t)
}
