package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/logging"
	"github.com/dmitrijs2005/socialgraph/internal/server/metrics"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
	"github.com/dmitrijs2005/socialgraph/internal/server/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	idA = "11111111-1111-1111-1111-111111111111"
	idB = "22222222-2222-2222-2222-222222222222"
)

type fakeFollowService struct {
	createFn  func(followerID, followedID string) (*models.Follow, error)
	deleteFn  func(followerID, followedID string) error
	approveFn func(id string) (*models.Follow, error)
	listFn    func(followedID string) ([]*models.Follow, error)
}

func (f *fakeFollowService) CreateFollow(_ context.Context, followerID, followedID string) (*models.Follow, error) {
	return f.createFn(followerID, followedID)
}
func (f *fakeFollowService) DeleteFollow(_ context.Context, followerID, followedID string) error {
	return f.deleteFn(followerID, followedID)
}
func (f *fakeFollowService) ApproveFollow(_ context.Context, id string) (*models.Follow, error) {
	return f.approveFn(id)
}
func (f *fakeFollowService) ListFollowsByFollowed(_ context.Context, followedID string) ([]*models.Follow, error) {
	return f.listFn(followedID)
}

type fakeAccountService struct {
	registerFn func(email, username string, password []byte, isPrivate bool) (*models.Account, error)
	getFn      func(id string) (*models.Account, error)
	credFn     func(accountID string) (*models.Credential, error)
	loginFn    func(email string, password []byte) (*models.Account, *services.TokenPair, error)
	refreshFn  func(token string) (*services.TokenPair, error)
	tokenFn    func(token string) (string, error)
}

func (f *fakeAccountService) Register(_ context.Context, email, username string, password []byte, isPrivate bool) (*models.Account, error) {
	return f.registerFn(email, username, password, isPrivate)
}
func (f *fakeAccountService) GetAccount(_ context.Context, id string) (*models.Account, error) {
	return f.getFn(id)
}
func (f *fakeAccountService) GetCredential(_ context.Context, accountID string) (*models.Credential, error) {
	return f.credFn(accountID)
}
func (f *fakeAccountService) Login(_ context.Context, email string, password []byte) (*models.Account, *services.TokenPair, error) {
	return f.loginFn(email, password)
}
func (f *fakeAccountService) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	return f.refreshFn(token)
}
func (f *fakeAccountService) AccountIDFromAccessToken(token string) (string, error) {
	if f.tokenFn == nil {
		return "", common.ErrInvalidToken
	}
	return f.tokenFn(token)
}

func newTestServer(fs FollowService, as AccountService) *HTTPServer {
	if fs == nil {
		fs = &fakeFollowService{}
	}
	if as == nil {
		as = &fakeAccountService{}
	}
	return NewHTTPServer("127.0.0.1:0", logging.Nop(), fs, as, metrics.New())
}

func doJSON(h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func sampleFollow(approved bool) *models.Follow {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.Follow{
		ID:         "33333333-3333-3333-3333-333333333333",
		FollowerID: idA,
		FollowedID: idB,
		IsApproved: approved,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
