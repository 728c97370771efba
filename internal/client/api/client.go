// Package api is the HTTP client of the socialgraph JSON API used by the CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

// ErrUnavailable is returned when the server cannot be reached at all.
var ErrUnavailable = errors.New("server unavailable")

// Session is the authenticated state kept between calls.
type Session struct {
	Account      *models.Account
	AccessToken  string
	RefreshToken string
}

// Client talks to one socialgraph server. Authenticated calls transparently
// refresh an expired access token once.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session *Session
}

// NewClient creates a client for baseURL, e.g. "http://127.0.0.1:3002".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Session returns the current session or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Logout forgets the session locally.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

type apiError struct {
	Error string `json:"error"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type loginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         *models.Account `json:"user"`
}

type pairRequest struct {
	FollowerID string `json:"follower_id"`
	FollowedID string `json:"followed_id"`
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", "", nil, nil)
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, username string, password []byte, isPrivate bool) (*models.Account, error) {
	req := map[string]any{
		"email":      email,
		"username":   username,
		"password":   string(password),
		"is_private": isPrivate,
	}
	var account models.Account
	if err := c.do(ctx, http.MethodPost, "/api/users", "", req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Login authenticates and stores the session.
func (c *Client) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	req := map[string]string{"email": email, "password": string(password)}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &resp); err != nil {
		return nil, err
	}

	s := &Session{Account: resp.User, AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return s, nil
}

// Me returns the account of the current session.
func (c *Client) Me(ctx context.Context) (*models.Account, error) {
	var account models.Account
	if err := c.doAuth(ctx, http.MethodGet, "/api/auth/me", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccount looks up any account by id.
func (c *Client) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := c.do(ctx, http.MethodGet, "/api/users/"+id, "", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Follow creates the edge followerID -> followedID.
func (c *Client) Follow(ctx context.Context, followerID, followedID string) (*models.Follow, error) {
	var f models.Follow
	if err := c.do(ctx, http.MethodPost, "/api/follow", "", pairRequest{followerID, followedID}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Unfollow removes the edge followerID -> followedID. It also rejects a
// pending request.
func (c *Client) Unfollow(ctx context.Context, followerID, followedID string) error {
	return c.do(ctx, http.MethodDelete, "/api/follow", "", pairRequest{followerID, followedID}, nil)
}

// Approve accepts a pending follow request.
func (c *Client) Approve(ctx context.Context, followID string) (*models.Follow, error) {
	var f models.Follow
	if err := c.do(ctx, http.MethodPost, "/api/follow/"+followID+"/approve", "", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Followers lists every edge pointing at accountID, pending ones included.
func (c *Client) Followers(ctx context.Context, accountID string) ([]*models.Follow, error) {
	var list []*models.Follow
	if err := c.do(ctx, http.MethodGet, "/api/follow/user/"+accountID, "", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// doAuth sends the access token and, on a 401, rotates the refresh token
// and retries once.
func (c *Client) doAuth(ctx context.Context, method, path string, in, out any) error {
	s := c.Session()
	if s == nil {
		return common.ErrorUnauthorized
	}

	err := c.do(ctx, method, path, s.AccessToken, in, out)
	if !errors.Is(err, common.ErrorUnauthorized) {
		return err
	}

	var pair tokenPair
	if rerr := c.do(ctx, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": s.RefreshToken}, &pair); rerr != nil {
		return rerr
	}

	c.mu.Lock()
	c.session = &Session{Account: s.Account, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	c.mu.Unlock()

	return c.do(ctx, method, path, pair.AccessToken, in, out)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns an error response back into the matching sentinel so
// callers can use errors.Is just like on the server.
func decodeError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusNotFound:
		kind = common.ErrorNotFound
	case http.StatusConflict:
		kind = common.ErrorConflict
	case http.StatusBadRequest:
		kind = common.ErrorValidation
	case http.StatusUnauthorized:
		kind = common.ErrorUnauthorized
	default:
		kind = common.ErrorInternal
	}
	return fmt.Errorf("%s: %w", msg, kind)
}
