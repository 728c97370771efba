package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

func TestCreateFollow_Created(t *testing.T) {
	fs := &fakeFollowService{
		createFn: func(followerID, followedID string) (*models.Follow, error) {
			assert.Equal(t, idA, followerID)
			assert.Equal(t, idB, followedID)
			return sampleFollow(false), nil
		},
	}
	s := newTestServer(fs, nil)

	w := doJSON(s.Handler(), http.MethodPost, "/api/follow", map[string]string{"follower_id": idA, "followed_id": idB})
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "33333333-3333-3333-3333-333333333333", body["id"])
	assert.Equal(t, idA, body["follower_id"])
	assert.Equal(t, idB, body["followed_id"])
	assert.Equal(t, false, body["is_approved"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["created_at"])
	assert.Contains(t, body, "updated_at")
}

func TestCreateFollow_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"conflict", fmt.Errorf("follow relationship already exists: %w", common.ErrorConflict), http.StatusConflict, "follow relationship already exists: conflict"},
		{"not found", fmt.Errorf("account x not found: %w", common.ErrorNotFound), http.StatusNotFound, "account x not found: not found"},
		{"self follow", fmt.Errorf("account cannot follow itself: %w", common.ErrorValidation), http.StatusBadRequest, "account cannot follow itself: validation error"},
		{"internal", fmt.Errorf("db error: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeFollowService{
				createFn: func(string, string) (*models.Follow, error) { return nil, tt.err },
			}
			s := newTestServer(fs, nil)

			w := doJSON(s.Handler(), http.MethodPost, "/api/follow", map[string]string{"follower_id": idA, "followed_id": idB})
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, decodeError(t, w))
		})
	}
}

func TestCreateFollow_InvalidBody(t *testing.T) {
	called := false
	fs := &fakeFollowService{
		createFn: func(string, string) (*models.Follow, error) {
			called = true
			return nil, nil
		},
	}
	s := newTestServer(fs, nil)

	bodies := []any{
		map[string]string{"follower_id": idA},
		map[string]string{"follower_id": "not-a-uuid", "followed_id": idB},
		map[string]any{"follower_id": 5, "followed_id": idB},
	}
	for _, b := range bodies {
		w := doJSON(s.Handler(), http.MethodPost, "/api/follow", b)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", b)
	}
	assert.False(t, called)
}

func TestDeleteFollow(t *testing.T) {
	var deleted []string
	fs := &fakeFollowService{
		deleteFn: func(followerID, followedID string) error {
			if followerID == idB {
				return common.ErrorNotFound
			}
			deleted = append(deleted, followerID+"->"+followedID)
			return nil
		},
	}
	s := newTestServer(fs, nil)

	w := doJSON(s.Handler(), http.MethodDelete, "/api/follow", map[string]string{"follower_id": idA, "followed_id": idB})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, []string{idA + "->" + idB}, deleted)

	w = doJSON(s.Handler(), http.MethodDelete, "/api/follow", map[string]string{"follower_id": idB, "followed_id": idA})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveFollow(t *testing.T) {
	fs := &fakeFollowService{
		approveFn: func(id string) (*models.Follow, error) {
			if id == idB {
				return nil, fmt.Errorf("follow request already approved: %w", common.ErrorConflict)
			}
			return sampleFollow(true), nil
		},
	}
	s := newTestServer(fs, nil)

	w := doJSON(s.Handler(), http.MethodPost, "/api/follow/"+idA+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var f models.Follow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	assert.True(t, f.IsApproved)

	w = doJSON(s.Handler(), http.MethodPost, "/api/follow/"+idB+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(s.Handler(), http.MethodPost, "/api/follow/xyz/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFollowsByFollowed(t *testing.T) {
	fs := &fakeFollowService{
		listFn: func(followedID string) ([]*models.Follow, error) {
			switch followedID {
			case idA:
				return []*models.Follow{}, nil
			case idB:
				return []*models.Follow{sampleFollow(false), sampleFollow(true)}, nil
			}
			return nil, common.ErrorNotFound
		},
	}
	s := newTestServer(fs, nil)

	w := doJSON(s.Handler(), http.MethodGet, "/api/follow/user/"+idA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = doJSON(s.Handler(), http.MethodGet, "/api/follow/user/"+idB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Follow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = doJSON(s.Handler(), http.MethodGet, "/api/follow/user/44444444-4444-4444-4444-444444444444", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(nil, nil)
	w := doJSON(s.Handler(), http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", decodeError(t, w))
}

func TestMetricsEndpoint(t *testing.T) {
	fs := &fakeFollowService{
		listFn: func(string) ([]*models.Follow, error) { return []*models.Follow{}, nil },
	}
	s := newTestServer(fs, nil)
	_ = doJSON(s.Handler(), http.MethodGet, "/api/follow/user/"+idA, nil)

	w := doJSON(s.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `socialgraph_http_requests_total{method="GET",route="/api/follow/user/:followed_id",status="200"} 1`)
}
