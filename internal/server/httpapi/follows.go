package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type followPairRequest struct {
	FollowerID string `json:"follower_id" binding:"required,uuid"`
	FollowedID string `json:"followed_id" binding:"required,uuid"`
}

type followIDURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type followedIDURI struct {
	FollowedID string `uri:"followed_id" binding:"required,uuid"`
}

// createFollow handles POST /api/follow.
func (s *HTTPServer) createFollow(c *gin.Context) {
	var req followPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	follow, err := s.follows.CreateFollow(c.Request.Context(), req.FollowerID, req.FollowedID)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, follow)
}

// deleteFollow handles DELETE /api/follow.
func (s *HTTPServer) deleteFollow(c *gin.Context) {
	var req followPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := s.follows.DeleteFollow(c.Request.Context(), req.FollowerID, req.FollowedID); err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// approveFollow handles POST /api/follow/:id/approve.
func (s *HTTPServer) approveFollow(c *gin.Context) {
	var uri followIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeBindError(c, err)
		return
	}

	follow, err := s.follows.ApproveFollow(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, follow)
}

// listFollowsByFollowed handles GET /api/follow/user/:followed_id.
func (s *HTTPServer) listFollowsByFollowed(c *gin.Context) {
	var uri followedIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeBindError(c, err)
		return
	}

	follows, err := s.follows.ListFollowsByFollowed(c.Request.Context(), uri.FollowedID)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, follows)
}
