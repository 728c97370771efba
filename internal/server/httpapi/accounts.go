package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	UserName  string `json:"username" binding:"required,username"`
	Password  string `json:"password" binding:"required,min=6"`
	IsPrivate bool   `json:"is_private"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type accountIDURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type loginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         *models.Account `json:"user"`
}

// register handles POST /api/users.
func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	account, err := s.accounts.Register(c.Request.Context(), req.Email, req.UserName, password, req.IsPrivate)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// getAccount handles GET /api/users/:id.
func (s *HTTPServer) getAccount(c *gin.Context) {
	var uri accountIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeBindError(c, err)
		return
	}

	account, err := s.accounts.GetAccount(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// getCredential handles GET /api/users/:id/credential.
func (s *HTTPServer) getCredential(c *gin.Context) {
	var uri accountIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeBindError(c, err)
		return
	}

	credential, err := s.accounts.GetCredential(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, credential)
}

// login handles POST /api/auth/login.
func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	account, pair, err := s.accounts.Login(c.Request.Context(), req.Email, password)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         account,
	})
}

// refresh handles POST /api/auth/refresh.
func (s *HTTPServer) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	pair, err := s.accounts.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// me handles GET /api/auth/me.
func (s *HTTPServer) me(c *gin.Context) {
	account, err := s.accounts.GetAccount(c.Request.Context(), authenticatedAccountID(c))
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
