package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) newRouter() *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(recovery(s.logger), requestLogger(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	api := r.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	follow := api.Group("/follow")
	follow.POST("", s.createFollow)
	follow.DELETE("", s.deleteFollow)
	follow.POST("/:id/approve", s.approveFollow)
	follow.GET("/user/:followed_id", s.listFollowsByFollowed)

	users := api.Group("/users")
	users.POST("", s.register)
	users.GET("/:id", s.getAccount)
	users.GET("/:id/credential", s.getCredential)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)
	authGroup.GET("/me", requireAuth(s.accounts), s.me)

	return r
}
