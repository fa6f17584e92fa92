package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(skipForStreams(middleware.Logger()))
	s.router.Use(middleware.CORS())
}

// skipForStreams keeps long-lived stream requests out of the access log
func skipForStreams(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/video_feed" || strings.HasPrefix(path, "/ws/") {
			c.Next()
			return
		}
		next(c)
	}
}
