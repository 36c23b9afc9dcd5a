package rest

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Header carrying the shared secret for bridge and agent endpoints. Dashboard
// endpoints instead carry the user identity resolved by the session layer in
// front of this service.
const (
	secretHeader = "X-Bridge-Secret"
	userHeader   = "X-User-Id"
)

// NewServer builds the gin engine and http.Server shell. Routes are attached
// by the controllers.
func NewServer(addr string) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return r, srv
}

// sharedSecret rejects requests whose secret header does not exactly match.
// Runs before any core logic; nothing downstream sees an unauthenticated
// request.
func sharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(secretHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// userIdentity requires the externally-resolved dashboard user id.
func userIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(userHeader)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("userID", user)
		c.Next()
	}
}
