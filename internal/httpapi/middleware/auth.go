package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

func parseBearer(c *gin.Context, secret string) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tokenStr := strings.TrimPrefix(h, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// AuthRequired verifies the identity provider's bearer token and exposes its
// subject as the user id. User identities are referenced, never owned, here.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := parseBearer(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// AuthOptional resolves the user id when a valid token is present but never
// rejects. Used by the public emotion endpoint to attribute mood updates.
func AuthOptional(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := parseBearer(c, secret); ok {
			c.Set(UserIDKey, uid)
		}
		c.Next()
	}
}

// UserID extracts the authenticated user id from the request context.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
