package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID       = "userId"
	tokenQueryParam = "access_token"
)

var (
	errMissingAuth   = errors.New("missing Authorization header")
	errMalformedAuth = errors.New("invalid Authorization header format")
)

// bearerToken reads "Authorization: Bearer <t>". Browsers cannot set headers
// on a WebSocket handshake, so allowQuery also accepts ?access_token=<t>.
func bearerToken(c *gin.Context, allowQuery bool) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if allowQuery {
			if t := c.Query(tokenQueryParam); t != "" {
				return t, nil
			}
		}
		return "", errMissingAuth
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", errMalformedAuth
	}
	return parts[1], nil
}

func (h *Handler) authenticate(c *gin.Context, allowQuery bool) {
	token, err := bearerToken(c, allowQuery)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	userId, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxUserID, userId)
	c.Next()
}

func (h *Handler) userIdMiddleware(c *gin.Context) { h.authenticate(c, false) }

func (h *Handler) wsAuthMiddleware(c *gin.Context) { h.authenticate(c, true) }
