package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// LoginHandler handles POST /auth/login: it returns the provider consent URL.
func (h *Handler) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := h.service.LoginURL()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"auth_url": url})
	}
}

// LogoutHandler handles POST /auth/logout.
func (h *Handler) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// AuthMiddleware rejects requests without a valid session.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		actor, err := h.service.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(actorKey, actor)
		c.Set("user_id", actor.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the actor when a token is present but lets
// anonymous requests through.
func (h *Handler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if actor, err := h.service.Resolve(c.Request.Context(), token); err == nil {
				c.Set(actorKey, actor)
				c.Set("user_id", actor.ID)
			}
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated actor set by the middleware.
func CurrentActor(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
