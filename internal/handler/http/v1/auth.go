package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openrescue/emergency_dispatch_system/internal/config"
	"github.com/openrescue/emergency_dispatch_system/internal/identity"
	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

const actorContextKey = "actor"

// ActorAuthMiddleware resolves the request's API key to an actor and stores
// it in the gin context. With DEMO_MODE enabled, an X-Demo-Role header may
// override the actor's role, mirroring the mobile app's role switcher.
func ActorAuthMiddleware(provider identity.Provider, cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		actor, ok := provider.ActorForKey(apiKey)
		if !ok {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		if cfg.DemoMode {
			if override := models.Role(c.GetHeader("X-Demo-Role")); override != "" {
				if !override.Valid() {
					c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown demo role"})
					return
				}
				log.WithFields(logrus.Fields{"actor_id": actor.ID, "role": override}).Warn("Demo role override in effect")
				actor.Role = override
			}
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// actorFromContext returns the actor the auth middleware resolved.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}
