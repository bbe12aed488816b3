package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/pkg/auth"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BlacklistPrefix prefixes revoked tokens in Redis
const BlacklistPrefix = "blacklist:"

// AuthMiddleware validates JWT tokens and injects the caller into the context.
// rdb may be nil, in which case revocation is not checked.
func AuthMiddleware(jwtManager *auth.JWTManager, rdb redis.Cmdable, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(c, "Invalid authorization format. Use: Bearer <token>")
			return
		}

		tokenString := parts[1]

		if rdb != nil {
			exists, err := rdb.Exists(c.Request.Context(), BlacklistPrefix+tokenString).Result()
			if err != nil {
				// fail closed
				log.Error("token blacklist lookup failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					Envelope: model.Envelope{Error: "Auth server error"},
				})
				return
			}
			if exists > 0 {
				unauthorized(c, "Token has been revoked")
				return
			}
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		// Store user info in context for downstream handlers
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Name)

		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
		Envelope: model.Envelope{Error: msg},
		Kind:     "unauthorized",
	})
}
