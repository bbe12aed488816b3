package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
)

type ctxKey string

const rateUserKey ctxKey = "rate_user"

// UserRateLimit limits requests per authenticated user, falling back to client IP.
// Must run after AuthMiddleware to key by user.
func UserRateLimit(requestLimit int, window time.Duration) gin.HandlerFunc {
	limiter := httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if user, ok := r.Context().Value(rateUserKey).(string); ok && user != "" {
				return "user:" + user, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"error":"rate limit exceeded","kind":"rate_limited"}`))
		}),
	)

	return func(c *gin.Context) {
		if userID, ok := c.Get("user_id"); ok {
			ctx := context.WithValue(c.Request.Context(), rateUserKey, fmt.Sprint(userID))
			c.Request = c.Request.WithContext(ctx)
		}

		passed := false
		limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}
