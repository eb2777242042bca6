package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"cityfix/internal/auth"
	"cityfix/internal/perrors"
)

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func RequireAuth(gate *auth.Gate, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gate.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, logger, "authenticate", err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// abortWithError writes {"error", "code"} with the status of err's kind.
func abortWithError(c *gin.Context, logger *slog.Logger, op string, err error) {
	e := perrors.As(err)
	perrors.Log(c.Request.Context(), logger, op, err)
	c.AbortWithStatusJSON(e.HTTPStatus(), gin.H{"error": e.Message, "code": e.Kind.Code})
}
