package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-service/pkg/logger"
	"user-service/pkg/security"
)

// ClaimsKey is the gin context key holding the verified *security.Claims.
const ClaimsKey = "auth.claims"

const (
	msgTokenRequired = "Authorization token required"
	msgTokenInvalid  = "Invalid or expired token"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*security.Claims, error)
}

// Auth rejects requests without a valid "Authorization: Bearer <token>"
// header. Verified claims are stored under ClaimsKey and the user id is added
// to the request context for logging.
func Auth(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgTokenRequired})
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Debug("bearer token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgTokenInvalid})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// Claims returns the claims stored by Auth.
func Claims(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
