package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

const actorContextKey = "auth_actor"

// GinMiddleware validates the bearer token and stores the caller
// identity on the request context.
func GinMiddleware(cfg Config) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "missing bearer token"},
			})
			return
		}
		actor, err := ParseToken(cfg, token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "invalid token"},
			})
			return
		}
		ctx.Set(actorContextKey, actor)
		ctx.Next()
	}
}

// GetActor returns the authenticated caller stored by GinMiddleware.
func GetActor(ctx *gin.Context) (rental.Actor, bool) {
	value, ok := ctx.Get(actorContextKey)
	if !ok {
		return rental.Actor{}, false
	}
	actor, ok := value.(rental.Actor)
	return actor, ok
}
