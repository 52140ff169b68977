package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postbridge/usecase"
)

// RequireSession gates dashboard routes on a locally stored session. Token
// validity is not checked here; the request pipeline refreshes or invalidates
// on the first backend call.
func RequireSession(sessions *usecase.SessionStore) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if sessions.Load() == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Your session has expired. Please sign in again.",
			})
			return
		}
		ctx.Next()
	}
}
