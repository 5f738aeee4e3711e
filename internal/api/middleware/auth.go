package middleware

import (
	"context"
	"net/http"

	"github.com/vaps-tech/vaps-server/internal/auth"
	"github.com/vaps-tech/vaps-server/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

// AuthMiddleware verifies the accessToken cookie and puts the user id on the
// request context. Protected handlers may assume the id is present.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie("accessToken")
		if err != nil {
			utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
				Success: false,
				Message: "Unauthorized",
			})
			return
		}

		userID, err := auth.VerifyAccessToken(cookie.Value)
		if err != nil || userID == "" {
			utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
				Success: false,
				Message: "Unauthorized",
			})
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
