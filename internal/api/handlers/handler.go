package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vaps-tech/vaps-server/internal/api/middleware"
	"github.com/vaps-tech/vaps-server/internal/mailer"
	"github.com/vaps-tech/vaps-server/internal/repositories"
	"github.com/vaps-tech/vaps-server/internal/utils"
	"gorm.io/gorm"
)

// Package-level collaborators, wired in main. Tests swap in fakes.
var (
	Mail    mailer.Sender
	Avatars repositories.AvatarStore
)

type apiFunc func(http.ResponseWriter, *http.Request) error

// Wrap is the single error boundary: typed APIErrors become their envelope,
// anything else becomes a plain 500 so internals never leak to clients.
func Wrap(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var apiErr *utils.APIError
		if errors.As(err, &apiErr) {
			utils.JSONResponse(w, apiErr.Status, utils.Payload{
				Success: false,
				Message: apiErr.Message,
			})
			return
		}

		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Internal server error",
		})
	}
}

func requireMethod(r *http.Request, method string) error {
	if r.Method != method {
		return utils.NewAPIError(http.StatusMethodNotAllowed, "Method not allowed")
	}
	return nil
}

// userIDFromContext returns the id placed there by the auth middleware.
func userIDFromContext(r *http.Request) (string, error) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		return "", utils.Unauthorized("Unauthorized")
	}
	return userID, nil
}

// isDuplicateKey reports whether a write was rejected by a unique index.
// Postgres and the sqlite driver used in tests phrase this differently.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
