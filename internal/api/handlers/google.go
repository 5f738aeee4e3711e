package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vaps-tech/vaps-server/internal/api/services"
	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/models"
	"github.com/vaps-tech/vaps-server/internal/repositories"
	"gorm.io/gorm"
)

// GET /api/v1/auth/google/login
func HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	redirectType := r.URL.Query().Get("redirect") // "login" or "register"
	if redirectType == "" {
		redirectType = "login"
	}

	state, err := GenerateState(map[string]string{"flow": redirectType})
	if err != nil {
		http.Error(w, "Failed to generate OAuth state", http.StatusInternalServerError)
		return
	}

	url := services.GoogleOauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GET /api/v1/auth/google/callback
func HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	frontend := config.Envs.FrontendURL

	state := r.FormValue("state")
	stateData, err := DecodeState(state)
	if err != nil {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	flowType := stateData["flow"] // "login" or "register"
	code := r.FormValue("code")

	token, err := services.GoogleOauthConfig.Exchange(context.Background(), code)
	if err != nil {
		log.Error().Err(err).Msg("oauth code exchange failed")
		http.Error(w, "Code exchange failed", http.StatusInternalServerError)
		return
	}

	client := services.GoogleOauthConfig.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	var googleUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(data, &googleUser); err != nil {
		http.Error(w, "Failed to parse user info", http.StatusInternalServerError)
		return
	}

	var user models.User
	err = repositories.DB.Where("email = ?", googleUser.Email).First(&user).Error

	switch flowType {
	case "register":
		if err == nil {
			http.Redirect(w, r, frontend+"/login?error=user_already_exists", http.StatusTemporaryRedirect)
			return
		}
		// Google already attests the email, so the account starts verified
		// and skips the OTP flow entirely.
		user = models.User{
			Username:   googleUser.Email,
			Email:      googleUser.Email,
			Fullname:   googleUser.Name,
			Avatar:     googleUser.Picture,
			Password:   "", // Google-authenticated
			IsVerified: true,
		}
		if err := repositories.DB.Create(&user).Error; err != nil {
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}

	case "login":
		if err == gorm.ErrRecordNotFound {
			http.Redirect(w, r, frontend+"/register?error=user_not_found", http.StatusTemporaryRedirect)
			return
		} else if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if user.IsDisabled {
			http.Redirect(w, r, frontend+"/login?error=account_disabled", http.StatusTemporaryRedirect)
			return
		}
	}

	accessToken, refreshToken, err := issueTokenPair(&user)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	setAuthCookies(w, accessToken, refreshToken)

	redirectURL := fmt.Sprintf("%s/?status=success_%s", frontend, flowType)
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}
