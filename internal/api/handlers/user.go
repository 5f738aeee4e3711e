package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vaps-tech/vaps-server/internal/auth"
	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/models"
	"github.com/vaps-tech/vaps-server/internal/repositories"
	"github.com/vaps-tech/vaps-server/internal/utils"
	"gorm.io/gorm"
)

const maxAvatarSize = 10 << 20 // 10 MB

// POST /api/v1/users/register
// RegisterUser godoc
// @Summary Register a new account
// @Description Creates an unverified account, uploads the avatar and emails a 6-digit OTP.
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param fullname formData string true "Full name"
// @Param password formData string true "Password"
// @Param confirmPassword formData string true "Password confirmation"
// @Param avatar formData file true "Avatar image"
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/v1/users/register [post]
func RegisterUser(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		return utils.BadRequest("Invalid registration form")
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	fullname := r.FormValue("fullname")
	password := r.FormValue("password")
	confirmPassword := r.FormValue("confirmPassword")

	if username == "" || email == "" || fullname == "" || password == "" || confirmPassword == "" {
		return utils.BadRequest("All fields are required")
	}
	if password != confirmPassword {
		return utils.BadRequest("Passwords do not match")
	}

	var existing models.User
	err := repositories.DB.Where("username = ? OR email = ?", username, email).First(&existing).Error
	switch err {
	case nil:
		return utils.Conflict("User with email or username already exists")
	case gorm.ErrRecordNotFound:
		// new user
	default:
		return fmt.Errorf("checking existing user: %w", err)
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		return utils.BadRequest("Avatar file is required")
	}
	defer file.Close()

	avatarURL, err := Avatars.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return utils.BadRequest("Avatar file is required")
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generating otp: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	newUser := models.User{
		Username:   username,
		Email:      email,
		Fullname:   fullname,
		Password:   hashed,
		Avatar:     avatarURL,
		OTP:        otp,
		IsVerified: false,
		IsDisabled: false,
	}

	if err := repositories.DB.Create(&newUser).Error; err != nil {
		// The unique index can still reject the write if a concurrent
		// registration won the race.
		if isDuplicateKey(err) {
			return utils.Conflict("User with email or username already exists")
		}
		return fmt.Errorf("creating user: %w", err)
	}

	if err := Mail.Send(newUser.Email, "Verify VAPS Registration", verificationEmailBody(fullname, otp)); err != nil {
		// The record stays; the user just never got the mail.
		return utils.Internal("Failed to send verification email")
	}

	var created models.User
	if err := repositories.DB.First(&created, "id = ?", newUser.ID).Error; err != nil {
		return utils.Internal("Something went wrong while registering the user")
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "User registered successfully",
		Data:    created,
	})
	return nil
}

// POST /api/v1/users/send-otp
// SendOtp godoc
// @Summary Re-send the verification OTP
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/users/send-otp [post]
func SendOtp(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return utils.BadRequest("Invalid input")
	}

	var user models.User
	if err := repositories.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFound("User not found")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generating otp: %w", err)
	}
	if err := repositories.DB.Model(&user).Update("otp", otp).Error; err != nil {
		return fmt.Errorf("storing otp: %w", err)
	}

	if err := Mail.Send(user.Email, "Verify VAPS Registration", verificationEmailBody(user.Fullname, otp)); err != nil {
		return utils.Internal("Failed to send verification email")
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "OTP sent successfully",
	})
	return nil
}

// POST /api/v1/users/verify
// VerifyUser godoc
// @Summary Verify an account with the emailed OTP
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/users/verify [post]
func VerifyUser(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	// Clients send the OTP either as a number or a string.
	var input struct {
		OTP json.Number `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return utils.BadRequest("Invalid input")
	}
	otp, err := input.OTP.Int64()
	if err != nil {
		return utils.BadRequest("Invalid OTP or email")
	}

	// Lookup is by OTP value alone, not scoped to an account.
	var user models.User
	if err := repositories.DB.Where("otp = ?", otp).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.BadRequest("Invalid OTP or email")
		}
		return fmt.Errorf("looking up otp: %w", err)
	}

	if err := repositories.DB.Model(&user).Update("is_verified", true).Error; err != nil {
		return fmt.Errorf("marking user verified: %w", err)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "User verified successfully",
	})
	return nil
}

// POST /api/v1/users/login
// LoginUser godoc
// @Summary Log in with email and password
// @Description Sets accessToken and refreshToken cookies on success.
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/users/login [post]
func LoginUser(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return utils.BadRequest("Invalid input")
	}

	// Rejects only when both are absent. A lone missing field falls through
	// to the lookup / password check below.
	if input.Email == "" && input.Password == "" {
		return utils.BadRequest("Please provide both email and password")
	}

	var user models.User
	if err := repositories.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFound("User does not exist")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if !auth.CheckPassword(user.Password, input.Password) {
		return utils.Unauthorized("Invalid credentials")
	}
	if !user.IsVerified {
		return utils.Forbidden("Please verify your account")
	}
	if user.IsDisabled {
		return utils.Forbidden("Your account is disabled. Please contact support.")
	}

	accessToken, refreshToken, err := issueTokenPair(&user)
	if err != nil {
		return err
	}

	setAuthCookies(w, accessToken, refreshToken)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "User logged in successfully",
		Data: map[string]any{
			"user":         user,
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
	})
	return nil
}

// POST /api/v1/users/logout
// Logout godoc
// @Summary Log out the current user
// @Tags Users
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/users/logout [post]
func Logout(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	userID, err := userIDFromContext(r)
	if err != nil {
		return err
	}

	if err := repositories.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", "").Error; err != nil {
		return fmt.Errorf("clearing refresh token: %w", err)
	}

	clearAuthCookies(w)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logged out successfully",
	})
	return nil
}

// POST /api/v1/users/refresh-token
// RefreshAccessToken godoc
// @Summary Rotate the token pair using the refreshToken cookie
// @Tags Users
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/users/refresh-token [post]
func RefreshAccessToken(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	cookie, err := r.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		return utils.Unauthorized("Unauthorized request")
	}

	userID, err := auth.VerifyRefreshToken(cookie.Value)
	if err != nil {
		return utils.Unauthorized("Invalid refresh token")
	}

	var user models.User
	if err := repositories.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Unauthorized("Invalid refresh token")
	}

	// A logged-out (or rotated) token no longer matches the stored one.
	if user.RefreshToken != cookie.Value {
		return utils.Unauthorized("Refresh token is expired or used")
	}

	accessToken, refreshToken, err := issueTokenPair(&user)
	if err != nil {
		return err
	}

	setAuthCookies(w, accessToken, refreshToken)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Access token refreshed",
		Data: map[string]any{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
	})
	return nil
}

// GET /api/v1/users/me
// CurrentUser godoc
// @Summary Get the authenticated user
// @Tags Users
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/users/me [get]
func CurrentUser(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodGet); err != nil {
		return err
	}

	userID, err := userIDFromContext(r)
	if err != nil {
		return err
	}

	var user models.User
	if err := repositories.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFound("User not found")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "User fetched successfully",
		Data:    user,
	})
	return nil
}

// PATCH /api/v1/users/password
// ChangePassword godoc
// @Summary Change the current user's password
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/users/password [patch]
func ChangePassword(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPatch); err != nil {
		return err
	}

	userID, err := userIDFromContext(r)
	if err != nil {
		return err
	}

	var input struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return utils.BadRequest("Invalid input")
	}

	var user models.User
	if err := repositories.DB.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	if !auth.CheckPassword(user.Password, input.OldPassword) {
		return utils.BadRequest("Invalid old password")
	}

	hashed, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := repositories.DB.Model(&user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("storing password: %w", err)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Password changed successfully",
	})
	return nil
}

// PATCH /api/v1/users/profile
// UpdateProfile godoc
// @Summary Update the current user's fullname and email
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/v1/users/profile [patch]
func UpdateProfile(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPatch); err != nil {
		return err
	}

	userID, err := userIDFromContext(r)
	if err != nil {
		return err
	}

	var input struct {
		Fullname string `json:"fullname"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return utils.BadRequest("Invalid input")
	}
	if input.Fullname == "" || input.Email == "" {
		return utils.BadRequest("All fields are required")
	}

	err = repositories.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"fullname": input.Fullname, "email": input.Email}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return utils.Conflict("User with email or username already exists")
		}
		return fmt.Errorf("updating profile: %w", err)
	}

	var user models.User
	if err := repositories.DB.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Account details updated successfully",
		Data:    user,
	})
	return nil
}

// PATCH /api/v1/users/avatar
// UpdateAvatar godoc
// @Summary Replace the current user's avatar
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/users/avatar [patch]
func UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPatch); err != nil {
		return err
	}

	userID, err := userIDFromContext(r)
	if err != nil {
		return err
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		return utils.BadRequest("Avatar file is required")
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		return utils.BadRequest("Avatar file is required")
	}
	defer file.Close()

	avatarURL, err := Avatars.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return utils.BadRequest("Avatar file is required")
	}

	if err := repositories.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("avatar", avatarURL).Error; err != nil {
		return fmt.Errorf("updating avatar: %w", err)
	}

	var user models.User
	if err := repositories.DB.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Avatar updated successfully",
		Data:    user,
	})
	return nil
}

func issueTokenPair(user *models.User) (string, string, error) {
	accessToken, err := auth.GenerateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("generating access token: %w", err)
	}
	refreshToken, err := auth.GenerateRefreshToken(user)
	if err != nil {
		return "", "", fmt.Errorf("generating refresh token: %w", err)
	}
	if err := repositories.DB.Model(user).Update("refresh_token", refreshToken).Error; err != nil {
		return "", "", fmt.Errorf("storing refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	isProd := config.Envs.Environment == "production"

	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(config.Envs.Token.AccessExpiry / time.Second),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(config.Envs.Token.RefreshExpiry / time.Second),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	isProd := config.Envs.Environment == "production"

	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1, // maxAge < 0 deletes the cookie
			Secure:   isProd,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func verificationEmailBody(fullname string, otp int64) string {
	return fmt.Sprintf(`Dear %s,

Thank you for registering with VAPS technology. To complete the verification process and activate your account, please use the One-Time Password (OTP) below:

Your OTP is: %d

This OTP is valid for the next 10 minutes. If you did not request this, please ignore this email or contact our support team immediately.

For your security, do not share this OTP with anyone.

Best regards,
VAPS technology`, fullname, otp)
}
