package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/models"
	"github.com/vaps-tech/vaps-server/internal/repositories"
	"github.com/vaps-tech/vaps-server/internal/utils"
)

// POST /api/v1/contact
// SubmitContactForm godoc
// @Summary Submit the contact form
// @Description Archives the submission and notifies the site administrator by email.
// @Tags Contact
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/contact [post]
func SubmitContactForm(w http.ResponseWriter, r *http.Request) error {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return err
	}

	var input struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return utils.BadRequest("Invalid input")
	}
	if input.Name == "" || input.Email == "" || input.Message == "" {
		return utils.BadRequest("Please fill in all fields")
	}

	form := models.ContactUs{
		Name:    input.Name,
		Email:   input.Email,
		Message: input.Message,
	}
	if err := repositories.DB.Create(&form).Error; err != nil {
		return fmt.Errorf("creating contact form: %w", err)
	}

	body := fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s", input.Name, input.Email, input.Message)
	if err := Mail.Send(config.Envs.AdminEmail, "New Contact Us Form Submission", body); err != nil {
		return utils.Internal("Failed to notify administrator")
	}

	var created models.ContactUs
	if err := repositories.DB.Where("email = ?", input.Email).First(&created).Error; err != nil {
		return utils.Internal("Failed to create contact us form")
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Form submitted successfully",
	})
	return nil
}
