package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/models"
	"github.com/vaps-tech/vaps-server/internal/repositories"
)

func countContacts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, repositories.DB.Model(&models.ContactUs{}).Count(&n).Error)
	return n
}

func TestContact_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	submissions := []map[string]string{
		{"email": "a@x.com", "message": "hi"},
		{"name": "A", "message": "hi"},
		{"name": "A", "email": "a@x.com"},
		{},
	}
	for _, body := range submissions {
		rec := env.postJSON(t, "/api/v1/contact", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	assert.Equal(t, int64(0), countContacts(t))
	assert.Equal(t, 0, env.mail.count())
}

func TestContact_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/v1/contact", map[string]string{
		"name":    "Alice",
		"email":   "alice@x.com",
		"message": "I have a question",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Equal(t, int64(1), countContacts(t))
	var form models.ContactUs
	require.NoError(t, repositories.DB.First(&form).Error)
	assert.Equal(t, "Alice", form.Name)
	assert.Equal(t, "alice@x.com", form.Email)
	assert.Equal(t, "I have a question", form.Message)

	mail := env.mail.last(t)
	assert.Equal(t, config.Envs.AdminEmail, mail.To)
	assert.Equal(t, "New Contact Us Form Submission", mail.Subject)
	assert.Contains(t, mail.Body, "Alice")
	assert.Contains(t, mail.Body, "alice@x.com")
	assert.Contains(t, mail.Body, "I have a question")
}

func TestContact_EverySubmissionPersists(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		rec := env.postJSON(t, "/api/v1/contact", map[string]string{
			"name":    "Alice",
			"email":   "alice@x.com",
			"message": "same message every time",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	assert.Equal(t, int64(3), countContacts(t))
}

// A mail failure after the record was written is reported as a 500 but the
// record is intentionally not rolled back.
func TestContact_MailFailureKeepsRecord(t *testing.T) {
	env := newTestEnv(t)
	env.mail.fail = true

	rec := env.postJSON(t, "/api/v1/contact", map[string]string{
		"name":    "Alice",
		"email":   "alice@x.com",
		"message": "hello",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int64(1), countContacts(t))
}
