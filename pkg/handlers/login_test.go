package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B0TMirage/cryptopulse/pkg/models"
)

func TestSignupHandler(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "taken@example.com")

	tests := []struct {
		name         string
		userData     map[string]string
		wantedStatus int
	}{
		{
			name:         "Correct",
			userData:     map[string]string{"username": "testuser", "email": "testuser@example.com", "password": "tester"},
			wantedStatus: http.StatusCreated,
		},
		{
			name:         "Null password",
			userData:     map[string]string{"username": "testuser", "email": "nopass@example.com", "password": ""},
			wantedStatus: http.StatusBadRequest,
		},
		{
			name:         "Password length is less than 4",
			userData:     map[string]string{"username": "testuser", "email": "short@example.com", "password": "404"},
			wantedStatus: http.StatusBadRequest,
		},
		{
			name:         "Null email",
			userData:     map[string]string{"username": "testuser", "email": "", "password": "tester"},
			wantedStatus: http.StatusBadRequest,
		},
		{
			name:         "Email already used",
			userData:     map[string]string{"username": "other", "email": "taken@example.com", "password": "tester"},
			wantedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/signup", "", tt.userData)

			assert.Equal(t, tt.wantedStatus, resp.StatusCode)
			if resp.StatusCode == http.StatusCreated {
				auth := decode[models.AuthResponse](t, resp)
				assert.NotEmpty(t, auth.Token)
				assert.Equal(t, tt.userData["email"], auth.User.Email)
				assert.NotEmpty(t, auth.User.ID)
			} else {
				body := decode[map[string]any](t, resp)
				assert.NotEmpty(t, body["errors"])
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "login@example.com")

	tests := []struct {
		name         string
		userData     map[string]string
		wantedStatus int
	}{
		{name: "Correct", userData: map[string]string{"email": "login@example.com", "password": "tester"}, wantedStatus: http.StatusOK},
		{name: "Wrong password", userData: map[string]string{"email": "login@example.com", "password": "nope"}, wantedStatus: http.StatusBadRequest},
		{name: "Unknown email", userData: map[string]string{"email": "ghost@example.com", "password": "tester"}, wantedStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/login", "", tt.userData)

			require.Equal(t, tt.wantedStatus, resp.StatusCode)
			if resp.StatusCode == http.StatusOK {
				auth := decode[models.AuthResponse](t, resp)
				assert.NotEmpty(t, auth.Token)
				assert.Equal(t, "tester", auth.User.Username)
			}
		})
	}
}

func TestLoginHandlerMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", "not an object")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
