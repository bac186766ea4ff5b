package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"account-service/controllers"
	"account-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAccountRouter(t *testing.T, store *ledgerStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := services.NewAccountService(store, services.NewTokenService("test-secret"))
	ctrl := controllers.NewAccountController(svc)

	router := gin.New()
	router.POST("/api/users", ctrl.CreateUser)
	router.POST("/auth/login", ctrl.Login)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateUser_Success(t *testing.T) {
	store := newLedgerStore()
	router := setupAccountRouter(t, store)

	w := postJSON(router, "/api/users", `{
		"name": "Jamie Doe",
		"email": "jamie@example.com",
		"password": "secret-password",
		"passwordConfirm": "secret-password",
		"termsAccepted": true
	}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Message string `json:"message"`
		User    struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Account created successfully", resp.Message)
	assert.Equal(t, "Jamie Doe", resp.User.Name)
	assert.Equal(t, "jamie@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.ID)

	stored, err := store.FindByEmail(context.Background(), "jamie@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret-password", stored.Password)
	assert.NotNil(t, stored.TermsAcceptedAt)
}

func TestCreateUser_PasswordMismatch(t *testing.T) {
	store := newLedgerStore()
	router := setupAccountRouter(t, store)

	w := postJSON(router, "/api/users", `{
		"name": "Jamie Doe",
		"email": "jamie@example.com",
		"password": "secret-password",
		"passwordConfirm": "different-password",
		"termsAccepted": true
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The passwords do not match", resp["error"])
	assert.Empty(t, store.users)
}

func TestCreateUser_TermsNotAccepted(t *testing.T) {
	store := newLedgerStore()
	router := setupAccountRouter(t, store)

	w := postJSON(router, "/api/users", `{
		"name": "Jamie Doe",
		"email": "jamie@example.com",
		"password": "secret-password",
		"passwordConfirm": "secret-password",
		"termsAccepted": false
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "You must accept the Terms and Conditions to create an account.", resp["error"])
	assert.Empty(t, store.users)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newLedgerStore()
	router := setupAccountRouter(t, store)

	body := `{
		"name": "Jamie Doe",
		"email": "jamie@example.com",
		"password": "secret-password",
		"passwordConfirm": "secret-password",
		"termsAccepted": true
	}`

	first := postJSON(router, "/api/users", body)
	second := postJSON(router, "/api/users", body)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "Email already exists", resp["error"])
	assert.Len(t, store.users, 1)
}

func TestCreateUser_InvalidBody(t *testing.T) {
	router := setupAccountRouter(t, newLedgerStore())

	// Missing required fields fails binding before the service runs.
	w := postJSON(router, "/api/users", `{"name": "Jamie Doe"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	store := newLedgerStore()
	router := setupAccountRouter(t, store)

	created := postJSON(router, "/api/users", `{
		"name": "Jamie Doe",
		"email": "jamie@example.com",
		"password": "secret-password",
		"passwordConfirm": "secret-password",
		"termsAccepted": true
	}`)
	require.Equal(t, http.StatusCreated, created.Code)

	t.Run("Success", func(t *testing.T) {
		w := postJSON(router, "/auth/login", `{"email":"jamie@example.com","password":"secret-password"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		cookies := w.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, "token", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		w := postJSON(router, "/auth/login", `{"email":"jamie@example.com","password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid email or password", resp["error"])
	})

	t.Run("Unknown Email", func(t *testing.T) {
		w := postJSON(router, "/auth/login", `{"email":"nobody@example.com","password":"secret-password"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid email or password", resp["error"])
	})
}
