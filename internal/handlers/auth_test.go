package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/dto"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/testutil"
)

type capturedMailer struct {
	codes []string
}

func (m *capturedMailer) SendOTP(_ context.Context, mail services.OTPMail) error {
	m.codes = append(m.codes, mail.Code)
	return nil
}

type authTestEnv struct {
	db          *gorm.DB
	handler     *AuthHandler
	authService *services.AuthService
	mailer      *capturedMailer
	router      *gin.Engine
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	mailer := &capturedMailer{}
	authService := services.NewAuthService(repository.NewUserRepository(db), mailer, services.AuthOptions{BcryptCost: bcrypt.MinCost})
	handler := NewAuthHandler(authService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/api/login", handler.Login)
	r.GET("/api/logout", handler.Logout)
	r.POST("/api/users/generateotp", handler.GenerateOTP)
	r.PUT("/api/users/resetpassword", handler.ResetPassword)

	return authTestEnv{
		db:          db,
		handler:     handler,
		authService: authService,
		mailer:      mailer,
		router:      r,
	}
}

func (env authTestEnv) do(t *testing.T, method, url string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Status int `json:"status"`
	Data   T   `json:"data"`
	Error  struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)
	testutil.CreateUser(t, env.db, "existing", models.RoleEmployee)

	w := env.do(t, http.MethodPost, "/api/login", map[string]string{
		"email":    "existing@example.com",
		"password": testutil.Password,
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.UserDTO](t, w)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, "existing", resp.Data.Name)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	env := setupAuthTestEnv(t)
	user := testutil.CreateUser(t, env.db, "existing", models.RoleEmployee)

	w := env.do(t, http.MethodPost, "/api/login", map[string]string{"email": user.Email, "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "INVALID_CREDENTIALS", decode[any](t, w).Error.Code)

	w = env.do(t, http.MethodPost, "/api/login", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, decode[any](t, w).Error.Details, 2)

	require.NoError(t, env.db.Model(user).Update("status", models.UserStatusInactive).Error)
	w = env.do(t, http.MethodPost, "/api/login", map[string]string{"email": user.Email, "password": testutil.Password})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t)
	user := testutil.CreateUser(t, env.db, "current-user", models.RoleHR)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyIdentity, services.Actor{ID: user.ID, Name: user.Name, Role: user.Role})

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, user.Name, decode[dto.UserDTO](t, w).Data.Name)
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	env := setupAuthTestEnv(t)
	user := testutil.CreateUser(t, env.db, "ann", models.RoleEmployee)

	// Without a pending reset in the session.
	w := env.do(t, http.MethodPut, "/api/users/resetpassword", map[string]string{
		"otp": "123456", "password": "n3w-pass", "confirmPassword": "n3w-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/generateotp", map[string]string{"email": user.Email})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.mailer.codes, 1)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = env.do(t, http.MethodPut, "/api/users/resetpassword", map[string]string{
		"otp": env.mailer.codes[0], "password": "n3w-pass", "confirmPassword": "n3w-pass",
	}, cookies...)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/login", map[string]string{"email": user.Email, "password": "n3w-pass"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_GenerateOTPUnknownEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users/generateotp", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, env.mailer.codes)
}
