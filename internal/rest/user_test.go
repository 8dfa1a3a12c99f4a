package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farmDirect/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type mockUserService struct {
	RegisterFunc func(ctx context.Context, input domain.Registration) (domain.User, error)
	LoginFunc    func(ctx context.Context, email, password, ipAddress, userAgent string) (domain.Session, domain.User, error)
	LogoutFunc   func(ctx context.Context, session domain.Session) error
}

func (m *mockUserService) Register(ctx context.Context, input domain.Registration) (domain.User, error) {
	return m.RegisterFunc(ctx, input)
}

func (m *mockUserService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (domain.Session, domain.User, error) {
	return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
}

func (m *mockUserService) Logout(ctx context.Context, session domain.Session) error {
	return m.LogoutFunc(ctx, session)
}

func (m *mockUserService) Me(_ context.Context, session domain.Session) (domain.User, error) {
	return domain.User{ID: session.UserID, Role: session.Role}, nil
}

func (m *mockUserService) ListUsers(context.Context, domain.Session, int) ([]domain.User, error) {
	return nil, nil
}

func (m *mockUserService) GetUser(_ context.Context, _ domain.Session, id uint) (domain.User, error) {
	return domain.User{ID: id}, nil
}

func (m *mockUserService) UpdateUser(_ context.Context, _ domain.Session, id uint, _ domain.UserUpdate) (domain.User, error) {
	return domain.User{ID: id}, nil
}

func (m *mockUserService) DeleteUser(context.Context, domain.Session, uint) error {
	return nil
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestRegisterHandler(t *testing.T) {
	var got domain.Registration
	svc := &mockUserService{
		RegisterFunc: func(_ context.Context, input domain.Registration) (domain.User, error) {
			got = input
			return domain.User{ID: 9, Name: input.Name, Email: input.Email, Role: domain.RoleFarmer}, nil
		},
	}

	e := newTestEcho()
	e.POST("/auth/register", NewUserHandler(svc, time.Second).Register)

	rec := serve(e, jsonRequest(http.MethodPost, "/auth/register",
		`{"name":"Wanjiru","email":"wanjiru@example.com","password":"secret1","role":"farmer","farm_name":"Green Acres","phone":"0712000000"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.Registration{
		Name:     "Wanjiru",
		Email:    "wanjiru@example.com",
		Phone:    "0712000000",
		Password: "secret1",
		Role:     "farmer",
		FarmName: "Green Acres",
	}, got)
	assert.NotContains(t, rec.Body.String(), "secret1")
}

func TestRegisterHandlerRejectsBadBody(t *testing.T) {
	svc := &mockUserService{
		RegisterFunc: func(context.Context, domain.Registration) (domain.User, error) {
			t.Fatal("service must not be called")
			return domain.User{}, nil
		},
	}

	e := newTestEcho()
	e.POST("/auth/register", NewUserHandler(svc, time.Second).Register)

	for _, body := range []string{
		`{"name":"Wanjiru","email":"wanjiru@example.com"}`,
		`{"name":"Wanjiru","email":"wanjiru@example.com","password":"12345"}`,
		`{"name":"Wanjiru","email":"not-an-email","password":"secret1"}`,
		`{"email":"wanjiru@example.com","password":"secret1"}`,
		`{`,
	} {
		rec := serve(e, jsonRequest(http.MethodPost, "/auth/register", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "BAD_REQUEST", errorCode(t, rec), body)
	}
}

func TestRegisterHandlerDuplicateEmail(t *testing.T) {
	svc := &mockUserService{
		RegisterFunc: func(context.Context, domain.Registration) (domain.User, error) {
			return domain.User{}, domain.Conflict("email is already registered")
		},
	}

	e := newTestEcho()
	e.POST("/auth/register", NewUserHandler(svc, time.Second).Register)

	rec := serve(e, jsonRequest(http.MethodPost, "/auth/register", `{"name":"A","email":"a@example.com","password":"secret1"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	expires := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := &mockUserService{
		LoginFunc: func(_ context.Context, email, password, ip, userAgent string) (domain.Session, domain.User, error) {
			assert.Equal(t, "amina@example.com", email)
			assert.Equal(t, "secret1", password)
			assert.Equal(t, "192.0.2.1", ip)
			assert.Equal(t, "farm-app/1.0", userAgent)
			return domain.Session{UserID: 3, Role: domain.RoleConsumer, Token: "signed-token", ExpiresAt: expires},
				domain.User{ID: 3, Email: email, Role: domain.RoleConsumer}, nil
		},
	}

	e := newTestEcho()
	e.POST("/auth/login", NewUserHandler(svc, time.Second).Login)

	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"amina@example.com","password":"secret1"}`)
	req.Header.Set("User-Agent", "farm-app/1.0")
	rec := serve(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"signed-token"`)
	assert.Contains(t, rec.Body.String(), `"expires_at":"2026-10-18T12:00:00Z"`)
}

func TestLoginHandlerErrors(t *testing.T) {
	svc := &mockUserService{
		LoginFunc: func(context.Context, string, string, string, string) (domain.Session, domain.User, error) {
			return domain.Session{}, domain.User{}, domain.Unauthorized("invalid email or password")
		},
	}

	e := newTestEcho()
	e.POST("/auth/login", NewUserHandler(svc, time.Second).Login)

	rec := serve(e, jsonRequest(http.MethodPost, "/auth/login", `{"email":"amina@example.com","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = serve(e, jsonRequest(http.MethodPost, "/auth/login", `{"email":"amina@example.com"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	session := domain.Session{UserID: 3, Role: domain.RoleConsumer, Token: "signed-token"}

	var revoked domain.Session
	svc := &mockUserService{
		LogoutFunc: func(_ context.Context, s domain.Session) error {
			revoked = s
			return nil
		},
	}

	e := newTestEcho()
	h := NewUserHandler(svc, time.Second)
	e.POST("/auth/logout", h.Logout, withSession(session))
	e.POST("/auth/logout-anonymous", h.Logout)

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session, revoked)

	rec = serve(e, httptest.NewRequest(http.MethodPost, "/auth/logout-anonymous", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
