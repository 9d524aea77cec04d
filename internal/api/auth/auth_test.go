package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/api/middleware"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/token"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/service"

	"github.com/gin-gonic/gin"
)

type mockService struct {
	registerFunc    func(ctx context.Context, in service.RegisterInput) (*model.User, error)
	loginFunc       func(ctx context.Context, email, password string) (*service.LoginResult, error)
	currentUserFunc func(ctx context.Context, userID uint) (*model.User, error)
	registerCalls   int
}

func (m *mockService) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	m.registerCalls++
	return m.registerFunc(ctx, in)
}

func (m *mockService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	return m.currentUserFunc(ctx, userID)
}

func newRouter(h *Handler, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserID, userID)
		}
		h.Me(c)
	})
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockService{
		registerFunc: func(ctx context.Context, in service.RegisterInput) (*model.User, error) {
			if in.Email == "taken@example.com" {
				return nil, apperr.Conflict("test", "email already exists")
			}
			return &model.User{ID: 1, Email: in.Email, Name: in.Name, Password: "$2a$hash", CreatedAt: now, UpdatedAt: now}, nil
		},
	}
	r := newRouter(NewHandler(svc, logger), 0)

	w := doJSON(r, http.MethodPost, "/register", `{"email":"alice@example.com","name":"Alice","password":"pw123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("hash")) || bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("password leaked: %s", w.Body.String())
	}
	var view model.UserView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != 1 || view.Email != "alice@example.com" || view.Name == nil || *view.Name != "Alice" {
		t.Fatalf("unexpected view %+v", view)
	}

	if w := doJSON(r, http.MethodPost, "/register", `{"email":"taken@example.com","password":"pw"}`); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	calls := svc.registerCalls
	for _, body := range []string{`{`, `{"email":"not-an-email","password":"pw"}`, `{"email":"a@example.com"}`} {
		w := doJSON(r, http.MethodPost, "/register", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, w.Code)
		}
		// 绑定错误不应暴露结构体字段名
		if bytes.Contains(w.Body.Bytes(), []byte("registerRequest")) || !bytes.Contains(w.Body.Bytes(), []byte("invalid request body")) {
			t.Fatalf("%s: unexpected error body %s", body, w.Body.String())
		}
	}
	if svc.registerCalls != calls {
		t.Fatalf("service must not be called for malformed input")
	}
}

func TestLogin(t *testing.T) {
	exp := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	svc := &mockService{
		loginFunc: func(ctx context.Context, email, password string) (*service.LoginResult, error) {
			if password != "pw123" {
				return nil, apperr.Unauthenticated("test", "incorrect email or password")
			}
			return &service.LoginResult{
				Token: token.Issued{Token: "signed.jwt.value", ExpiresAt: exp},
				User:  &model.User{ID: 1, Email: email},
			}, nil
		},
	}
	r := newRouter(NewHandler(svc, nil), 0)

	w := doJSON(r, http.MethodPost, "/login", `{"email":"alice@example.com","password":"pw123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "signed.jwt.value" || resp.TokenType != "bearer" || !resp.ExpiresAt.Equal(exp) || resp.User.ID != 1 {
		t.Fatalf("unexpected login response %+v", resp)
	}

	w = doJSON(r, http.MethodPost, "/login", `{"email":"alice@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("expected WWW-Authenticate header")
	}
}

func TestLogoutAndMe(t *testing.T) {
	svc := &mockService{
		currentUserFunc: func(ctx context.Context, userID uint) (*model.User, error) {
			if userID == 7 {
				return &model.User{ID: 7, Email: "me@example.com"}, nil
			}
			return nil, apperr.NotFound("test", "user not found")
		},
	}

	r := newRouter(NewHandler(svc, nil), 7)
	if w := doJSON(r, http.MethodPost, "/logout", ""); w.Code != http.StatusOK {
		t.Fatalf("expected logout 200, got %d", w.Code)
	}
	w := doJSON(r, http.MethodGet, "/me", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "me@example.com") {
		t.Fatalf("unexpected /me response %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(newRouter(NewHandler(svc, nil), 8), http.MethodGet, "/me", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for vanished user, got %d", w.Code)
	}
	if w := doJSON(newRouter(NewHandler(svc, nil), 0), http.MethodGet, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}
}
