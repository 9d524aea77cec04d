package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/metrics"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/password"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/token"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"
)

const (
	emailMaxLen = 255
	nameMaxLen  = 255

	msgInvalidCredentials = "incorrect email or password"
	msgInvalidToken       = "could not validate credentials"
)

// Identity 是通过令牌认证后的调用方身份。
type Identity struct {
	UserID uint
	Email  string
}

// RegisterInput 注册参数。
type RegisterInput struct {
	Email    string
	Name     *string
	Password string
}

// LoginResult 登录结果。
type LoginResult struct {
	Token token.Issued
	User  *model.User
}

// AuthService 处理注册、登录与令牌认证。
type AuthService struct {
	users  UserStore
	hasher *password.Hasher
	tokens *token.Service
	logger *slog.Logger
	clock  Clock

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService 创建 AuthService。
func NewAuthService(users UserStore, hasher *password.Hasher, tokens *token.Service, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// WithClock 替换时间源（测试用）。
func (s *AuthService) WithClock(c Clock) *AuthService {
	s.clock = c
	return s
}

// Register 创建新用户。邮箱已存在时返回 Conflict。
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	const op = "AuthService.Register"
	if err := validateRegister(op, in); err != nil {
		metrics.AuthEvent("register", "validation")
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	if err == nil {
		metrics.AuthEvent("register", "conflict")
		return nil, apperr.Conflict(op, "email already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal(op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(op, err)
	}

	now := s.clock.now()
	user := &model.User{
		Email:     in.Email,
		Name:      in.Name,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.AuthEvent("register", "conflict")
			return nil, apperr.Conflict(op, "email already exists")
		}
		return nil, s.internal(op, err)
	}

	metrics.AuthEvent("register", "ok")
	s.log().Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Login 校验用户凭证并签发令牌。
//
// 邮箱不存在与密码错误返回相同的错误，日志中保留具体原因。
func (s *AuthService) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	const op = "AuthService.Login"
	if email == "" || pw == "" {
		metrics.AuthEvent("login", "validation")
		return nil, apperr.Validation(op, "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, s.internal(op, err)
		}
		// 保持与密码校验相近的耗时
		s.hasher.Verify(pw, s.dummy())
		metrics.AuthEvent("login", "unauthenticated")
		s.log().Warn("login failed", slog.String("reason", "unknown email"))
		return nil, apperr.Unauthenticated(op, msgInvalidCredentials)
	}

	if !s.hasher.Verify(pw, user.Password) {
		metrics.AuthEvent("login", "unauthenticated")
		s.log().Warn("login failed", slog.String("reason", "password mismatch"), slog.Uint64("user_id", uint64(user.ID)))
		return nil, apperr.Unauthenticated(op, msgInvalidCredentials)
	}

	issued, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, s.internal(op, err)
	}

	metrics.AuthEvent("login", "ok")
	s.log().Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	return &LoginResult{Token: issued, User: user}, nil
}

// Authenticate 将 bearer 令牌解析为身份，并确认用户仍然存在。
//
// 令牌无效或用户已不存在都返回 Unauthenticated；只有存储故障才是 Internal。
func (s *AuthService) Authenticate(ctx context.Context, raw string) (Identity, error) {
	const op = "AuthService.Authenticate"
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		metrics.AuthEvent("authenticate", "unauthenticated")
		return Identity{}, apperr.Unauthenticated(op, msgInvalidToken)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.AuthEvent("authenticate", "unauthenticated")
			s.log().Debug("token refers to missing user", slog.Uint64("user_id", uint64(claims.UserID)))
			return Identity{}, apperr.Unauthenticated(op, msgInvalidToken)
		}
		return Identity{}, s.internal(op, err)
	}
	return Identity{UserID: user.ID, Email: user.Email}, nil
}

// CurrentUser 返回已认证用户的资料。
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	const op = "AuthService.CurrentUser"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(op, "user not found")
		}
		return nil, s.internal(op, err)
	}
	return user, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

func (s *AuthService) internal(op string, err error) error {
	s.log().Error("auth operation failed", slog.String("op", op), slog.String("error", err.Error()))
	return apperr.Internal(op, err)
}

func (s *AuthService) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func validateRegister(op string, in RegisterInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return apperr.Validation(op, "email is required")
	}
	if utf8.RuneCountInString(in.Email) > emailMaxLen {
		return apperr.Validation(op, "email is too long")
	}
	if in.Password == "" {
		return apperr.Validation(op, "password is required")
	}
	if in.Name != nil && utf8.RuneCountInString(*in.Name) > nameMaxLen {
		return apperr.Validation(op, "name is too long")
	}
	return nil
}
