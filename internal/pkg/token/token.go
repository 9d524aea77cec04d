// Package token 签发并校验无状态的 HS256 Bearer 令牌。
//
// 没有吊销列表，令牌在过期前一直有效；更换签名密钥会使所有已签发令牌失效。
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL 未配置时的令牌有效期。
const DefaultTTL = 24 * time.Hour

// ErrInvalid 表示令牌校验失败（签名、算法、过期或声明缺失）。
var ErrInvalid = errors.New("invalid token")

// Claims 令牌携带的声明。
type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issued 新签发的令牌。
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Service 使用共享密钥签发和校验令牌。
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService 创建令牌服务，ttl 非正数时使用 DefaultTTL。
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock 返回使用指定时间源的副本（测试用）。
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// TTL 返回令牌有效期。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue 为指定用户签发令牌。
func (s *Service) Issue(userID uint, email string) (Issued, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify 校验签名与有效期并返回声明。
func (s *Service) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalid
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.UserID == 0 {
		return nil, ErrInvalid
	}
	if claims.Subject != "" && claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, ErrInvalid
	}
	return claims, nil
}
