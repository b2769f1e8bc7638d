package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL 令牌最短有效期，至少覆盖一次断线重连
	DefaultTokenTTL = 30 * time.Minute

	tokenIssuer = "skirmish-server"
	devSecret   = "skirmish-dev-secret-change-in-production"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims 会话令牌只绑定实体 ID
type Claims struct {
	EntityID string `json:"eid"`
	jwt.RegisteredClaims
}

// Tokens 签发和校验 game:init 中携带的会话令牌
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokens 空密钥时回退到开发密钥
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if secret == "" {
		secret = devSecret
	}
	if ttl < DefaultTokenTTL {
		ttl = DefaultTokenTTL
	}
	return &Tokens{key: []byte(secret), ttl: ttl, now: time.Now}
}

// TokensFromEnv 从 JWT_SECRET 读取密钥
func TokensFromEnv(ttl time.Duration) *Tokens {
	return NewTokens(os.Getenv("JWT_SECRET"), ttl)
}

func (t *Tokens) Issue(entityID string) (string, error) {
	now := t.now()
	claims := Claims{
		EntityID: entityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   entityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("签名失败: %w", err)
	}
	return signed, nil
}

// Verify 返回令牌绑定的实体 ID
func (t *Tokens) Verify(raw string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.key, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.EntityID == "" {
		return "", ErrInvalidToken
	}
	return claims.EntityID, nil
}
