package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/easylease/sublease/internal/normalize"
)

// defaultKID names the single key of a manager built from one secret.
const defaultKID = "default"

// JWTManager signs and validates the session tokens shared by the chat
// service and the HTTP API. It holds a keyring so secrets can be rotated:
// new tokens use the active key, older tokens verify against the key named
// in their "kid" header.
type JWTManager struct {
	keys      map[string][]byte // kid -> HMAC secret
	activeKID string            // key used for new tokens
	duration  time.Duration     // token lifetime
}

// Claims is the custom JWT payload.
type Claims struct {
	UserID string `json:"user_id"` // MongoDB ObjectID as hex
	Email  string `json:"email"`   // normalized
	jwt.RegisteredClaims
}

// NewJWTManager returns a manager with a single signing secret.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return NewJWTManagerFromKeys(map[string]string{defaultKID: secretKey}, defaultKID, duration)
}

// NewJWTManagerFromKeys returns a manager that signs with keys[activeKID]
// and accepts tokens signed by any key in keys.
func NewJWTManagerFromKeys(keys map[string]string, activeKID string, duration time.Duration) *JWTManager {
	ring := make(map[string][]byte, len(keys))
	for kid, secret := range keys {
		ring[kid] = []byte(secret)
	}
	return &JWTManager{
		keys:      ring,
		activeKID: activeKID,
		duration:  duration,
	}
}

// GenerateToken issues a signed token for a user.
func (m *JWTManager) GenerateToken(userID, email string) (string, time.Time, error) {
	key, ok := m.keys[m.activeKID]
	if !ok {
		return "", time.Time{}, fmt.Errorf("active signing key %q not configured", m.activeKID)
	}

	now := time.Now()
	expiresAt := now.Add(m.duration)

	claims := &Claims{
		UserID: userID,
		Email:  normalize.Email(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = m.activeKID

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// reject anything that is not HMAC, e.g. alg=none or RS256 confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			kid = m.activeKID
		}
		key, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}

	return claims, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	// constant time compare
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
