package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parseJWT = func(tokenStr string, keyFunc jwt.Keyfunc) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, keyFunc)
}

var (
	ErrMissingToken         = errors.New("missing token")
	ErrInvalidToken         = errors.New("invalid token")
	ErrMissingUserID        = errors.New("token carries no user id")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrDenylistUnavailable  = errors.New("token denylist unavailable")
	errUnexpectedSigningAlg = errors.New("unexpected signing method")
)

// Denylist reports tokens revoked before their expiry.
type Denylist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// TokenVerifier validates bearer tokens once, at connection time.
type TokenVerifier struct {
	secret   []byte
	denylist Denylist
}

// NewTokenVerifier returns a verifier for HS256 tokens signed with secret.
// denylist may be nil.
func NewTokenVerifier(secret string, denylist Denylist) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), denylist: denylist}
}

// Authenticate returns the user id carried by token.
func (v *TokenVerifier) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	parsed, err := parseJWT(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningAlg
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, err := UserIDFromClaims(claims)
	if err != nil {
		return "", err
	}

	if v.denylist != nil {
		revoked, err := v.denylist.IsRevoked(ctx, token)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDenylistUnavailable, err)
		}
		if revoked {
			return "", ErrTokenRevoked
		}
	}
	return userID, nil
}

// UserIDFromClaims reads "userId", falling back to "sub". Numeric ids are
// formatted without a fractional part.
func UserIDFromClaims(claims jwt.MapClaims) (string, error) {
	for _, key := range []string{"userId", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return "", ErrMissingUserID
}

// GenerateToken signs an HS256 token for userID that expires after ttl.
func GenerateToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"sub":    userID,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// TokenFromRequest reads the "token" query parameter, then the Authorization
// header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return ExtractTokenFromHeader(r.Header.Get("Authorization"))
}

func ExtractTokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TokenExpiry reports when token expires without verifying its signature.
// Used to size denylist entries.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrInvalidToken
	}
	return exp.Time, nil
}
