package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims: payload token yang diterbitkan user service.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type userKey struct{}

// UserFrom returns the authenticated caller; ok is false outside Authenticate.
func UserFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(userKey{}).(Claims)
	return c, ok
}

func WithUser(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, userKey{}, c)
}

func IssueToken(secret string, userID int64, username, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, raw string) (Claims, error) {
	var c Claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}
	if !tok.Valid || c.UserID <= 0 {
		return Claims{}, errors.New("invalid token")
	}
	return c, nil
}

// Authenticate requires "Authorization: Bearer <jwt>" and stores the claims in the request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeFail(w, http.StatusUnauthorized, "Unauthorized user!")
				return
			}
			c, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejected token")
				writeFail(w, http.StatusUnauthorized, "Unauthorized user!")
				return
			}

			ctx := WithUser(r.Context(), c)
			l := zerolog.Ctx(ctx).With().Int64("user_id", c.UserID).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(ctx)))
		})
	}
}
