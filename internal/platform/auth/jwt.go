package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims is the session token payload. The role and profile id are resolved
// at login and trusted for the token lifetime; revoking a doctor's consent
// does not require a new token because consent is checked per request.
type Claims struct {
	jwt.RegisteredClaims
	Username  string   `json:"username"`
	Role      RoleKind `json:"role"`
	ProfileID string   `json:"profile_id,omitempty"`
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue returns a signed session token for the identity.
func (t *TokenIssuer) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Username: id.Username,
		Role:     id.Role,
	}
	if id.ProfileID != nil {
		claims.ProfileID = id.ProfileID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a session token and rebuilds the identity it carries.
func (t *TokenIssuer) Parse(tokenStr string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid session token")
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid session token subject")
	}

	id := Identity{
		AccountID: accountID,
		Username:  claims.Username,
		Role:      claims.Role,
	}
	if claims.ProfileID != "" {
		pid, err := uuid.Parse(claims.ProfileID)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid session token profile id")
		}
		id.ProfileID = &pid
	}
	if id.Role == "" {
		id.Role = RoleUnassigned
	}

	return id, nil
}

// Middleware authenticates requests with a bearer session token and places
// the identity in the request context.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			id, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}
