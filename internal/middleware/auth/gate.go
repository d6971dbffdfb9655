package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/meetsync/internal/logging"
	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/repo"
	"github.com/Skotchmaster/meetsync/internal/tokens"
)

const (
	DefaultCookieName = "token"
	userKey           = "user"
)

type Verifier interface {
	Verify(raw string) (*tokens.SessionClaims, error)
}

type UserLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Gate resolves the session credential of a request into the stored
// identity. Roles are always taken from the store, never from the token.
type Gate struct {
	Tokens     Verifier
	Users      UserLoader
	CookieName string
}

func NewGate(v Verifier, users UserLoader) *Gate {
	return &Gate{Tokens: v, Users: users, CookieName: DefaultCookieName}
}

func (g *Gate) cookieName() string {
	if g.CookieName != "" {
		return g.CookieName
	}
	return DefaultCookieName
}

// Authenticate returns the identity behind the request or an *echo.HTTPError
// with status 401.
func (g *Gate) Authenticate(c echo.Context) (*models.User, error) {
	l := logging.FromContext(c.Request().Context()).With("mw", "auth")

	raw := g.extract(c)
	if raw == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	claims, err := g.Tokens.Verify(raw)
	if err != nil {
		l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication failed")
	}

	user, err := g.Users.FindByID(c.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("auth_failed", "status", 401, "reason", "user not found", "user_id", claims.Subject)
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not found")
		}
		l.Error("auth_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Server error").SetInternal(err)
	}
	return user, nil
}

func (g *Gate) extract(c echo.Context) string {
	if ck, err := c.Cookie(g.cookieName()); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := g.Authenticate(c)
		if err != nil {
			return err
		}
		SetUser(c, user)
		return next(c)
	}
}

// OptionalAuth sets the identity when the request carries a valid session
// and lets anonymous or invalid credentials through without one.
func (g *Gate) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if g.extract(c) != "" {
			if user, err := g.Authenticate(c); err == nil {
				SetUser(c, user)
			}
		}
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func (g *Gate) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			if !slices.Contains(roles, user.Role) {
				logging.FromContext(c.Request().Context()).Warn("auth_forbidden", "status", 403, "role", user.Role, "required", roles)
				return echo.NewHTTPError(http.StatusForbidden, "Not Authorized")
			}
			return next(c)
		}
	}
}

func SetUser(c echo.Context, user *models.User) {
	c.Set(userKey, user)
	l := logging.FromContext(c.Request().Context()).With("user_id", user.ID)
	c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))
}

func UserFromContext(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}
