package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/meetsync/internal/logging"
	authmw "github.com/Skotchmaster/meetsync/internal/middleware/auth"
	"github.com/Skotchmaster/meetsync/internal/service"
	"github.com/Skotchmaster/meetsync/internal/stream"
	"github.com/Skotchmaster/meetsync/internal/tokens"
)

type AuthHandler struct {
	Auth *service.AuthService
	// SecureCookies is set in production so the session cookie only travels over TLS.
	SecureCookies bool
}

func CreateCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func DeleteCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgFieldsRequired)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err, msgFieldsRequired))
	}

	if _, err := h.Auth.Register(ctx, req.Name, req.Email, req.Password); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, SignUpResponse{
		Success: true,
		Message: "User registered successfully",
	})
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signin")

	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signin_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgFieldsRequired)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err, msgFieldsRequired))
	}

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(CreateCookie(authmw.DefaultCookieName, res.SessionToken, tokens.SessionTTL, h.SecureCookies))

	return c.JSON(http.StatusOK, SignInResponse{
		Success:     true,
		Token:       res.SessionToken,
		StreamToken: res.StreamToken,
		User:        NewUserSummary(res.User),
	})
}

// SignOut only clears the cookie. Session tokens are stateless and stay
// valid until they expire.
func (h *AuthHandler) SignOut(c echo.Context) error {
	c.SetCookie(DeleteCookie(authmw.DefaultCookieName, h.SecureCookies))
	return c.JSON(http.StatusOK, echo.Map{"message": "Signed out successfully"})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	user := authmw.UserFromContext(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, ProfileResponse{User: user})
}

// TokenProvider mints a provider credential for an arbitrary id. Anonymous
// callers get a member credential; a signed in caller asking for its own id
// gets its stored role.
func (h *AuthHandler) TokenProvider(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "token_provider")

	var req TokenProviderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("token_provider_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgIDNameRequired)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err, msgIDNameRequired))
	}

	token, role, err := h.Auth.ProviderToken(ctx, authmw.UserFromContext(c), req.ID, req.Name)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, TokenProviderResponse{
		Success: true,
		Token:   token,
		User:    ProviderUser{ID: req.ID, Name: req.Name, Role: stream.ProviderRole(role)},
	})
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "OK", Message: "Server is running"})
}
