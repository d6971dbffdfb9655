package meetclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/meetsync/internal/config"
	"github.com/Skotchmaster/meetsync/internal/db"
	"github.com/Skotchmaster/meetsync/internal/handlers"
	authmw "github.com/Skotchmaster/meetsync/internal/middleware/auth"
	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/repo"
	"github.com/Skotchmaster/meetsync/internal/service"
	"github.com/Skotchmaster/meetsync/internal/stream"
	"github.com/Skotchmaster/meetsync/internal/tokens"
	httpserver "github.com/Skotchmaster/meetsync/internal/transport/http"
)

type minter struct{}

func (minter) ProvisionAndMint(_ context.Context, id, _, _ string) (string, error) {
	return "stream-" + id, nil
}

type calls struct{}

func (calls) GetOrCreateCall(context.Context, string, string, stream.CallRequest) error { return nil }
func (calls) EndCall(context.Context, string, string) error                              { return nil }

func newServer(t *testing.T) (*httptest.Server, *repo.GormRepo, *atomic.Int64) {
	t.Helper()

	gdb, err := db.Open(context.Background(), config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	users := repo.NewGormRepo(gdb)
	issuer := tokens.NewSessionIssuer([]byte("client-test-secret"))

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{Auth: &service.AuthService{Repo: users, Tokens: issuer, Stream: minter{}}},
		MeetingHandler: &handlers.MeetingHandler{Meetings: &service.MeetingService{Calls: calls{}}},
		Gate:           authmw.NewGate(issuer, users),
	})

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		e.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, users, &hits
}

func TestClient_MemberIsGatedLocally(t *testing.T) {
	srv, _, hits := newServer(t)
	ctx := context.Background()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	require.NoError(t, c.SignUp(ctx, "Ana", "ana@example.com", "secret1"))
	s, err := c.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "member", s.User.Role)
	assert.Equal(t, "stream-"+s.User.ID, s.StreamToken)

	before := hits.Load()

	_, err = c.CreateMeeting(ctx, "Standup")
	var gate *GateError
	require.True(t, errors.As(err, &gate))
	assert.Equal(t, "Not Authorized", gate.Title)
	assert.Equal(t, "Only Admin can create meeting.", gate.Description)

	err = c.EndMeeting(ctx, "6f1c2f0e-8c0b-4f55-9d1e-3c5a8f0b7a21")
	require.True(t, errors.As(err, &gate))

	assert.Equal(t, before, hits.Load(), "gated actions must not reach the server")
}

func TestClient_AdminCreatesAndEnds(t *testing.T) {
	srv, users, _ := newServer(t)
	ctx := context.Background()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.SignUp(ctx, "Boss", "boss@example.com", "secret1"))

	boss, err := users.FindByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	require.NoError(t, users.DB.Model(boss).Update("role", models.RoleAdmin).Error)

	_, err = c.SignIn(ctx, "boss@example.com", "secret1")
	require.NoError(t, err)

	m, err := c.CreateMeeting(ctx, "Standup")
	require.NoError(t, err)
	assert.Equal(t, "Standup", m.Title)
	assert.Equal(t, boss.ID, m.CreatedBy)

	require.NoError(t, c.EndMeeting(ctx, m.ID))
}

func TestClient_SessionLifecycle(t *testing.T) {
	srv, _, _ := newServer(t)
	ctx := context.Background()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.SignUp(ctx, "Ana", "ana@example.com", "secret1"))

	err = c.SignUp(ctx, "Ana", "ana@example.com", "secret1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "User already exists", apiErr.Message)

	_, err = c.SignIn(ctx, "ana@example.com", "wrong")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Nil(t, c.Session())

	_, err = c.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	u, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	require.NoError(t, c.SignOut(ctx))
	assert.Nil(t, c.Session())

	_, err = c.Profile(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.CreateMeeting(ctx, "x")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestClient_UnauthorizedDropsSession(t *testing.T) {
	srv, users, hits := newServer(t)
	ctx := context.Background()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.SignUp(ctx, "Boss", "boss@example.com", "secret1"))

	boss, err := users.FindByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	require.NoError(t, users.DB.Model(boss).Update("role", models.RoleAdmin).Error)

	_, err = c.SignIn(ctx, "boss@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, c.Session())

	require.NoError(t, users.DB.Delete(&models.User{}, "id = ?", boss.ID).Error)

	_, err = c.Profile(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Nil(t, c.Session())

	before := hits.Load()
	_, err = c.CreateMeeting(ctx, "Standup")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, before, hits.Load())
}
