package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/meetsync/internal/config"
	"github.com/Skotchmaster/meetsync/internal/db"
	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/repo"
	"github.com/Skotchmaster/meetsync/internal/stream"
	"github.com/Skotchmaster/meetsync/internal/tokens"
)

type mockMinter struct {
	mock.Mock
}

func (m *mockMinter) ProvisionAndMint(ctx context.Context, id, name, role string) (string, error) {
	args := m.Called(ctx, id, name, role)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	args := m.Called(ctx, topic, key, event)
	return args.Error(0)
}

type mockCalls struct {
	mock.Mock
}

func (m *mockCalls) GetOrCreateCall(ctx context.Context, callType, callID string, req stream.CallRequest) error {
	args := m.Called(ctx, callType, callID, req)
	return args.Error(0)
}

func (m *mockCalls) EndCall(ctx context.Context, callType, callID string) error {
	args := m.Called(ctx, callType, callID)
	return args.Error(0)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) IndexMeeting(ctx context.Context, meeting models.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}

func (m *mockDirectory) Search(ctx context.Context, query string, from, size int) (int64, []models.Meeting, error) {
	args := m.Called(ctx, query, from, size)
	meetings, _ := args.Get(1).([]models.Meeting)
	return args.Get(0).(int64), meetings, args.Error(2)
}

type authEnv struct {
	svc    *AuthService
	repo   *repo.GormRepo
	tokens *tokens.SessionIssuer
	minter *mockMinter
	events *mockPublisher
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	gdb, err := db.Open(context.Background(), config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	env := &authEnv{
		repo:   repo.NewGormRepo(gdb),
		tokens: &tokens.SessionIssuer{Secret: []byte("test-jwt-secret"), TTL: tokens.SessionTTL, Now: time.Now},
		minter: &mockMinter{},
		events: &mockPublisher{},
	}
	env.events.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	env.svc = &AuthService{
		Repo:   env.repo,
		Tokens: env.tokens,
		Stream: env.minter,
		Events: env.events,
	}
	return env
}
