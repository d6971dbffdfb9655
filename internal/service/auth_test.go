package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/mykafka"
	"github.com/Skotchmaster/meetsync/internal/stream"
)

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fullName string
		email    string
		password string
	}{
		{name: "empty name", fullName: "", email: "a@x.com", password: "pw"},
		{name: "blank name", fullName: "   ", email: "a@x.com", password: "pw"},
		{name: "empty email", fullName: "Ana", email: "", password: "pw"},
		{name: "empty password", fullName: "Ana", email: "a@x.com", password: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			user, err := env.svc.Register(ctx, tt.fullName, tt.email, tt.password)
			require.Error(t, err)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Register_SuccessAndConflict(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleMember, user.Role)
	assert.NotEqual(t, "pw123", user.PasswordHash)

	_, err = env.svc.Register(ctx, "Ana again", "ANA@x.com", "other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	env.events.AssertCalled(t, "PublishEvent", mock.Anything, mykafka.TopicUserEvents, user.ID, mock.Anything)
	env.minter.AssertNotCalled(t, "ProvisionAndMint", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_Success_IssuesBothTokens(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)
	env.minter.On("ProvisionAndMint", mock.Anything, user.ID, "Ana", models.RoleMember).Return("stream-token", nil).Once()

	res, err := env.svc.Login(ctx, "Ana@X.com", "pw123")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "stream-token", res.StreamToken)
	assert.Equal(t, user.ID, res.User.ID)

	claims, err := env.tokens.Verify(res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, claims.ExpiresAt.Time.Unix(), res.SessionExp.Unix())
	env.minter.AssertExpectations(t)
}

func TestAuthService_Login_IndistinguishableFailures(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)

	resWrong, errWrong := env.svc.Login(ctx, "ana@x.com", "wrongpw")
	resMissing, errMissing := env.svc.Login(ctx, "nobody@x.com", "pw123")

	assert.Nil(t, resWrong)
	assert.Nil(t, resMissing)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errMissing, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errMissing.Error())
	env.minter.AssertNotCalled(t, "ProvisionAndMint", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_Validation(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	for _, tc := range [][2]string{{"", "pw"}, {"a@x.com", ""}, {"  ", "pw"}} {
		res, err := env.svc.Login(context.Background(), tc[0], tc[1])
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrValidation, fmt.Sprintf("email=%q", tc[0]))
	}
}

func TestAuthService_Login_ProviderFailureIssuesNothing(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)
	env.minter.On("ProvisionAndMint", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: timeout", stream.ErrProviderUnavailable)).Once()

	res, err := env.svc.Login(ctx, "ana@x.com", "pw123")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsProviderError(err))
	for _, call := range env.events.Calls {
		event, _ := call.Arguments.Get(3).(map[string]any)
		assert.NotEqual(t, "user_signed_in", event["type"])
	}
}

func TestAuthService_PublishFailureDoesNotFailRegister(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	failing := &mockPublisher{}
	failing.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	env.svc.Events = failing

	_, err := env.svc.Register(context.Background(), "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)
	failing.AssertNumberOfCalls(t, "PublishEvent", 1)
}

func TestAuthService_Profile(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)

	got, err := env.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", got.Email)

	_, err = env.svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthService_ProviderToken_AnonymousIsAlwaysMember(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	admin := &models.User{Name: "Boss", Email: "boss@x.com", PasswordHash: "h", Role: models.RoleAdmin}
	require.NoError(t, env.repo.CreateUser(ctx, admin))

	env.minter.On("ProvisionAndMint", mock.Anything, admin.ID, "attacker", models.RoleMember).Return("t-anon", nil).Once()
	env.minter.On("ProvisionAndMint", mock.Anything, "guest-1", "Moiz", models.RoleMember).Return("t-guest", nil).Once()

	token, role, err := env.svc.ProviderToken(ctx, nil, admin.ID, "attacker")
	require.NoError(t, err)
	assert.Equal(t, "t-anon", token)
	assert.Equal(t, models.RoleMember, role)

	token, role, err = env.svc.ProviderToken(ctx, nil, "guest-1", "Moiz")
	require.NoError(t, err)
	assert.Equal(t, "t-guest", token)
	assert.Equal(t, models.RoleMember, role)

	_, _, err = env.svc.ProviderToken(ctx, nil, "", "Moiz")
	assert.ErrorIs(t, err, ErrValidation)
	env.minter.AssertExpectations(t)
}

func TestAuthService_ProviderToken_RoleFromOwnSession(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	admin := &models.User{ID: "admin-1", Name: "Boss", Role: models.RoleAdmin}
	member := &models.User{ID: "member-1", Name: "Ana", Role: models.RoleMember}

	env.minter.On("ProvisionAndMint", mock.Anything, "admin-1", "Boss", models.RoleAdmin).Return("t-admin", nil).Once()
	// a session for someone else does not lend its role
	env.minter.On("ProvisionAndMint", mock.Anything, "member-1", "Ana", models.RoleMember).Return("t-member", nil).Twice()

	_, role, err := env.svc.ProviderToken(ctx, admin, "admin-1", "Boss")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, role, err = env.svc.ProviderToken(ctx, admin, "member-1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)

	_, role, err = env.svc.ProviderToken(ctx, member, "member-1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
	env.minter.AssertExpectations(t)
}

func TestAuthService_Register_AdminEmails(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.svc.AdminEmails = []string{"Boss@X.com"}
	ctx := context.Background()

	boss, err := env.svc.Register(ctx, "Boss", "  boss@x.com ", "pw123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, boss.Role)

	ana, err := env.svc.Register(ctx, "Ana", "ana@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, ana.Role)
}
