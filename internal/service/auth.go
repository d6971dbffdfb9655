package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/meetsync/internal/hash"
	"github.com/Skotchmaster/meetsync/internal/logging"
	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/mykafka"
	"github.com/Skotchmaster/meetsync/internal/repo"
)

type AuthService struct {
	Repo   UserRepo
	Tokens SessionTokens
	Stream StreamMinter
	Events EventPublisher
	// AdminEmails are promoted to admin when they sign up.
	AdminEmails []string
}

type LoginResult struct {
	SessionToken string
	SessionExp   time.Time
	StreamToken  string
	User         *models.User
}

// Register stores a new identity, a member unless its email is listed in
// AdminEmails. It never signs the caller in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrValidation
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         s.signupRole(email),
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "status", 400, "reason", "user_exists")
			return nil, ErrConflict
		}
		l.Error("register_error", "status", 500, "reason", "db_error", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, mykafka.TopicUserEvents, user.ID, map[string]any{
		"type":   "user_registered",
		"userId": user.ID,
		"email":  user.Email,
	})

	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and mints both the session and the provider
// credential. Either both are returned or neither.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// compare against a throwaway hash so unknown accounts cost the same as wrong passwords
			hash.CheckPassword(dummyHash(), password)
			l.Warn("login_failed", "status", 400, "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 400, "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	streamToken, err := s.Stream.ProvisionAndMint(ctx, user.ID, user.Name, user.Role)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "stream token", "error", err)
		return nil, err
	}

	sessionToken, exp, err := s.Tokens.Issue(user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.publish(ctx, mykafka.TopicUserEvents, user.ID, map[string]any{
		"type":   "user_signed_in",
		"userId": user.ID,
	})

	l.Info("login_successful", "user_id", user.ID)
	return &LoginResult{
		SessionToken: sessionToken,
		SessionExp:   exp,
		StreamToken:  streamToken,
		User:         user,
	}, nil
}

func (s *AuthService) signupRole(email string) string {
	email = repo.NormalizeEmail(email)
	for _, admin := range s.AdminEmails {
		if repo.NormalizeEmail(admin) == email {
			return models.RoleAdmin
		}
	}
	return models.RoleMember
}

func (s *AuthService) Profile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// ProviderToken serves the legacy token endpoint. Anonymous callers always
// get a member credential. The stored role is only used when the verified
// session belongs to the same id.
func (s *AuthService) ProviderToken(ctx context.Context, caller *models.User, id, name string) (string, string, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return "", "", ErrValidation
	}

	role := models.RoleMember
	if caller != nil && caller.ID == id {
		role = caller.Role
	}

	token, err := s.Stream.ProvisionAndMint(ctx, id, name, role)
	if err != nil {
		logging.FromContext(ctx).Error("token_provider_failed", "status", 500, "error", err)
		return "", "", err
	}
	return token, role, nil
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event map[string]any) {
	publishEvent(ctx, s.Events, topic, key, event)
}

func publishEvent(ctx context.Context, p EventPublisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", topic, "error", err)
	}
}

// dummyHash is only compared against, to equalise timing for unknown accounts.
var dummyHash = sync.OnceValue(func() string {
	h, _ := hash.HashPassword(uuid.NewString())
	return h
})
