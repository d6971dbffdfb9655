package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/stream"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type SessionTokens interface {
	Issue(userID string) (string, time.Time, error)
}

type StreamMinter interface {
	ProvisionAndMint(ctx context.Context, id, name, role string) (string, error)
}

type CallProvider interface {
	GetOrCreateCall(ctx context.Context, callType, callID string, req stream.CallRequest) error
	EndCall(ctx context.Context, callType, callID string) error
}

type MeetingDirectory interface {
	IndexMeeting(ctx context.Context, m models.Meeting) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Meeting, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}
