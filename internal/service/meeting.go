package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/meetsync/internal/logging"
	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/mykafka"
	"github.com/Skotchmaster/meetsync/internal/stream"
)

const (
	defaultCallType = "default"
	maxPageSize     = 100
	// Elasticsearch refuses from+size beyond index.max_result_window.
	maxResultWindow = 10000
)

// MeetingService guards the provider calls that only admins may make. The
// caller is always the identity loaded from the verified session, never a
// role sent by the client.
type MeetingService struct {
	Calls     CallProvider
	Directory MeetingDirectory
	Events    EventPublisher
	CallType  string
	Timeout   time.Duration
	NewID     func() string
	Now       func() time.Time
}

func RequireRole(u *models.User, role string) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if u.Role != role {
		return ErrForbidden
	}
	return nil
}

func (s *MeetingService) Create(ctx context.Context, caller *models.User, title string) (*models.Meeting, error) {
	l := logging.FromContext(ctx).With("svc", "meeting.create")

	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		l.Warn("create_meeting_denied", "status", 403, "reason", "not admin")
		return nil, err
	}

	m := &models.Meeting{
		ID:            s.newID(),
		Title:         strings.TrimSpace(title),
		CreatedBy:     caller.ID,
		CreatedByName: caller.Name,
		StartsAt:      s.now().UTC(),
	}
	if m.Title == "" {
		m.Title = caller.Name + "'s meeting"
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	err := s.Calls.GetOrCreateCall(callCtx, s.callType(), m.ID, stream.CallRequest{
		CreatedByID: caller.ID,
		StartsAt:    m.StartsAt,
		Custom:      map[string]any{"createdBy": caller.ID, "title": m.Title},
	})
	if err != nil {
		l.Error("create_meeting_failed", "status", 500, "error", err)
		return nil, err
	}

	if s.Directory != nil {
		if err := s.Directory.IndexMeeting(ctx, *m); err != nil {
			l.Warn("meeting_index_failed", "meeting_id", m.ID, "error", err)
		}
	}

	publishEvent(ctx, s.Events, mykafka.TopicMeetingEvents, m.ID, map[string]any{
		"type":      "meeting_created",
		"meetingId": m.ID,
		"createdBy": caller.ID,
	})

	l.Info("meeting_created", "meeting_id", m.ID)
	return m, nil
}

// End terminates the call for every participant.
func (s *MeetingService) End(ctx context.Context, caller *models.User, meetingID string) error {
	l := logging.FromContext(ctx).With("svc", "meeting.end")

	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		l.Warn("end_meeting_denied", "status", 403, "reason", "not admin")
		return err
	}
	if _, err := uuid.Parse(meetingID); err != nil {
		return fmt.Errorf("%w: meeting id", ErrValidation)
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.Calls.EndCall(callCtx, s.callType(), meetingID); err != nil {
		l.Error("end_meeting_failed", "status", 500, "meeting_id", meetingID, "error", err)
		return err
	}

	publishEvent(ctx, s.Events, mykafka.TopicMeetingEvents, meetingID, map[string]any{
		"type":      "meeting_ended",
		"meetingId": meetingID,
		"endedBy":   caller.ID,
	})

	l.Info("meeting_ended", "meeting_id", meetingID)
	return nil
}

func (s *MeetingService) Search(ctx context.Context, query string, page, size int) (int64, []models.Meeting, error) {
	if s.Directory == nil {
		return 0, nil, ErrDirectoryDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("%w: empty query", ErrValidation)
	}

	from, limit := pageBounds(page, size)
	if from+limit > maxResultWindow {
		return 0, nil, fmt.Errorf("%w: page out of range", ErrValidation)
	}
	total, meetings, err := s.Directory.Search(ctx, query, from, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("search meetings: %w", err)
	}
	return total, meetings, nil
}

func pageBounds(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if page > math.MaxInt/maxPageSize {
		page = math.MaxInt / maxPageSize
	}
	if size <= 0 || size > maxPageSize {
		size = 10
	}
	return (page - 1) * size, size
}

func (s *MeetingService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *MeetingService) callType() string {
	if s.CallType != "" {
		return s.CallType
	}
	return defaultCallType
}

func (s *MeetingService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *MeetingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IsProviderError reports whether err came from the video provider.
func IsProviderError(err error) bool {
	return errors.Is(err, stream.ErrProviderUnavailable)
}
