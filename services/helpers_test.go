package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"eventmanager/mocks"
	"eventmanager/models"
	"eventmanager/utils"
)

type fixture struct {
	users  *mocks.MockUserRepo
	events *mocks.MockEventRepo
	regs   *mocks.MockRegRepo

	auth          *AuthService
	eventSvc      *EventService
	registrations *RegistrationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := mocks.NewUserRepo()
	events := mocks.NewEventRepo()
	regs := mocks.NewRegRepo(users)
	tokens := utils.NewJWTManager("test-secret-0123456789", time.Hour, "test")
	log := zerolog.Nop()
	return &fixture{
		users:         users,
		events:        events,
		regs:          regs,
		auth:          NewAuthService(users, tokens, bcrypt.MinCost, log),
		eventSvc:      NewEventService(events, regs, users, log),
		registrations: NewRegistrationService(events, regs, log),
	}
}

func (f *fixture) addUser(t *testing.T, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

func (f *fixture) addEvent(t *testing.T, organizer models.User, maxAttendees *int) models.Event {
	t.Helper()
	start := time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)
	e := models.Event{
		ID:           uuid.NewString(),
		Title:        "Go meetup",
		Description:  "Talks and pizza",
		Location:     "Room 101",
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		Category:     "Tech",
		OrganizerID:  organizer.ID,
		MaxAttendees: maxAttendees,
	}
	f.events.Put(e)
	return e
}

func (f *fixture) count(t *testing.T, eventID string) int {
	t.Helper()
	e, ok := f.events.Get(eventID)
	require.True(t, ok, "event %s missing", eventID)
	return e.RegistrationCount
}

func intPtr(n int) *int { return &n }

func requireKind(t *testing.T, err error, want Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, want, se.Kind, "error: %v", err)
	if msg != "" {
		require.Equal(t, msg, se.Message)
	}
}
