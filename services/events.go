package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"eventmanager/models"
	"eventmanager/utils"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   int64
	Role models.Role
}

type EventInput struct {
	Title        string     `json:"title" validate:"required,max=255"`
	Description  string     `json:"description" validate:"required"`
	Location     string     `json:"location" validate:"required,max=255"`
	StartTime    *time.Time `json:"startTime" validate:"required"`
	EndTime      *time.Time `json:"endTime" validate:"required"`
	Category     string     `json:"category" validate:"required,max=100"`
	MaxAttendees *int       `json:"maxAttendees" validate:"omitempty,gt=0"`
}

func (in *EventInput) sanitize() {
	in.Title = utils.SanitizeText(in.Title)
	in.Description = utils.SanitizeText(in.Description)
	in.Location = utils.SanitizeText(in.Location)
	in.Category = utils.SanitizeText(in.Category)
}

type EventService struct {
	events   models.EventRepository
	regs     models.RegistrationRepository
	users    models.UserRepository
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

func NewEventService(events models.EventRepository, regs models.RegistrationRepository, users models.UserRepository, logger zerolog.Logger) *EventService {
	return &EventService{
		events:   events,
		regs:     regs,
		users:    users,
		validate: newValidator(),
		logger:   logger.With().Str("component", "events").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *EventService) List(ctx context.Context, f models.EventFilter) ([]models.Event, error) {
	events, err := s.events.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := s.attachOrganizers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *EventService) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	return s.List(ctx, models.EventFilter{OrganizerID: organizerID})
}

func (s *EventService) Get(ctx context.Context, id string) (models.Event, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	return s.withOrganizer(ctx, e)
}

func (s *EventService) Create(ctx context.Context, actor Actor, in EventInput) (models.Event, error) {
	if actor.Role != models.RoleOrganizer {
		return models.Event{}, Forbidden("Only organizers can create events.")
	}
	if err := s.check(&in); err != nil {
		s.logger.Debug().Err(err).Int64("user_id", actor.ID).Msg("event create rejected")
		return models.Event{}, err
	}

	now := s.now()
	e := models.Event{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		Location:     in.Location,
		StartTime:    in.StartTime.UTC(),
		EndTime:      in.EndTime.UTC(),
		Category:     in.Category,
		OrganizerID:  actor.ID,
		MaxAttendees: in.MaxAttendees,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.events.Create(ctx, &e); err != nil {
		return models.Event{}, err
	}
	s.logger.Info().Str("event_id", e.ID).Int64("organizer_id", actor.ID).Msg("event created")
	return s.withOrganizer(ctx, e)
}

// Update replaces the editable fields of an event owned by actor.
func (s *EventService) Update(ctx context.Context, actor Actor, id string, in EventInput) (models.Event, error) {
	current, err := s.getEvent(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	if err := authorizeOrganizer(actor, current); err != nil {
		return models.Event{}, err
	}
	if err := s.check(&in); err != nil {
		s.logger.Debug().Err(err).Str("event_id", id).Msg("event update rejected")
		return models.Event{}, err
	}

	e := current
	e.Title = in.Title
	e.Description = in.Description
	e.Location = in.Location
	e.StartTime = in.StartTime.UTC()
	e.EndTime = in.EndTime.UTC()
	e.Category = in.Category
	e.MaxAttendees = in.MaxAttendees
	e.UpdatedAt = s.now()

	err = s.events.Update(ctx, &e)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.Event{}, NotFound(msgEventNotFound)
	case errors.Is(err, models.ErrCapacityBelowCount):
		return models.Event{}, Validation("maxAttendees cannot be lower than the number of current registrations.")
	case err != nil:
		return models.Event{}, err
	}
	s.logger.Info().Str("event_id", id).Msg("event updated")
	return s.withOrganizer(ctx, e)
}

// Delete removes the event and then every registration that referenced it.
func (s *EventService) Delete(ctx context.Context, actor Actor, id string) error {
	current, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeOrganizer(actor, current); err != nil {
		return err
	}

	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return NotFound(msgEventNotFound)
		}
		return err
	}
	n, err := s.regs.DeleteByEvent(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", id).Msg("event deleted but registrations were not removed")
		return err
	}
	s.logger.Info().Str("event_id", id).Int64("registrations_removed", n).Msg("event deleted")
	return nil
}

func (s *EventService) getEvent(ctx context.Context, id string) (models.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.Event{}, NotFound(msgEventNotFound)
	}
	return e, err
}

func (s *EventService) check(in *EventInput) error {
	in.sanitize()
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	if in.EndTime.Before(*in.StartTime) {
		return Validation(msgEndBeforeStart)
	}
	return nil
}

func authorizeOrganizer(actor Actor, e models.Event) error {
	if actor.Role != models.RoleOrganizer || e.OrganizerID != actor.ID {
		return Forbidden(msgNotEventOrganizer)
	}
	return nil
}

func (s *EventService) withOrganizer(ctx context.Context, e models.Event) (models.Event, error) {
	events := []models.Event{e}
	if err := s.attachOrganizers(ctx, events); err != nil {
		return models.Event{}, err
	}
	return events[0], nil
}

func (s *EventService) attachOrganizers(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	seen := map[int64]bool{}
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if !seen[e.OrganizerID] {
			seen[e.OrganizerID] = true
			ids = append(ids, e.OrganizerID)
		}
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range events {
		events[i].OrganizerUsername = users[events[i].OrganizerID].Username
	}
	return nil
}
