package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"eventmanager/metrics"
	"eventmanager/models"
)

// RegistrationDetail is the client view of a registration. User fields are
// filled for an organizer's attendee list, event schedule fields for a
// user's own history.
type RegistrationDetail struct {
	RegistrationID   int64      `json:"registrationId"`
	RegistrationTime time.Time  `json:"registrationTime"`
	EventID          string     `json:"eventId"`
	EventTitle       string     `json:"eventTitle,omitempty"`
	EventStartTime   *time.Time `json:"eventStartTime,omitempty"`
	EventEndTime     *time.Time `json:"eventEndTime,omitempty"`
	EventLocation    string     `json:"eventLocation,omitempty"`
	UserID           int64      `json:"userId"`
	UserUsername     string     `json:"userUsername,omitempty"`
	UserEmail        string     `json:"userEmail,omitempty"`
}

type RegistrationService struct {
	events models.EventRepository
	regs   models.RegistrationRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewRegistrationService(events models.EventRepository, regs models.RegistrationRepository, logger zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		events: events,
		regs:   regs,
		logger: logger.With().Str("component", "registrations").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register signs userID up for eventID. The checks run in a fixed order and
// the first failure wins: organizer, duplicate, capacity. A seat is taken on
// the event's counter before the row is written and given back if the write
// fails, so the counter never exceeds maxAttendees.
func (s *RegistrationService) Register(ctx context.Context, userID int64, eventID string) error {
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, models.ErrNotFound) {
		observe("not_found")
		return NotFound(msgEventNotFound)
	}
	if err != nil {
		observe("error")
		return err
	}

	if e.OrganizerID == userID {
		observe("self")
		return Conflict(msgSelfRegistration)
	}

	registered, err := s.regs.Exists(ctx, userID, eventID)
	if err != nil {
		observe("error")
		return err
	}
	if registered {
		observe("duplicate")
		return Conflict(msgAlreadyRegistered)
	}

	reserved, err := s.events.ReserveSeat(ctx, eventID)
	if errors.Is(err, models.ErrNotFound) {
		observe("not_found")
		return NotFound(msgEventNotFound)
	}
	if err != nil {
		observe("error")
		return err
	}
	if !reserved {
		observe("full")
		s.logger.Debug().Str("event_id", eventID).Int64("user_id", userID).Msg("registration rejected: event full")
		return Conflict(msgEventFull)
	}

	reg := models.Registration{UserID: userID, EventID: eventID, RegisteredAt: s.now()}
	if err := s.regs.Create(ctx, &reg); err != nil {
		s.finishSeatChange(ctx, eventID, true)
		if errors.Is(err, models.ErrDuplicateRegistration) {
			observe("duplicate")
			return Conflict(msgAlreadyRegistered)
		}
		observe("error")
		return err
	}
	if gone := s.finishSeatChange(ctx, eventID, false); gone {
		// The event was deleted while the row was being written.
		if _, err := s.regs.Delete(context.WithoutCancel(ctx), userID, eventID); err != nil {
			s.logger.Error().Err(err).Str("event_id", eventID).Int64("user_id", userID).Msg("orphan registration not removed")
		}
		observe("not_found")
		return NotFound(msgEventNotFound)
	}

	observe("registered")
	s.logger.Info().Str("event_id", eventID).Int64("user_id", userID).Msg("user registered")
	return nil
}

func (s *RegistrationService) Deregister(ctx context.Context, userID int64, eventID string) error {
	if _, err := s.getEvent(ctx, eventID); err != nil {
		return err
	}

	if err := s.events.BeginSeatChange(ctx, eventID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return NotFound(msgEventNotFound)
		}
		return err
	}
	deleted, err := s.regs.Delete(ctx, userID, eventID)
	if err != nil {
		s.finishSeatChange(ctx, eventID, false)
		return err
	}
	s.finishSeatChange(ctx, eventID, deleted)
	if !deleted {
		return NotFound(msgRegistrationNotFound)
	}

	observe("deregistered")
	s.logger.Info().Str("event_id", eventID).Int64("user_id", userID).Msg("user deregistered")
	return nil
}

// ListForEvent returns the attendees of an event to its organizer.
func (s *RegistrationService) ListForEvent(ctx context.Context, actor Actor, eventID string) ([]RegistrationDetail, error) {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != actor.ID {
		return nil, Forbidden("Only the event organizer can view its registrations.")
	}

	attendees, err := s.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]RegistrationDetail, 0, len(attendees))
	for _, a := range attendees {
		out = append(out, RegistrationDetail{
			RegistrationID:   a.ID,
			RegistrationTime: a.RegisteredAt,
			EventID:          a.EventID,
			EventTitle:       e.Title,
			UserID:           a.UserID,
			UserUsername:     a.Username,
			UserEmail:        a.Email,
		})
	}
	return out, nil
}

func (s *RegistrationService) Status(ctx context.Context, userID int64, eventID string) (bool, error) {
	if _, err := s.getEvent(ctx, eventID); err != nil {
		return false, err
	}
	return s.regs.Exists(ctx, userID, eventID)
}

// ListForUser returns the caller's registrations, newest first. Entries whose
// event no longer exists are left out.
func (s *RegistrationService) ListForUser(ctx context.Context, userID int64) ([]RegistrationDetail, error) {
	regs, err := s.regs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.EventID)
	}
	events, err := s.events.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RegistrationDetail, 0, len(regs))
	for _, r := range regs {
		e, ok := events[r.EventID]
		if !ok {
			continue
		}
		start, end := e.StartTime, e.EndTime
		out = append(out, RegistrationDetail{
			RegistrationID:   r.ID,
			RegistrationTime: r.RegisteredAt,
			EventID:          r.EventID,
			EventTitle:       e.Title,
			EventStartTime:   &start,
			EventEndTime:     &end,
			EventLocation:    e.Location,
			UserID:           r.UserID,
		})
	}
	return out, nil
}

// ReconcileResult reports what a reconcile pass did.
type ReconcileResult struct {
	Corrected int
	// Skipped counts events that had a seat change in flight or whose count
	// moved while the pass ran. A later pass picks them up.
	Skipped int
}

// Reconcile rewrites registrationCount from the registrations table for every
// event whose count has drifted. Events are read before the rows are counted
// and each write only lands if the event's count is unchanged and no seat
// change is pending, so it is safe to run next to a live server.
//
// With force set the counts are written unconditionally and pending seat
// changes are cleared. Only use force while the server is stopped.
func (s *RegistrationService) Reconcile(ctx context.Context, force bool) (ReconcileResult, error) {
	var res ReconcileResult
	events, err := s.events.List(ctx, models.EventFilter{})
	if err != nil {
		return res, err
	}
	counts, err := s.regs.CountByEvent(ctx)
	if err != nil {
		return res, err
	}

	for _, e := range events {
		want := counts[e.ID]
		if force {
			if e.RegistrationCount == want && e.PendingSeatOps == 0 {
				continue
			}
			if err := s.events.ForceRegistrationCount(ctx, e.ID, want); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return res, err
			}
		} else {
			if e.RegistrationCount == want {
				continue
			}
			if e.PendingSeatOps > 0 {
				res.Skipped++
				continue
			}
			ok, err := s.events.CompareAndSetCount(ctx, e.ID, e.RegistrationCount, want)
			if err != nil {
				return res, err
			}
			if !ok {
				res.Skipped++
				s.logger.Debug().Str("event_id", e.ID).Msg("registration count changed during reconcile; skipped")
				continue
			}
		}
		s.logger.Warn().Str("event_id", e.ID).Int("was", e.RegistrationCount).Int("now", want).Msg("registration count corrected")
		res.Corrected++
	}
	return res, nil
}

func (s *RegistrationService) getEvent(ctx context.Context, id string) (models.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.Event{}, NotFound(msgEventNotFound)
	}
	return e, err
}

// finishSeatChange closes a pending seat change even when the request
// context has already been cancelled. It reports whether the event is gone.
func (s *RegistrationService) finishSeatChange(ctx context.Context, eventID string, release bool) bool {
	err := s.events.FinishSeatChange(context.WithoutCancel(ctx), eventID, release)
	if errors.Is(err, models.ErrNotFound) {
		return true
	}
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Bool("release", release).Msg("finish seat change failed; run reconcile --force with the server stopped")
	}
	return false
}

func observe(result string) {
	metrics.RegistrationsTotal.WithLabelValues(result).Inc()
}
