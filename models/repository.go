package models

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateUsername     = errors.New("username already exists")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrDuplicateRegistration = errors.New("registration already exists")
	// ErrCapacityBelowCount is returned when an update would set maxAttendees
	// below the number of registrations already held by the event.
	ErrCapacityBelowCount = errors.New("max attendees below current registration count")
)

// ===== Users =====
type Role string

const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (User, error)
	GetByLogin(ctx context.Context, usernameOrEmail string) (User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ===== Events =====

// Event lives in MongoDB and is addressed by a UUID so registrations in
// Postgres can reference it.
type Event struct {
	ID                string    `bson:"id" json:"eventId"`
	Title             string    `bson:"title" json:"title"`
	Description       string    `bson:"description" json:"description"`
	Location          string    `bson:"location" json:"location"`
	StartTime         time.Time `bson:"startTime" json:"startTime"`
	EndTime           time.Time `bson:"endTime" json:"endTime"`
	Category          string    `bson:"category" json:"category"`
	OrganizerID       int64     `bson:"organizerId" json:"organizerId"`
	OrganizerUsername string    `bson:"-" json:"organizerUsername,omitempty"`
	MaxAttendees      *int      `bson:"maxAttendees" json:"maxAttendees"`
	RegistrationCount int       `bson:"registrationCount" json:"registrationCount"`
	PendingSeatOps    int       `bson:"pendingSeatOps" json:"-"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

type EventFilter struct {
	Category    string
	OrganizerID int64
}

type EventRepository interface {
	List(ctx context.Context, f EventFilter) ([]Event, error)
	GetByID(ctx context.Context, id string) (Event, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]Event, error)
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string) error

	// Seat changes are two-phase. ReserveSeat and BeginSeatChange open a
	// pending operation on the event; FinishSeatChange closes it once the
	// registration row has been written or removed. CompareAndSetCount
	// only writes while no seat change is pending.

	// ReserveSeat atomically increments the registration count when the
	// event has room. It reports false when the event is full.
	ReserveSeat(ctx context.Context, id string) (bool, error)
	BeginSeatChange(ctx context.Context, id string) error
	// FinishSeatChange closes a pending seat change and, when release is
	// set, gives the seat back. It returns ErrNotFound if the event is gone.
	FinishSeatChange(ctx context.Context, id string, release bool) error
	// CompareAndSetCount sets registrationCount to count when it still
	// equals expected and no seat change is pending. It reports whether the
	// write happened.
	CompareAndSetCount(ctx context.Context, id string, expected, count int) (bool, error)
	// ForceRegistrationCount sets the count and clears pending seat changes.
	// It is only safe while no server is running.
	ForceRegistrationCount(ctx context.Context, id string, count int) error
}

// ===== Registrations =====
type Registration struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	EventID      string    `json:"eventId"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Attendee is a registration joined with the registering user.
type Attendee struct {
	Registration
	Username string
	Email    string
}

type RegistrationRepository interface {
	Create(ctx context.Context, r *Registration) error
	Exists(ctx context.Context, userID int64, eventID string) (bool, error)
	Delete(ctx context.Context, userID int64, eventID string) (bool, error)
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
	CountByEvent(ctx context.Context) (map[string]int, error)
	ListByEvent(ctx context.Context, eventID string) ([]Attendee, error)
	ListByUser(ctx context.Context, userID int64) ([]Registration, error)
}
