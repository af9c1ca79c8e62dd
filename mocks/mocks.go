// Package mocks provides in-memory repositories for tests. Every repository
// is safe for concurrent use.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"eventmanager/models"
)

type MockUserRepo struct {
	mu     sync.Mutex
	Users  map[int64]models.User
	nextID int64
}

func NewUserRepo() *MockUserRepo { return &MockUserRepo{Users: map[int64]models.User{}} }

func (m *MockUserRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Users {
		if existing.Username == u.Username {
			return models.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return models.ErrDuplicateEmail
		}
	}
	m.nextID++
	now := time.Now().UTC()
	u.ID, u.CreatedAt, u.UpdatedAt = m.nextID, now, now
	m.Users[u.ID] = *u
	return nil
}

func (m *MockUserRepo) GetByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (m *MockUserRepo) GetByLogin(_ context.Context, login string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (m *MockUserRepo) GetByIDs(_ context.Context, ids []int64) (map[int64]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]models.User, len(ids))
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *MockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type MockEventRepo struct {
	mu    sync.Mutex
	Items map[string]models.Event
}

func NewEventRepo() *MockEventRepo { return &MockEventRepo{Items: map[string]models.Event{}} }

// Get returns the stored event without going through the repository API.
func (m *MockEventRepo) Get(id string) (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	return e, ok
}

// Put stores e as is, including its registration count.
func (m *MockEventRepo) Put(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[e.ID] = e
}

func (m *MockEventRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Items)
}

func (m *MockEventRepo) List(_ context.Context, f models.EventFilter) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, 0, len(m.Items))
	for _, e := range m.Items {
		if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
			continue
		}
		if f.OrganizerID != 0 && e.OrganizerID != f.OrganizerID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockEventRepo) GetByID(_ context.Context, id string) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, models.ErrNotFound
	}
	return e, nil
}

func (m *MockEventRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Event, len(ids))
	for _, id := range ids {
		if e, ok := m.Items[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (m *MockEventRepo) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[e.ID] = *e
	return nil
}

func (m *MockEventRepo) Update(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.Items[e.ID]
	if !ok {
		return models.ErrNotFound
	}
	if e.MaxAttendees != nil && cur.RegistrationCount > *e.MaxAttendees {
		return models.ErrCapacityBelowCount
	}
	e.RegistrationCount = cur.RegistrationCount
	e.PendingSeatOps = cur.PendingSeatOps
	e.CreatedAt = cur.CreatedAt
	m.Items[e.ID] = *e
	return nil
}

func (m *MockEventRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Items, id)
	return nil
}

func (m *MockEventRepo) ReserveSeat(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if e.MaxAttendees != nil && e.RegistrationCount >= *e.MaxAttendees {
		return false, nil
	}
	e.RegistrationCount++
	e.PendingSeatOps++
	m.Items[id] = e
	return true, nil
}

func (m *MockEventRepo) BeginSeatChange(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	e.PendingSeatOps++
	m.Items[id] = e
	return nil
}

func (m *MockEventRepo) FinishSeatChange(_ context.Context, id string, release bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	if e.PendingSeatOps > 0 {
		e.PendingSeatOps--
	}
	if release && e.RegistrationCount > 0 {
		e.RegistrationCount--
	}
	m.Items[id] = e
	return nil
}

func (m *MockEventRepo) CompareAndSetCount(_ context.Context, id string, expected, count int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok || e.RegistrationCount != expected || e.PendingSeatOps != 0 {
		return false, nil
	}
	e.RegistrationCount = count
	m.Items[id] = e
	return true, nil
}

func (m *MockEventRepo) ForceRegistrationCount(_ context.Context, id string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	e.RegistrationCount = count
	e.PendingSeatOps = 0
	m.Items[id] = e
	return nil
}

type regKey struct {
	userID  int64
	eventID string
}

// MockRegRepo joins attendees against Users when it is set. CreateErr, when
// non-nil, is returned by the next Create instead of storing the row.
type MockRegRepo struct {
	mu        sync.Mutex
	Rows      map[regKey]models.Registration
	Users     *MockUserRepo
	CreateErr error
	nextID    int64
}

func NewRegRepo(users *MockUserRepo) *MockRegRepo {
	return &MockRegRepo{Rows: map[regKey]models.Registration{}, Users: users}
}

func (m *MockRegRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rows)
}

func (m *MockRegRepo) CountFor(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.Rows {
		if k.eventID == eventID {
			n++
		}
	}
	return n
}

func (m *MockRegRepo) Create(_ context.Context, r *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.CreateErr; err != nil {
		m.CreateErr = nil
		return err
	}
	k := regKey{r.UserID, r.EventID}
	if _, ok := m.Rows[k]; ok {
		return models.ErrDuplicateRegistration
	}
	m.nextID++
	r.ID = m.nextID
	m.Rows[k] = *r
	return nil
}

func (m *MockRegRepo) Exists(_ context.Context, userID int64, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Rows[regKey{userID, eventID}]
	return ok, nil
}

func (m *MockRegRepo) Delete(_ context.Context, userID int64, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := regKey{userID, eventID}
	if _, ok := m.Rows[k]; !ok {
		return false, nil
	}
	delete(m.Rows, k)
	return true, nil
}

func (m *MockRegRepo) DeleteByEvent(_ context.Context, eventID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.Rows {
		if k.eventID == eventID {
			delete(m.Rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MockRegRepo) CountByEvent(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for k := range m.Rows {
		out[k.eventID]++
	}
	return out, nil
}

func (m *MockRegRepo) ListByEvent(ctx context.Context, eventID string) ([]models.Attendee, error) {
	m.mu.Lock()
	var regs []models.Registration
	for k, r := range m.Rows {
		if k.eventID == eventID {
			regs = append(regs, r)
		}
	}
	m.mu.Unlock()
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })

	out := make([]models.Attendee, 0, len(regs))
	for _, r := range regs {
		a := models.Attendee{Registration: r}
		if m.Users != nil {
			if u, err := m.Users.GetByID(ctx, r.UserID); err == nil {
				a.Username, a.Email = u.Username, u.Email
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MockRegRepo) ListByUser(_ context.Context, userID int64) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Registration{}
	for k, r := range m.Rows {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
