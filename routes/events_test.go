package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"eventmanager/models"
)

const eventBody = `{"title":"GoConf","description":"fun","location":"TW","startTime":"2030-01-01T09:00:00Z","endTime":"2030-01-01T17:00:00Z","category":"Tech","maxAttendees":2}`

func TestEvents_ListEmpty(t *testing.T) {
	deps := setupServerWithDeps(t)

	w := doReq(deps.s, http.MethodGet, "/api/events", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/events code=%d body=%s", w.Code, w.Body.String())
	}
	var got []models.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty list, got %d", len(got))
	}
}

func TestEvents_GetByID(t *testing.T) {
	deps := setupServerWithDeps(t)
	org, _ := deps.addUser(t, "org", models.RoleOrganizer)
	ev := deps.addEvent(t, org.ID, nil)

	w := doReq(deps.s, http.MethodGet, "/api/events/"+ev.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/events/:id code=%d body=%s", w.Code, w.Body.String())
	}
	var got models.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != ev.ID || got.OrganizerUsername != "org" {
		t.Fatalf("mismatch: %+v", got)
	}

	assertMessage(t, doReq(deps.s, http.MethodGet, "/api/events/does-not-exist", "", ""), http.StatusNotFound, "Event not found.")
}

func TestEvents_ListFilters(t *testing.T) {
	deps := setupServerWithDeps(t)
	ann, _ := deps.addUser(t, "ann", models.RoleOrganizer)
	ben, _ := deps.addUser(t, "ben", models.RoleOrganizer)
	deps.addEvent(t, ann.ID, nil)
	music := deps.addEvent(t, ben.ID, nil)
	music.Category = "Music"
	deps.er.Put(music)

	var got []models.Event
	w := doReq(deps.s, http.MethodGet, "/api/events?category=MUSIC", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got) != 1 || got[0].ID != music.ID {
		t.Fatalf("category filter: err=%v body=%s", err, w.Body.String())
	}

	w = doReq(deps.s, http.MethodGet, "/api/events?organizerId=1", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got) != 1 || got[0].OrganizerID != ann.ID {
		t.Fatalf("organizer filter: err=%v body=%s", err, w.Body.String())
	}

	assertMessage(t, doReq(deps.s, http.MethodGet, "/api/events?organizerId=abc", "", ""), http.StatusBadRequest, "")
}

func TestEvents_Create(t *testing.T) {
	deps := setupServerWithDeps(t)
	org, token := deps.addUser(t, "org", models.RoleOrganizer)

	w := doReq(deps.s, http.MethodPost, "/api/events", eventBody, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/events code=%d body=%s", w.Code, w.Body.String())
	}
	var got models.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID == "" || got.OrganizerID != org.ID || got.RegistrationCount != 0 {
		t.Fatalf("unexpected event %+v", got)
	}
	if _, ok := deps.er.Get(got.ID); !ok {
		t.Fatalf("event not persisted into mock repo")
	}
}

func TestEvents_Create_Rejections(t *testing.T) {
	deps := setupServerWithDeps(t)
	_, userToken := deps.addUser(t, "plain", models.RoleUser)
	_, orgToken := deps.addUser(t, "org", models.RoleOrganizer)

	assertMessage(t, doReq(deps.s, http.MethodPost, "/api/events", eventBody, userToken),
		http.StatusForbidden, "User does not have ORGANIZER role")

	backwards := `{"title":"t","description":"d","location":"l","startTime":"2030-01-02T00:00:00Z","endTime":"2030-01-01T00:00:00Z","category":"c"}`
	assertMessage(t, doReq(deps.s, http.MethodPost, "/api/events", backwards, orgToken),
		http.StatusBadRequest, "End time must not be before start time.")

	missing := `{"description":"d","location":"l","startTime":"2030-01-01T00:00:00Z","endTime":"2030-01-02T00:00:00Z","category":"c"}`
	assertMessage(t, doReq(deps.s, http.MethodPost, "/api/events", missing, orgToken),
		http.StatusBadRequest, "title is required.")

	assertMessage(t, doReq(deps.s, http.MethodPost, "/api/events", `{"startTime":"yesterday"}`, orgToken),
		http.StatusBadRequest, "Could not parse request data.")

	if deps.er.Len() != 0 {
		t.Fatalf("rejected creates must not persist, have %d events", deps.er.Len())
	}
}

func TestEvents_Update_OK_and_Forbidden(t *testing.T) {
	deps := setupServerWithDeps(t)
	owner, ownerToken := deps.addUser(t, "owner", models.RoleOrganizer)
	_, otherToken := deps.addUser(t, "other", models.RoleOrganizer)
	ev := deps.addEvent(t, owner.ID, nil)

	w := doReq(deps.s, http.MethodPut, "/api/events/"+ev.ID, eventBody, ownerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT code=%d body=%s", w.Code, w.Body.String())
	}
	if stored, _ := deps.er.Get(ev.ID); stored.Title != "GoConf" {
		t.Fatalf("expect title updated, got %+v", stored)
	}

	assertMessage(t, doReq(deps.s, http.MethodPut, "/api/events/"+ev.ID, eventBody, otherToken), http.StatusForbidden, "")
	assertMessage(t, doReq(deps.s, http.MethodPut, "/api/events/missing", eventBody, ownerToken), http.StatusNotFound, "")
}

func TestEvents_Delete_OK_and_Forbidden(t *testing.T) {
	deps := setupServerWithDeps(t)
	owner, ownerToken := deps.addUser(t, "owner", models.RoleOrganizer)
	_, otherToken := deps.addUser(t, "other", models.RoleOrganizer)
	attendee, attendeeToken := deps.addUser(t, "att", models.RoleUser)
	ev := deps.addEvent(t, owner.ID, nil)

	assertMessage(t, doReq(deps.s, http.MethodPost, "/api/events/"+ev.ID+"/register", "", attendeeToken), http.StatusOK, "")
	assertMessage(t, doReq(deps.s, http.MethodDelete, "/api/events/"+ev.ID, "", otherToken), http.StatusForbidden, "")

	w := doReq(deps.s, http.MethodDelete, "/api/events/"+ev.ID, "", ownerToken)
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE code=%d body=%s", w.Code, w.Body.String())
	}
	if _, ok := deps.er.Get(ev.ID); ok {
		t.Fatalf("expect event deleted from repo")
	}
	if ok, _ := deps.rr.Exists(context.Background(), attendee.ID, ev.ID); ok {
		t.Fatalf("registrations must be removed with the event")
	}
}

func TestEvents_CacheInvalidatedOnWrite(t *testing.T) {
	deps := setupServerWithDeps(t)
	owner, ownerToken := deps.addUser(t, "owner", models.RoleOrganizer)
	_, userToken := deps.addUser(t, "u", models.RoleUser)
	ev := deps.addEvent(t, owner.ID, nil)
	path := "/api/events/" + ev.ID

	doReq(deps.s, http.MethodGet, path, "", "")
	if w := doReq(deps.s, http.MethodGet, path, "", ""); w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("want HIT before write, got %q", w.Header().Get("X-Cache"))
	}

	assertMessage(t, doReq(deps.s, http.MethodPost, path+"/register", "", userToken), http.StatusOK, "")

	w := doReq(deps.s, http.MethodGet, path, "", "")
	if w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("want MISS after registration, got %q", w.Header().Get("X-Cache"))
	}
	var got models.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got.RegistrationCount != 1 {
		t.Fatalf("stale event served: err=%v body=%s", err, w.Body.String())
	}

	doReq(deps.s, http.MethodPut, path, eventBody, ownerToken)
	if w := doReq(deps.s, http.MethodGet, path, "", ""); w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("want MISS after update, got %q", w.Header().Get("X-Cache"))
	}
}

type failingEventRepo struct{ models.EventRepository }

func (failingEventRepo) List(context.Context, models.EventFilter) ([]models.Event, error) {
	return nil, errors.New("boom")
}

func TestGetEvents_InternalError_500(t *testing.T) {
	deps := setupServer(t, generousLimits, failingEventRepo{})

	w := doReq(deps.s, http.MethodGet, "/api/events", "", "")
	assertMessage(t, w, http.StatusInternalServerError, "Something went wrong. Try again later.")
}
