package routes

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"eventmanager/config"
	"eventmanager/mocks"
	"eventmanager/models"
	"eventmanager/services"
	"eventmanager/utils"
)

const testSecret = "routes-test-secret-0123"

type serverDeps struct {
	s      *gin.Engine
	ur     *mocks.MockUserRepo
	rr     *mocks.MockRegRepo
	er     *mocks.MockEventRepo
	mr     *miniredis.Miniredis
	tokens *utils.JWTManager
}

var generousLimits = config.RateLimitConfig{
	GlobalRPS: 1000, GlobalBurst: 1000,
	AuthRPS: 1000, AuthBurst: 1000,
	UserRPS: 1000, UserBurst: 1000,
	DailyQuota: 1000,
}

func setupServerWithDeps(t *testing.T) serverDeps {
	t.Helper()
	return setupServer(t, generousLimits, nil)
}

func setupServer(t *testing.T, limits config.RateLimitConfig, er models.EventRepository) serverDeps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ur := mocks.NewUserRepo()
	rr := mocks.NewRegRepo(ur)
	mer := mocks.NewEventRepo()
	if er == nil {
		er = mer
	}
	tokens := utils.NewJWTManager(testSecret, time.Hour, "test")
	log := zerolog.Nop()

	s := gin.New()
	stop := RegisterRoutes(s, Deps{
		Auth:          services.NewAuthService(ur, tokens, bcrypt.MinCost, log),
		Events:        services.NewEventService(er, rr, ur, log),
		Registrations: services.NewRegistrationService(er, rr, log),
		Tokens:        tokens,
		Redis:         rdb,
		Invalidator:   utils.NewCacheInvalidator(rdb),
		Cookie:        CookieConfig{Name: "jwt-token", Path: "/api", Secure: true},
		Limits:        limits,
		CacheTTL:      time.Minute,
		HealthChecks: map[string]HealthCheck{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Logger: log,
	})
	t.Cleanup(stop)
	return serverDeps{s: s, ur: ur, rr: rr, er: mer, mr: mr, tokens: tokens}
}

// addUser stores a user directly and returns it with a bearer token.
func (d serverDeps) addUser(t *testing.T, username string, role models.Role) (models.User, string) {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	if err := d.ur.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := d.tokens.Generate(u.ID, u.Username, string(u.Role))
	if err != nil {
		t.Fatalf("gen token: %v", err)
	}
	return u, "Bearer " + token
}

func (d serverDeps) addEvent(t *testing.T, organizerID int64, maxAttendees *int) models.Event {
	t.Helper()
	start := time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC)
	e := models.Event{
		ID:           uuid.NewString(),
		Title:        "Meetup",
		Description:  "d",
		Location:     "loc",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		Category:     "Tech",
		OrganizerID:  organizerID,
		MaxAttendees: maxAttendees,
	}
	d.er.Put(e)
	return e
}

func doReq(s *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	s.ServeHTTP(w, req)
	return w
}

func intPtr(n int) *int { return &n }

func assertMessage(t *testing.T, w *httptest.ResponseRecorder, code int, msg string) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("want %d, got %d body=%s", code, w.Code, w.Body.String())
	}
	if msg != "" && !strings.Contains(w.Body.String(), `"message":"`+msg+`"`) {
		t.Fatalf("want message %q, body=%s", msg, w.Body.String())
	}
}

