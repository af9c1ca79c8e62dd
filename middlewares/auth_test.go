package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"eventmanager/models"
	"eventmanager/utils"
)

const testCookie = "jwt-token"

func newAuthServer(tokens *utils.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := gin.New()
	s.Use(Authenticate(tokens, testCookie))
	s.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": CurrentUserID(c), "role": CurrentRole(c)})
	})
	s.POST("/events", RequireRole(models.RoleOrganizer), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return s
}

func TestAuthenticate_MissingToken401(t *testing.T) {
	s := newAuthServer(utils.NewJWTManager("test-secret-0123456789", time.Hour, "test"))

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

func TestAuthenticate_CookieAndBearer(t *testing.T) {
	tokens := utils.NewJWTManager("test-secret-0123456789", time.Hour, "test")
	s := newAuthServer(tokens)
	token, err := tokens.Generate(42, "alice", string(models.RoleUser))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie: want 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer: want 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"role":"USER","userId":42}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestAuthenticate_TokenFromOtherSecret401(t *testing.T) {
	s := newAuthServer(utils.NewJWTManager("test-secret-0123456789", time.Hour, "test"))
	forged, _ := utils.NewJWTManager("another-secret-987654", time.Hour, "test").Generate(1, "x", "USER")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	tokens := utils.NewJWTManager("test-secret-0123456789", time.Hour, "test")
	s := newAuthServer(tokens)

	for role, want := range map[models.Role]int{
		models.RoleUser:      http.StatusForbidden,
		models.RoleAdmin:     http.StatusForbidden,
		models.RoleOrganizer: http.StatusCreated,
	} {
		token, _ := tokens.Generate(3, "bob", string(role))
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("role %s: want %d, got %d", role, want, w.Code)
		}
		if want == http.StatusForbidden && w.Body.String() != `{"message":"User does not have ORGANIZER role"}` {
			t.Fatalf("role %s: body %s", role, w.Body.String())
		}
	}
}
