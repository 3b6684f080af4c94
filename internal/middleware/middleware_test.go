package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "student":
		return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, nil
	case "counselor":
		return &models.JWTClaims{UserID: "cA", Role: models.RoleCounselor}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func protectedRouter(recorder AuditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/alerts", JWT(stubValidator{}), RequireAlertReviewer())
	group.GET("/:id", Audit(recorder, nil, models.AuditActionAlertView, "mental_health_alert", "id"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func serve(router *gin.Engine, auth string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/alerts/a1", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTAndRoles(t *testing.T) {
	audits := &recordingAudit{}
	router := protectedRouter(audits)

	cases := []struct {
		name string
		auth string
		want int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token counselor", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"student forbidden", "Bearer student", http.StatusForbidden},
		{"counselor allowed", "Bearer counselor", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := serve(router, tc.auth).Code; got != tc.want {
				t.Fatalf("unexpected status: got %d want %d", got, tc.want)
			}
		})
	}

	if len(audits.logs) != 1 {
		t.Fatalf("expected one audit row for the admitted request, got %d", len(audits.logs))
	}
	entry := audits.logs[0]
	if entry.Action != models.AuditActionAlertView || entry.ResourceID == nil || *entry.ResourceID != "a1" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.UserID == nil || *entry.UserID != "cA" {
		t.Fatalf("expected audit actor cA")
	}
}

func TestAuditFailureDoesNotBreakResponse(t *testing.T) {
	router := protectedRouter(&recordingAudit{err: errors.New("db down")})
	if got := serve(router, "Bearer counselor").Code; got != http.StatusOK {
		t.Fatalf("unexpected status: %d", got)
	}
}

func TestResponseMetaProcessingTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "classifier", "keyword")
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if _, ok := meta["processing_time_ms"]; !ok {
		t.Fatalf("expected processing_time_ms in meta: %v", meta)
	}
	if _, ok := meta["started_at"]; ok {
		t.Fatalf("started_at must not leak into meta")
	}
	if meta["classifier"] != "keyword" {
		t.Fatalf("unexpected classifier meta: %v", meta["classifier"])
	}
}

func TestJWTChallengeHeader(t *testing.T) {
	router := protectedRouter(&recordingAudit{})

	rec := serve(router, "")
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_request"`) {
		t.Fatalf("unexpected challenge for missing token: %q", got)
	}
	rec = serve(router, "Bearer nope")
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_token"`) {
		t.Fatalf("unexpected challenge for bad token: %q", got)
	}
	if rec := serve(router, "Bearer student"); rec.Header().Get("WWW-Authenticate") != "" {
		t.Fatalf("forbidden responses must not carry a challenge")
	}
}
