package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/personalization"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var atRiskPolicy = personalization.Policy{
	ShowTutorials:      false,
	GuidanceMode:       "contextual",
	InsightDensity:     "low",
	FeatureProminence:  "simplified",
	MonetizationPolicy: "retention_offer",
}

type fakePreviewer struct {
	result *pipeline.Result
	err    error
}

func (p *fakePreviewer) Preview(ctx context.Context, userID string, now time.Time) (*pipeline.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	r := *p.result
	r.UserID = userID
	return &r, nil
}

type handlerFixture struct {
	mr        *miniredis.Miniredis
	store     *service.RedisLifecycleStore
	previewer *fakePreviewer
	router    chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	resolver, err := personalization.NewResolver(map[string]personalization.Policy{"at_risk": atRiskPolicy})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	f := &handlerFixture{
		mr:        mr,
		store:     service.NewRedisLifecycleStore(client),
		previewer: &fakePreviewer{result: &pipeline.Result{From: state.AtRisk, To: state.Dormant, DryRun: true}},
	}

	h := NewLifecycleHandler(f.store, service.NewRedisUserDirectory(client), resolver, f.previewer, service.NewRedisBehaviorStore(client))
	h.now = func() time.Time { return testNow }

	f.router = chi.NewRouter()
	h.RegisterRoutes(f.router)
	return f
}

func (f *handlerFixture) seedAtRisk(t *testing.T, userID string) {
	t.Helper()
	firedAt := testNow.Add(-time.Hour)
	rec := service.NewUserRecord(userID, testNow)
	rec.Lifecycle = state.UserLifecycleState{Current: state.AtRisk, EnteredAt: testNow.Add(-48 * time.Hour), Previous: state.Engaged}
	rec.Risk = &risk.Record{Score: 72, Category: risk.CategoryHigh, ComputedAt: testNow}
	rec.Attempts = intervention.Attempts{
		"what_changed_reminder": {InterventionID: "what_changed_reminder", FirstFiredAt: firedAt, FiredAt: firedAt, FireCount: 1},
	}
	rec.UpdatedAt = testNow
	if err := f.store.Commit(context.Background(), rec, nil); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
}

func (f *handlerFixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGetLifecycle(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAtRisk(t, "user-1")

	rec := f.do(http.MethodGet, "/v1/users/user-1/lifecycle")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decode[LifecycleResponse](t, rec)
	if resp.State != state.AtRisk || !resp.Evaluated {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.PreviousState == nil || *resp.PreviousState != state.Engaged {
		t.Errorf("PreviousState = %v, want engaged", resp.PreviousState)
	}
	if resp.Risk == nil || resp.Risk.Category != risk.CategoryHigh {
		t.Errorf("unexpected risk: %+v", resp.Risk)
	}
	if resp.Attempts["what_changed_reminder"].FireCount != 1 {
		t.Errorf("unexpected attempts: %+v", resp.Attempts)
	}
}

func TestGetLifecycle_NotEvaluated(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/v1/users/user-2/lifecycle")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decode[LifecycleResponse](t, rec)
	if resp.State != state.New || resp.Evaluated {
		t.Errorf("expected unevaluated new user, got %+v", resp)
	}
}

func TestGetLifecycle_InvalidState(t *testing.T) {
	f := newHandlerFixture(t)
	f.mr.Set("lifecycle:user:user-1", `{"lifecycle":{"currentState":"lurking"},"version":1}`)

	rec := f.do(http.MethodGet, "/v1/users/user-1/lifecycle")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if resp := decode[errorResponse](t, rec); resp.Code != "INVALID_STATE" {
		t.Errorf("code = %s, want INVALID_STATE", resp.Code)
	}
}

func TestGetPersonalization(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAtRisk(t, "user-1")
	f.mr.Set("lifecycle:user:broken", `{"lifecycle":{"currentState":"lurking"},"version":1}`)

	tests := []struct {
		name       string
		userID     string
		wantState  string
		wantPolicy personalization.Policy
	}{
		{"configured state", "user-1", "at_risk", atRiskPolicy},
		{"state without policy", "user-2", "new", personalization.Conservative},
		{"unreadable state fails closed", "broken", "unknown", personalization.Conservative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/v1/users/"+tt.userID+"/personalization")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}

			resp := decode[PersonalizationResponse](t, rec)
			if resp.State != tt.wantState {
				t.Errorf("State = %s, want %s", resp.State, tt.wantState)
			}
			if resp.Policy != tt.wantPolicy {
				t.Errorf("Policy = %+v, want %+v", resp.Policy, tt.wantPolicy)
			}
		})
	}
}

func TestFeedback(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, a intervention.AttemptRecord)
	}{
		{
			name:       "dismiss",
			path:       "/v1/users/user-1/interventions/what_changed_reminder/dismiss",
			wantStatus: http.StatusNoContent,
			check: func(t *testing.T, a intervention.AttemptRecord) {
				if a.DismissedAt == nil || !a.DismissedAt.Equal(testNow) {
					t.Errorf("DismissedAt = %v, want %v", a.DismissedAt, testNow)
				}
			},
		},
		{
			name:       "interact",
			path:       "/v1/users/user-1/interventions/what_changed_reminder/interact",
			wantStatus: http.StatusNoContent,
			check: func(t *testing.T, a intervention.AttemptRecord) {
				if !a.Interacted {
					t.Error("expected Interacted to be set")
				}
			},
		},
		{
			name:       "never shown",
			path:       "/v1/users/user-1/interventions/win_back_email/dismiss",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.seedAtRisk(t, "user-1")

			rec := f.do(http.MethodPost, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.check == nil {
				return
			}

			stored, err := f.store.Load(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, stored.Attempts["what_changed_reminder"])
		})
	}
}

func TestEnroll(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/v1/users/user-1/enroll")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	ok, err := f.mr.SIsMember("lifecycle:users", "user-1")
	if err != nil || !ok {
		t.Errorf("expected user-1 to be enrolled, err = %v", err)
	}
}

func TestRecordSession(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/v1/users/user-1/sessions")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if got := f.mr.HGet("behavior:sessions:user-1", testNow.Format("20060102")); got != "1" {
		t.Errorf("session count = %q, want 1", got)
	}
}

func TestPreview(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/v1/users/user-1/preview")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decode[pipeline.Result](t, rec)
	if resp.UserID != "user-1" || resp.To != state.Dormant || !resp.DryRun {
		t.Errorf("unexpected preview: %+v", resp)
	}

	f.previewer.err = errors.Join(signal.ErrDataUnavailable, errors.New("timeout"))
	rec = f.do(http.MethodGet, "/v1/users/user-1/preview")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
