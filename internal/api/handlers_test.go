package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogenesmendes01/email-gateway/internal/bounce"
	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/sender"
	"github.com/diogenesmendes01/email-gateway/internal/suppression"
	"github.com/diogenesmendes01/email-gateway/internal/warmup"
)

type fakeProcessor struct {
	result *bounce.Result
	err    error
}

func (f *fakeProcessor) Process(context.Context, []byte) (*bounce.Result, error) {
	return f.result, f.err
}

type fakeGate struct {
	decision sender.Decision
	err      error
}

func (f *fakeGate) Admit(context.Context, string, string) (sender.Decision, error) {
	return f.decision, f.err
}

type fakeSuppressions struct {
	entries map[string]domain.Suppression
}

func newFakeSuppressions() *fakeSuppressions {
	return &fakeSuppressions{entries: map[string]domain.Suppression{}}
}

func (f *fakeSuppressions) IsSuppressed(_ context.Context, email string) (bool, error) {
	_, ok := f.entries[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeSuppressions) Suppress(_ context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, status, diag string) error {
	key := strings.ToLower(email)
	f.entries[key] = domain.Suppression{Email: key, Reason: reason, Source: source, DSNStatus: status, DSNDiag: diag}
	return nil
}

func (f *fakeSuppressions) Remove(_ context.Context, email string) error {
	key := strings.ToLower(email)
	if _, ok := f.entries[key]; !ok {
		return suppression.ErrNotFound
	}
	delete(f.entries, key)
	return nil
}

func (f *fakeSuppressions) List(context.Context, int, int) ([]domain.Suppression, int, error) {
	out := make([]domain.Suppression, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, len(out), nil
}

type fakeWarmup struct {
	report   *warmup.StatusReport
	startErr error
	pauseErr error
	swept    int
}

func (f *fakeWarmup) GetStatus(context.Context, string) (*warmup.StatusReport, error) {
	return f.report, nil
}
func (f *fakeWarmup) Start(context.Context, string, *domain.WarmupConfig) error { return f.startErr }
func (f *fakeWarmup) Pause(context.Context, string) error                       { return f.pauseErr }
func (f *fakeWarmup) Resume(context.Context, string) error                      { return nil }
func (f *fakeWarmup) Complete(context.Context, string) error                    { return nil }
func (f *fakeWarmup) SweepCompleted(context.Context) (int, error)               { return f.swept, nil }

func testServer(services Services) *Server {
	if services.Processor == nil {
		services.Processor = &fakeProcessor{result: &bounce.Result{}}
	}
	if services.Gate == nil {
		services.Gate = &fakeGate{decision: sender.Decision{Allowed: true}}
	}
	if services.Suppressions == nil {
		services.Suppressions = newFakeSuppressions()
	}
	if services.Warmup == nil {
		services.Warmup = &fakeWarmup{report: &warmup.StatusReport{Domain: "sender.com", Status: warmup.StatusActive}}
	}
	return NewServer(Options{Addr: ":0"}, services)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := testServer(Services{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProcessDSN(t *testing.T) {
	result := &bounce.Result{
		Recipients: []bounce.RecipientResult{{Recipient: "gone@example.com", Type: bounce.Hard, Suppressed: true}},
		Suppressed: 1,
	}
	srv := testServer(Services{Processor: &fakeProcessor{result: result}})

	req := httptest.NewRequest(http.MethodPost, "/v1/dsn", strings.NewReader("Final-Recipient: rfc822; gone@example.com\nAction: failed\nStatus: 5.1.1\n"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got bounce.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Suppressed)
	require.Len(t, got.Recipients, 1)
	assert.Equal(t, "gone@example.com", got.Recipients[0].Recipient)
}

func TestProcessDSNEmptyBody(t *testing.T) {
	srv := testServer(Services{})
	req := httptest.NewRequest(http.MethodPost, "/v1/dsn", strings.NewReader("   \n"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessDSNCollaboratorFailure(t *testing.T) {
	srv := testServer(Services{Processor: &fakeProcessor{err: assert.AnError}})
	req := httptest.NewRequest(http.MethodPost, "/v1/dsn", strings.NewReader("Action: failed\n"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdmissionCheck(t *testing.T) {
	gate := &fakeGate{decision: sender.Decision{Allowed: false, Reason: sender.ReasonRateLimited, RetryAfterMs: 1000, RecipientDomain: "gmail.com"}}
	srv := testServer(Services{Gate: gate})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/admission/check",
		admissionRequest{SendingDomain: "sender.com", Recipient: "user@gmail.com"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var d sender.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.False(t, d.Allowed)
	assert.Equal(t, sender.ReasonRateLimited, d.Reason)
	assert.Equal(t, int64(1000), d.RetryAfterMs)
}

func TestAdmissionCheckValidation(t *testing.T) {
	srv := testServer(Services{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/admission/check",
		admissionRequest{SendingDomain: "sender.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/v1/admission/check",
		admissionRequest{Recipient: "user@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWarmupStatusAndSweep(t *testing.T) {
	wu := &fakeWarmup{report: &warmup.StatusReport{Domain: "sender.com", Status: warmup.StatusActive}, swept: 3}
	srv := testServer(Services{Warmup: wu})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/warmup/sender.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(warmup.StatusActive))

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/v1/warmup/sweep", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed":3`)
}

func TestWarmupStartConflict(t *testing.T) {
	wu := &fakeWarmup{startErr: warmup.ErrAlreadyActive}
	srv := testServer(Services{Warmup: wu})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/warmup/sender.com/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWarmupStartInvalidConfig(t *testing.T) {
	srv := testServer(Services{})
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/warmup/sender.com/start",
		warmupStartRequest{StartVolume: 0, MaxDailyVolume: 1000, DailyIncrease: 1.5, MaxDays: 30})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWarmupPauseNotFound(t *testing.T) {
	wu := &fakeWarmup{pauseErr: warmup.ErrNotFound}
	srv := testServer(Services{Warmup: wu})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/warmup/unknown.com/pause", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuppressionLifecycle(t *testing.T) {
	sup := newFakeSuppressions()
	srv := testServer(Services{Suppressions: sup})
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/suppressions", suppressionRequest{Email: "User@Example.com", Reason: "manual"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/suppressions/user@example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suppressed":true`)

	rec = doJSON(t, h, http.MethodGet, "/v1/suppressions/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = doJSON(t, h, http.MethodDelete, "/v1/suppressions/user@example.com", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/v1/suppressions/user@example.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuppressionValidation(t *testing.T) {
	srv := testServer(Services{})
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/suppressions", suppressionRequest{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/suppressions", suppressionRequest{Email: "a@b.com", Reason: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
