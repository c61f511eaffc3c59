package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/pkg/httputil"
	"github.com/diogenesmendes01/email-gateway/internal/suppression"
	"github.com/diogenesmendes01/email-gateway/internal/warmup"
)

// maxDSNBody caps DSN uploads. Real reports are a few KB; anything
// bigger is not a DSN.
const maxDSNBody = 5 << 20

func (s *Server) handleProcessDSN(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDSNBody))
	if err != nil {
		httputil.BadRequest(w, "unable to read request body")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		httputil.BadRequest(w, "empty DSN body")
		return
	}

	result, err := s.services.Processor.Process(r.Context(), body)
	if err != nil {
		// Classification is done; a collaborator failed part-way. The
		// caller should retry the whole report.
		s.log.Error("dsn processing incomplete", "error", err.Error())
		httputil.Error(w, http.StatusInternalServerError, "dsn processing incomplete")
		return
	}
	httputil.OK(w, result)
}

type admissionRequest struct {
	SendingDomain string `json:"sending_domain"`
	Recipient     string `json:"recipient"`
}

func (s *Server) handleAdmissionCheck(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Recipient == "" {
		httputil.BadRequest(w, "recipient is required")
		return
	}
	if req.SendingDomain == "" {
		httputil.BadRequest(w, "sending_domain is required")
		return
	}

	decision, err := s.services.Gate.Admit(r.Context(), req.SendingDomain, req.Recipient)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, decision)
}

func (s *Server) handleWarmupStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.services.Warmup.GetStatus(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, report)
}

type warmupStartRequest struct {
	StartVolume    int     `json:"start_volume"`
	MaxDailyVolume int     `json:"max_daily_volume"`
	DailyIncrease  float64 `json:"daily_increase"`
	MaxDays        int     `json:"max_days"`
}

func (s *Server) handleWarmupStart(w http.ResponseWriter, r *http.Request) {
	var cfg *domain.WarmupConfig
	if r.ContentLength > 0 {
		var req warmupStartRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		if req.StartVolume <= 0 || req.MaxDailyVolume <= 0 || req.DailyIncrease <= 1 || req.MaxDays <= 0 {
			httputil.BadRequest(w, "invalid warmup config")
			return
		}
		cfg = &domain.WarmupConfig{
			StartVolume:    req.StartVolume,
			MaxDailyVolume: req.MaxDailyVolume,
			DailyIncrease:  req.DailyIncrease,
			MaxDays:        req.MaxDays,
		}
	}

	d := chi.URLParam(r, "domain")
	if err := s.services.Warmup.Start(r.Context(), d, cfg); err != nil {
		s.warmupError(w, err)
		return
	}
	report, err := s.services.Warmup.GetStatus(r.Context(), d)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, report)
}

func (s *Server) handleWarmupPause(w http.ResponseWriter, r *http.Request) {
	s.warmupTransition(w, r, s.services.Warmup.Pause)
}

func (s *Server) handleWarmupResume(w http.ResponseWriter, r *http.Request) {
	s.warmupTransition(w, r, s.services.Warmup.Resume)
}

func (s *Server) handleWarmupComplete(w http.ResponseWriter, r *http.Request) {
	s.warmupTransition(w, r, s.services.Warmup.Complete)
}

func (s *Server) warmupTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sendingDomain string) error) {
	d := chi.URLParam(r, "domain")
	if err := fn(r.Context(), d); err != nil {
		s.warmupError(w, err)
		return
	}
	report, err := s.services.Warmup.GetStatus(r.Context(), d)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, report)
}

func (s *Server) handleWarmupSweep(w http.ResponseWriter, r *http.Request) {
	n, err := s.services.Warmup.SweepCompleted(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"completed": n})
}

func (s *Server) warmupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, warmup.ErrNotFound):
		httputil.NotFound(w, "domain not enrolled in warmup")
	case errors.Is(err, warmup.ErrAlreadyActive):
		httputil.Conflict(w, "warmup already active")
	case errors.Is(err, warmup.ErrNotActive):
		httputil.Conflict(w, "warmup not active")
	case errors.Is(err, warmup.ErrCompleted):
		httputil.Conflict(w, "warmup already completed")
	default:
		httputil.InternalError(w, err)
	}
}

type suppressionRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

var validReasons = map[domain.SuppressionReason]bool{
	domain.ReasonHardBounce:  true,
	domain.ReasonComplaint:   true,
	domain.ReasonUnsubscribe: true,
	domain.ReasonManual:      true,
}

func (s *Server) handleCreateSuppression(w http.ResponseWriter, r *http.Request) {
	var req suppressionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if !strings.Contains(req.Email, "@") {
		httputil.BadRequest(w, "invalid email address")
		return
	}
	reason := domain.SuppressionReason(req.Reason)
	if req.Reason == "" {
		reason = domain.ReasonManual
	}
	if !validReasons[reason] {
		httputil.BadRequest(w, "invalid suppression reason")
		return
	}

	if err := s.services.Suppressions.Suppress(r.Context(), req.Email, reason, domain.SourceAPI, "", ""); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"email": strings.ToLower(strings.TrimSpace(req.Email)), "reason": string(reason)})
}

func (s *Server) handleCheckSuppression(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	suppressed, err := s.services.Suppressions.IsSuppressed(r.Context(), email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"email": email, "suppressed": suppressed})
}

func (s *Server) handleDeleteSuppression(w http.ResponseWriter, r *http.Request) {
	err := s.services.Suppressions.Remove(r.Context(), chi.URLParam(r, "email"))
	if errors.Is(err, suppression.ErrNotFound) {
		httputil.NotFound(w, "email not suppressed")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (s *Server) handleListSuppressions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := queryInt(r, "offset", 0)

	items, total, err := s.services.Suppressions.List(r.Context(), limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if items == nil {
		items = []domain.Suppression{}
	}
	httputil.OK(w, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
