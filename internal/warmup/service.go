package warmup

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/pkg/logger"
)

// Status describes where a domain currently sits in the warmup lifecycle.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// DefaultConfig is applied when an operator starts warmup without
// providing ramp parameters: start at 200/day and grow 1.5× daily to a
// 100k ceiling over a 30-day ramp.
var DefaultConfig = domain.WarmupConfig{
	StartVolume:    200,
	MaxDailyVolume: 100_000,
	DailyIncrease:  1.5,
	MaxDays:        30,
}

// StatusReport is the queryable view of a domain's warmup progress.
type StatusReport struct {
	Domain      string     `json:"domain"`
	Status      Status     `json:"status"`
	Day         int        `json:"day"`
	DailyLimit  *int       `json:"daily_limit,omitempty"`
	HourlyLimit *int       `json:"hourly_limit,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// Service implements warmup scheduling on top of a Repository. It is
// safe for concurrent use; concurrent administrative changes to the same
// domain are last-writer-wins, so operators should serialize them when
// strict ordering matters.
type Service struct {
	repo     Repository
	defaults domain.WarmupConfig
	log      *logger.Logger

	now func() time.Time
}

// NewService creates a warmup service. now may be nil to use wall time.
func NewService(repo Repository, defaults domain.WarmupConfig, now func() time.Time) *Service {
	if defaults == (domain.WarmupConfig{}) {
		defaults = DefaultConfig
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, defaults: defaults, log: logger.New("warmup"), now: now}
}

// DailyLimit returns today's volume ceiling for the domain, or nil when
// the domain is not in warm-up (never enrolled, paused, or already
// production-ready). Callers must treat nil as "no extra restriction".
//
// A domain whose ramp has elapsed is lazily transitioned to
// production-ready here, so completion does not depend on the sweep.
func (s *Service) DailyLimit(ctx context.Context, sendingDomain string) (*int, error) {
	state, err := s.get(ctx, sendingDomain)
	if err != nil {
		return nil, err
	}
	if state == nil || !state.WarmupEnabled || state.WarmupStartDate == nil {
		return nil, nil
	}

	days := elapsedDays(s.now(), *state.WarmupStartDate)
	if days >= state.Config.MaxDays {
		if err := s.complete(ctx, state); err != nil {
			return nil, err
		}
		limit := state.Config.MaxDailyVolume
		return &limit, nil
	}

	limit := dailyVolume(state.Config, days)
	return &limit, nil
}

// HourlyLimit derives an hourly ceiling from the daily one: an even
// 24-way split plus a 20% margin, so legitimate bursts within an hour
// are tolerated while the daily check still bounds total volume.
// Returns nil when the domain is not in warm-up.
func (s *Service) HourlyLimit(ctx context.Context, sendingDomain string) (*int, error) {
	daily, err := s.DailyLimit(ctx, sendingDomain)
	if err != nil || daily == nil {
		return nil, err
	}
	hourly := hourlyVolume(*daily)
	return &hourly, nil
}

// GetStatus returns the domain's lifecycle status and current limits.
func (s *Service) GetStatus(ctx context.Context, sendingDomain string) (*StatusReport, error) {
	sendingDomain = normalizeDomain(sendingDomain)
	state, err := s.get(ctx, sendingDomain)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &StatusReport{Domain: sendingDomain, Status: StatusNotStarted}, nil
	}

	report := &StatusReport{
		Domain:    state.Domain,
		Status:    statusOf(state),
		StartedAt: state.WarmupStartDate,
	}
	if state.WarmupStartDate != nil {
		report.Day = elapsedDays(s.now(), *state.WarmupStartDate)
	}
	if report.Status == StatusActive {
		// The same lazy completion as DailyLimit: an elapsed ramp reports
		// completed even if neither a limit query nor the sweep ran yet.
		if report.Day >= state.Config.MaxDays {
			if err := s.complete(ctx, state); err != nil {
				return nil, err
			}
			report.Status = StatusCompleted
			return report, nil
		}
		daily := dailyVolume(state.Config, report.Day)
		hourly := hourlyVolume(daily)
		report.DailyLimit = &daily
		report.HourlyLimit = &hourly
	}
	return report, nil
}

// Start enrolls a domain in warm-up. cfg may be nil to use the service
// defaults. Restarting a completed or paused domain begins a fresh ramp.
func (s *Service) Start(ctx context.Context, sendingDomain string, cfg *domain.WarmupConfig) error {
	sendingDomain = normalizeDomain(sendingDomain)
	if sendingDomain == "" {
		return fmt.Errorf("sending domain is required")
	}

	existing, err := s.get(ctx, sendingDomain)
	if err != nil {
		return err
	}
	if existing != nil && existing.WarmupEnabled {
		return ErrAlreadyActive
	}

	config := s.defaults
	if cfg != nil {
		config = *cfg
	}
	start := s.now()
	state := &domain.WarmupState{
		Domain:          sendingDomain,
		WarmupEnabled:   true,
		WarmupStartDate: &start,
		Config:          config,
	}
	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("start warmup for %s: %w", sendingDomain, err)
	}
	s.log.Info("warmup started", "domain", sendingDomain,
		"start_volume", config.StartVolume, "max_days", config.MaxDays)
	return nil
}

// Pause disables sending-limit growth without losing the ramp position:
// the start date and config are kept.
func (s *Service) Pause(ctx context.Context, sendingDomain string) error {
	state, err := s.repo.Get(ctx, normalizeDomain(sendingDomain))
	if err != nil {
		return err
	}
	if !state.WarmupEnabled {
		return ErrNotActive
	}

	state.WarmupEnabled = false
	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("pause warmup for %s: %w", state.Domain, err)
	}
	s.log.Info("warmup paused", "domain", state.Domain)
	return nil
}

// Resume re-enables a paused domain and resets the start date to now:
// the ramp restarts from day zero. A pause means reputation signals went
// bad, so resuming from the prior position would be unsafe.
func (s *Service) Resume(ctx context.Context, sendingDomain string) error {
	state, err := s.repo.Get(ctx, normalizeDomain(sendingDomain))
	if err != nil {
		return err
	}
	if state.IsProductionReady {
		return ErrCompleted
	}
	if state.WarmupEnabled {
		return ErrAlreadyActive
	}

	start := s.now()
	state.WarmupEnabled = true
	state.WarmupStartDate = &start
	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("resume warmup for %s: %w", state.Domain, err)
	}
	s.log.Info("warmup resumed from day zero", "domain", state.Domain)
	return nil
}

// Complete marks a domain production-ready and disables warm-up.
// Idempotent: completing a completed domain is a no-op.
func (s *Service) Complete(ctx context.Context, sendingDomain string) error {
	state, err := s.repo.Get(ctx, normalizeDomain(sendingDomain))
	if err != nil {
		return err
	}
	if state.IsProductionReady && !state.WarmupEnabled {
		return nil
	}
	return s.complete(ctx, state)
}

// SweepCompleted scans every enabled domain and transitions those whose
// ramp has elapsed to production-ready. Idempotent and safe to run
// repeatedly; returns how many domains were completed.
func (s *Service) SweepCompleted(ctx context.Context) (int, error) {
	states, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list warmup domains: %w", err)
	}

	completed := 0
	now := s.now()
	for i := range states {
		state := &states[i]
		if state.WarmupStartDate == nil {
			continue
		}
		if elapsedDays(now, *state.WarmupStartDate) < state.Config.MaxDays {
			continue
		}
		if err := s.complete(ctx, state); err != nil {
			s.log.Error("sweep: completing domain failed", "domain", state.Domain, "error", err)
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *Service) complete(ctx context.Context, state *domain.WarmupState) error {
	state.IsProductionReady = true
	state.WarmupEnabled = false
	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("complete warmup for %s: %w", state.Domain, err)
	}
	s.log.Info("warmup complete, domain is production ready", "domain", state.Domain)
	return nil
}

// get returns nil (not an error) when the domain has no warmup record.
func (s *Service) get(ctx context.Context, sendingDomain string) (*domain.WarmupState, error) {
	state, err := s.repo.Get(ctx, normalizeDomain(sendingDomain))
	if err == ErrNotFound {
		return nil, nil
	}
	return state, err
}

func statusOf(state *domain.WarmupState) Status {
	switch {
	case state.IsProductionReady:
		return StatusCompleted
	case state.WarmupEnabled:
		return StatusActive
	default:
		return StatusPaused
	}
}

// elapsedDays counts whole 24-hour periods since start, clamped to zero
// so clock skew can never yield a negative day.
func elapsedDays(now, start time.Time) int {
	days := int(now.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// dailyVolume is the exponential ramp: startVolume · dailyIncrease^day,
// floored, capped at maxDailyVolume. Day maxDays and beyond return the
// cap directly.
func dailyVolume(cfg domain.WarmupConfig, day int) int {
	if day >= cfg.MaxDays {
		return cfg.MaxDailyVolume
	}
	v := float64(cfg.StartVolume) * math.Pow(cfg.DailyIncrease, float64(day))
	if v > float64(cfg.MaxDailyVolume) {
		return cfg.MaxDailyVolume
	}
	return int(math.Floor(v))
}

// hourlyVolume is ceil(daily/24 · 1.2), which reduces to ceil(daily/20);
// integer math keeps the boundary cases exact.
func hourlyVolume(daily int) int {
	if daily <= 0 {
		return 0
	}
	return (daily + 19) / 20
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}
