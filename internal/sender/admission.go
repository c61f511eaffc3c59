// Package sender gates outbound messages before dispatch. A single
// Admit call answers every pre-send question: is the recipient
// suppressed, is the sending domain still inside its warmup ceiling,
// and does the recipient's mailbox provider have throughput headroom.
package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diogenesmendes01/email-gateway/internal/pkg/logger"
	"github.com/diogenesmendes01/email-gateway/internal/ratelimit"
)

// Denial reasons reported in Decision.Reason.
const (
	ReasonSuppressed        = "suppressed"
	ReasonWarmupDailyLimit  = "warmup_daily_limit"
	ReasonWarmupHourlyLimit = "warmup_hourly_limit"
	ReasonRateLimited       = "rate_limited"
)

// SuppressionChecker answers whether an address is on the do-not-mail
// list.
type SuppressionChecker interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// WarmupLimiter reports the current volume ceilings for a sending
// domain. A nil limit means the domain is unrestricted.
type WarmupLimiter interface {
	DailyLimit(ctx context.Context, sendingDomain string) (*int, error)
	HourlyLimit(ctx context.Context, sendingDomain string) (*int, error)
}

// RateChecker enforces per-MX throughput limits for a recipient.
type RateChecker interface {
	Check(ctx context.Context, recipientEmail string) ratelimit.Decision
}

// Decision is the gate's verdict for one message.
type Decision struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason,omitempty"`
	RecipientDomain string `json:"recipient_domain"`
	// RetryAfterMs is a hint for denied-but-retryable messages. Zero on
	// permanent denials such as suppression.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

// Gate composes the admission checks. Warmup send counts live in Redis
// so multiple gateway instances share one ceiling per sending domain.
type Gate struct {
	suppressions SuppressionChecker
	warmup       WarmupLimiter
	limiter      RateChecker
	redis        *redis.Client
	log          *logger.Logger
	now          func() time.Time
}

func NewGate(suppressions SuppressionChecker, warmup WarmupLimiter, limiter RateChecker, rdb *redis.Client, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		suppressions: suppressions,
		warmup:       warmup,
		limiter:      limiter,
		redis:        rdb,
		log:          logger.New("sender"),
		now:          now,
	}
}

// Admit runs the checks in order of severity: suppression is a permanent
// denial, warmup and rate limits are retryable. An admitted message is
// counted against the sending domain's warmup ceiling immediately.
//
// Only the suppression store can fail the call; warmup and rate-limit
// infrastructure errors fail open so a Redis blip does not halt sending.
func (g *Gate) Admit(ctx context.Context, sendingDomain, recipientEmail string) (Decision, error) {
	decision := Decision{RecipientDomain: ratelimit.ExtractDomain(recipientEmail)}

	suppressed, err := g.suppressions.IsSuppressed(ctx, recipientEmail)
	if err != nil {
		return decision, fmt.Errorf("check suppression: %w", err)
	}
	if suppressed {
		decision.Reason = ReasonSuppressed
		return decision, nil
	}

	if d, ok := g.checkWarmup(ctx, sendingDomain); !ok {
		decision.Reason = d.Reason
		decision.RetryAfterMs = d.RetryAfterMs
		return decision, nil
	}

	if rl := g.limiter.Check(ctx, recipientEmail); !rl.Allowed {
		decision.Reason = ReasonRateLimited
		decision.RetryAfterMs = rl.RetryAfterMs
		return decision, nil
	}

	g.countSend(ctx, sendingDomain)
	decision.Allowed = true
	return decision, nil
}

type warmupDenial struct {
	Reason       string
	RetryAfterMs int64
}

func (g *Gate) checkWarmup(ctx context.Context, sendingDomain string) (warmupDenial, bool) {
	daily, err := g.warmup.DailyLimit(ctx, sendingDomain)
	if err != nil {
		g.log.Warn("warmup daily limit lookup failed, allowing send", "domain", sendingDomain, "error", err.Error())
		return warmupDenial{}, true
	}
	if daily == nil {
		return warmupDenial{}, true
	}

	now := g.now()
	dayCount, hourCount, err := g.sentCounts(ctx, sendingDomain, now)
	if err != nil {
		g.log.Warn("warmup counter read failed, allowing send", "domain", sendingDomain, "error", err.Error())
		return warmupDenial{}, true
	}

	if dayCount >= int64(*daily) {
		return warmupDenial{
			Reason:       ReasonWarmupDailyLimit,
			RetryAfterMs: untilNextDay(now).Milliseconds(),
		}, false
	}

	hourly, err := g.warmup.HourlyLimit(ctx, sendingDomain)
	if err != nil || hourly == nil {
		return warmupDenial{}, true
	}
	if hourCount >= int64(*hourly) {
		return warmupDenial{
			Reason:       ReasonWarmupHourlyLimit,
			RetryAfterMs: untilNextHour(now).Milliseconds(),
		}, false
	}
	return warmupDenial{}, true
}

func (g *Gate) sentCounts(ctx context.Context, sendingDomain string, now time.Time) (day, hour int64, err error) {
	dayVal, err := g.redis.Get(ctx, dayKey(sendingDomain, now)).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	hourVal, err := g.redis.Get(ctx, hourKey(sendingDomain, now)).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	return dayVal, hourVal, nil
}

func (g *Gate) countSend(ctx context.Context, sendingDomain string) {
	now := g.now()
	_, err := g.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, dayKey(sendingDomain, now))
		pipe.Expire(ctx, dayKey(sendingDomain, now), 25*time.Hour)
		pipe.Incr(ctx, hourKey(sendingDomain, now))
		pipe.Expire(ctx, hourKey(sendingDomain, now), 2*time.Hour)
		return nil
	})
	if err != nil {
		g.log.Warn("warmup counter update failed", "domain", sendingDomain, "error", err.Error())
	}
}

func dayKey(domain string, now time.Time) string {
	return fmt.Sprintf("sender:sent:%s:day:%s", domain, now.UTC().Format("20060102"))
}

func hourKey(domain string, now time.Time) string {
	return fmt.Sprintf("sender:sent:%s:hour:%s", domain, now.UTC().Format("2006010215"))
}

func untilNextHour(now time.Time) time.Duration {
	next := now.UTC().Truncate(time.Hour).Add(time.Hour)
	return next.Sub(now.UTC())
}

func untilNextDay(now time.Time) time.Duration {
	u := now.UTC()
	next := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(u)
}
