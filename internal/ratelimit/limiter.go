// Package ratelimit enforces per-recipient-domain send rates against a
// shared Redis counter store, so that limits hold across all sending
// worker processes.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diogenesmendes01/email-gateway/internal/pkg/logger"
)

// UnknownDomain is the sentinel bucket for addresses with no extractable
// domain. They share one (default-tier) counter.
const UnknownDomain = "unknown"

// defaultStoreTimeout bounds every counter-store round trip so a slow
// Redis cannot stall the sending pipeline.
const defaultStoreTimeout = 250 * time.Millisecond

// Limit is the admission ceiling for one recipient domain.
type Limit struct {
	PerSecond int `json:"per_second" yaml:"per_second"`
	PerMinute int `json:"per_minute" yaml:"per_minute"`
}

// Decision is the result of an admission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Domain  string `json:"domain"`
	// RetryAfterMs is set only on denials: 1000 for a per-second denial,
	// the remaining time in the current minute window otherwise.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

// DefaultDomainLimits holds the built-in per-domain tiers. Major webmail
// receivers throttle aggressively, so they get materially lower
// per-second ceilings than the default tier.
var DefaultDomainLimits = map[string]Limit{
	"gmail.com":      {PerSecond: 10, PerMinute: 600},
	"googlemail.com": {PerSecond: 10, PerMinute: 600},
	"yahoo.com":      {PerSecond: 5, PerMinute: 300},
	"ymail.com":      {PerSecond: 5, PerMinute: 300},
	"outlook.com":    {PerSecond: 10, PerMinute: 600},
	"hotmail.com":    {PerSecond: 10, PerMinute: 600},
	"live.com":       {PerSecond: 10, PerMinute: 600},
	"msn.com":        {PerSecond: 10, PerMinute: 600},
	"aol.com":        {PerSecond: 5, PerMinute: 300},
	"icloud.com":     {PerSecond: 5, PerMinute: 300},
	"me.com":         {PerSecond: 5, PerMinute: 300},
	"uol.com.br":     {PerSecond: 5, PerMinute: 300},
	"bol.com.br":     {PerSecond: 5, PerMinute: 300},
}

// DefaultLimit is the permissive tier applied to domains with no
// specific entry.
var DefaultLimit = Limit{PerSecond: 50, PerMinute: 2000}

// Limiter answers "can this recipient domain accept traffic right now"
// on rolling one-second and one-minute windows. It is safe for
// concurrent use; all shared state lives in Redis.
type Limiter struct {
	rdb          *redis.Client
	limits       map[string]Limit
	defaultLimit Limit
	storeTimeout time.Duration
	log          *logger.Logger

	now func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithLimits replaces the built-in per-domain table.
func WithLimits(limits map[string]Limit, fallback Limit) Option {
	return func(l *Limiter) {
		l.limits = limits
		l.defaultLimit = fallback
	}
}

// WithStoreTimeout bounds each counter-store round trip.
func WithStoreTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.storeTimeout = d
		}
	}
}

// WithClock injects a clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter backed by the given Redis client.
func New(rdb *redis.Client, opts ...Option) *Limiter {
	l := &Limiter{
		rdb:          rdb,
		limits:       DefaultDomainLimits,
		defaultLimit: DefaultLimit,
		storeTimeout: defaultStoreTimeout,
		log:          logger.New("ratelimit"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ExtractDomain returns the lowercased domain of an email address, split
// on the last "@". Addresses with no "@" or an empty local/domain part
// map to the UnknownDomain sentinel, so "User@Gmail.com" and
// "user@gmail.com" share one counter and garbage shares another.
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return UnknownDomain
	}
	return strings.ToLower(email[at+1:])
}

// Check admits or denies one send attempt to the given recipient.
//
// Both window counters are incremented in a single MULTI/EXEC round trip
// (increment plus expiry for each window); two round trips would let
// concurrent callers read stale windows. The comparison is against the
// post-increment value, so at most one over-threshold request is counted
// before denials begin — an accepted bounded overshoot.
//
// If the counter store is unreachable or slow, the limiter fails open:
// blocking all sending over an infrastructure outage is worse than
// briefly bypassing throttling.
func (l *Limiter) Check(ctx context.Context, recipientEmail string) Decision {
	domain := ExtractDomain(recipientEmail)
	limit := l.limitFor(domain)
	now := l.now()

	secKey := fmt.Sprintf("ratelimit:%s:sec:%d", domain, now.Unix())
	minKey := fmt.Sprintf("ratelimit:%s:min:%d", domain, now.Unix()/60)

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	var secCount, minCount *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		secCount = pipe.Incr(ctx, secKey)
		pipe.Expire(ctx, secKey, time.Second)
		minCount = pipe.Incr(ctx, minKey)
		pipe.Expire(ctx, minKey, time.Minute)
		return nil
	})
	if err != nil {
		l.log.Warn("counter store unavailable, failing open", "domain", domain, "error", err)
		return Decision{Allowed: true, Domain: domain}
	}

	if secCount.Val() > int64(limit.PerSecond) {
		return Decision{Domain: domain, RetryAfterMs: 1000}
	}
	if minCount.Val() > int64(limit.PerMinute) {
		return Decision{Domain: domain, RetryAfterMs: minuteRemaining(now)}
	}
	return Decision{Allowed: true, Domain: domain}
}

// LimitFor returns the ceiling that applies to an email's domain.
func (l *Limiter) LimitFor(recipientEmail string) Limit {
	return l.limitFor(ExtractDomain(recipientEmail))
}

func (l *Limiter) limitFor(domain string) Limit {
	if limit, ok := l.limits[domain]; ok {
		return limit
	}
	return l.defaultLimit
}

// minuteRemaining returns the milliseconds left in the current minute
// window, clamped to (0, 60000].
func minuteRemaining(now time.Time) int64 {
	remaining := 60_000 - now.UnixMilli()%60_000
	if remaining <= 0 {
		remaining = 60_000
	}
	return remaining
}
