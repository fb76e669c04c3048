package ratelimit

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// DefaultBlockMultiplier scales the window into the lockout applied after
// the limit is exceeded.
const DefaultBlockMultiplier = 2

// Profile is a window/limit pair for a class of endpoints.
type Profile struct {
	Name        string
	Window      time.Duration
	MaxRequests int
	Message     string
}

// Result reports the outcome of a single Check.
type Result struct {
	Success    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (r Result) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

// Store persists per-key counters. Hit must apply the full state machine
// atomically for the key.
type Store interface {
	Hit(ctx context.Context, key string, p Profile, blockFor time.Duration, now time.Time) (Result, error)
}

// DeniedHook observes rejected checks.
type DeniedHook func(ctx context.Context, key string, p Profile, r Result)

// Limiter applies profiles against a Store.
type Limiter struct {
	store           Store
	blockMultiplier int
	now             func() time.Time
	logger          *zap.Logger
	onDenied        DeniedHook
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithBlockMultiplier sets the lockout length as a multiple of the window.
func WithBlockMultiplier(n int) Option {
	return func(l *Limiter) {
		if n >= 1 {
			l.blockMultiplier = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger attaches a logger for store failures and denials.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithDeniedHook registers a callback fired on every rejection.
func WithDeniedHook(hook DeniedHook) Option {
	return func(l *Limiter) { l.onDenied = hook }
}

// NewLimiter builds a limiter over store.
func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:           store,
		blockMultiplier: DefaultBlockMultiplier,
		now:             time.Now,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts a request for key under profile p.
func (l *Limiter) Check(ctx context.Context, key string, p Profile) (Result, error) {
	blockFor := time.Duration(l.blockMultiplier) * p.Window
	res, err := l.store.Hit(ctx, key, p, blockFor, l.now())
	if err != nil {
		return Result{}, err
	}
	if !res.Success {
		l.logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("profile", p.Name),
			zap.Int("retry_after_seconds", res.RetryAfterSeconds()),
		)
		if l.onDenied != nil {
			l.onDenied(ctx, key, p, res)
		}
	}
	return res, nil
}

// entry is the per-key counter state.
type entry struct {
	Count      int
	ResetAt    time.Time
	Blocked    bool
	BlockUntil time.Time
}

// stale reports whether both the window and any lockout have elapsed.
func (e *entry) stale(now time.Time) bool {
	if now.Before(e.ResetAt) {
		return false
	}
	return !e.Blocked || !now.Before(e.BlockUntil)
}

// advance applies one request to e, which may be nil for an unseen key.
func advance(e *entry, now time.Time, p Profile, blockFor time.Duration) (*entry, Result) {
	if e == nil || e.stale(now) {
		e = &entry{ResetAt: now.Add(p.Window)}
	}

	if e.Blocked && now.Before(e.BlockUntil) {
		return e, denied(e, now, p)
	}

	e.Count++
	if e.Count > p.MaxRequests {
		e.Blocked = true
		e.BlockUntil = now.Add(blockFor)
		return e, denied(e, now, p)
	}

	return e, Result{
		Success:   true,
		Limit:     p.MaxRequests,
		Remaining: p.MaxRequests - e.Count,
		ResetAt:   e.ResetAt,
	}
}

func denied(e *entry, now time.Time, p Profile) Result {
	return Result{
		Success:    false,
		Limit:      p.MaxRequests,
		Remaining:  0,
		ResetAt:    e.BlockUntil,
		RetryAfter: e.BlockUntil.Sub(now),
	}
}
