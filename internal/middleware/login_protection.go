package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lightsail-qbr/qbr/internal/cache"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// maxLockout caps the exponential lockout backoff.
const maxLockout = 24 * time.Hour

// maxTrackedIPs bounds the per-IP limiter map between cleanups.
const maxTrackedIPs = 10000

// LoginProtection provides combined IP rate limiting and account lockout protection.
// Account state lives in a cache.Store so that lockouts are shared between
// instances when the store is Redis.
type LoginProtection struct {
	ipLimiters *limiterCache[string]
	state      cache.Store

	maxFailedAttempts int           // Lock account after this many failures
	lockoutDuration   time.Duration // Base lockout duration (doubles with each lockout)
	attemptWindow     time.Duration // Window to count failed attempts
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before account lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protection instance backed by state.
// A nil state uses a private in-memory store.
func NewLoginProtection(cfg LoginProtectionConfig, state cache.Store) *LoginProtection {
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = 0.5
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = 5
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}
	if state == nil {
		state = cache.NewMemoryStore()
	}

	return &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		state:             state,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
	}
}

func failuresKey(account string) string { return "login:failures:" + account }
func lockKey(account string) string     { return "login:lock:" + account }
func lockoutsKey(account string) string { return "login:lockouts:" + account }

// CheckIPRateLimit checks if the IP is rate limited.
// Returns true if the request should be allowed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked checks if an account is currently locked.
// Returns (locked, remainingTime). Store errors fail open and are logged.
func (lp *LoginProtection) IsAccountLocked(ctx context.Context, account string) (bool, time.Duration) {
	remaining, err := lp.state.TTL(ctx, lockKey(account))
	if err != nil {
		slog.Error("failed to read account lock", "error", err, "account", account)
		return false, 0
	}
	if remaining == 0 {
		return false, 0
	}
	if remaining < 0 {
		// A lock without expiry should never exist; treat it as the cap.
		remaining = maxLockout
	}
	return true, remaining
}

// RecordFailedAttempt records a failed login attempt.
// Returns (locked, lockDuration) if the account is now locked.
func (lp *LoginProtection) RecordFailedAttempt(ctx context.Context, account string) (bool, time.Duration) {
	count, err := lp.state.Incr(ctx, failuresKey(account), lp.attemptWindow)
	if err != nil {
		slog.Error("failed to record login failure", "error", err, "account", account)
		return false, 0
	}
	slog.Debug("login attempt recorded", "account", account, "count", count)

	if count < int64(lp.maxFailedAttempts) {
		return false, 0
	}

	lockouts, err := lp.state.Incr(ctx, lockoutsKey(account), maxLockout)
	if err != nil {
		slog.Error("failed to record lockout", "error", err, "account", account)
		lockouts = 1
	}
	lockDuration := lp.lockDuration(lockouts)

	if err := lp.state.Set(ctx, lockKey(account), []byte("1"), lockDuration); err != nil {
		slog.Error("failed to lock account", "error", err, "account", account)
		return false, 0
	}
	if err := lp.state.Delete(ctx, failuresKey(account)); err != nil {
		slog.Error("failed to reset login failures", "error", err, "account", account)
	}

	slog.Warn("account locked due to failed attempts",
		"account", account,
		"lockouts", lockouts,
		"duration", lockDuration,
	)
	return true, lockDuration
}

// lockDuration doubles the base duration for every earlier lockout.
func (lp *LoginProtection) lockDuration(lockouts int64) time.Duration {
	d := lp.lockoutDuration
	for i := int64(1); i < lockouts; i++ {
		d *= 2
		if d >= maxLockout {
			return maxLockout
		}
	}
	return d
}

// RecordSuccessfulLogin clears failed attempt tracking for an account.
func (lp *LoginProtection) RecordSuccessfulLogin(ctx context.Context, account string) {
	if err := lp.state.Delete(ctx, failuresKey(account), lockoutsKey(account)); err != nil {
		slog.Error("failed to clear login attempts", "error", err, "account", account)
		return
	}
	slog.Debug("login attempts cleared", "account", account)
}

// GetRemainingAttempts returns the number of remaining attempts before lockout.
func (lp *LoginProtection) GetRemainingAttempts(ctx context.Context, account string) int {
	raw, err := lp.state.Get(ctx, failuresKey(account))
	if errors.Is(err, cache.ErrCacheMiss) {
		return lp.maxFailedAttempts
	}
	if err != nil {
		slog.Error("failed to read login failures", "error", err, "account", account)
		return lp.maxFailedAttempts
	}

	count, err := strconv.Atoi(string(raw))
	if err != nil {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-count, 0)
}

// Cleanup bounds the IP limiter map and drops expired account state from
// backends that do not expire keys on their own. Run it from the scheduler.
func (lp *LoginProtection) Cleanup(context.Context) error {
	if lp.ipLimiters.clearIfExceeds(maxTrackedIPs) {
		slog.Info("cleared IP rate limiters due to size")
	}
	if p, ok := lp.state.(cache.Pruner); ok {
		if n := p.Prune(); n > 0 {
			slog.Debug("pruned expired login state", "entries", n)
		}
	}
	return nil
}

// LockoutMessage formats the message shown to a locked-out user.
func LockoutMessage(remaining time.Duration) string {
	minutes := int(remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "Too many failed login attempts. Try again in 1 minute."
	}
	return fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", minutes)
}

// Middleware returns HTTP middleware for IP rate limiting on login and
// registration. Only POST requests are counted.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := util.ClientIP(r)

			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip, "path", r.URL.Path)
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
