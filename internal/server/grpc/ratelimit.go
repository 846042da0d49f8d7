package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/scsp-app/scsp-server/internal/timex"
	"golang.org/x/time/rate"
)

// Policy is a per-client request budget: Permits requests per Window.
type Policy struct {
	Name    string
	Permits int
	Window  time.Duration
}

var (
	PolicyGlobal        = Policy{Name: "global", Permits: 100, Window: time.Minute}
	PolicyAuthSensitive = Policy{Name: "auth-sensitive", Permits: 10, Window: time.Minute}
	PolicyEmailSend     = Policy{Name: "email-send", Permits: 3, Window: 2 * time.Minute}
	PolicyOtpVerify     = Policy{Name: "otp-verify", Permits: 8, Window: 5 * time.Minute}
)

// methodPolicies lists the policy applied on top of PolicyGlobal.
var methodPolicies = map[string]Policy{
	"Register":                     PolicyEmailSend,
	"RequestEmailConfirmationCode": PolicyEmailSend,
	"ForgotPassword":               PolicyEmailSend,
	"RequestPasswordResetCode":     PolicyEmailSend,
	"ConfirmEmailWithCode":         PolicyOtpVerify,
	"ResetPasswordWithCode":        PolicyOtpVerify,
	"Login":                        PolicyAuthSensitive,
	"Refresh":                      PolicyAuthSensitive,
	"Logout":                       PolicyAuthSensitive,
	"ChangePassword":               PolicyAuthSensitive,
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per (policy, client) pair.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	clock    timex.Clock
}

func NewRateLimiter(clock timex.Clock) *RateLimiter {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &RateLimiter{limiters: make(map[string]*clientLimiter), clock: clock}
}

// Allow spends one permit of p for client.
func (rl *RateLimiter) Allow(p Policy, client string) bool {
	now := rl.clock.Now()
	key := p.Name + "|" + client

	rl.mu.Lock()
	v, ok := rl.limiters[key]
	if !ok {
		v = &clientLimiter{limiter: rate.NewLimiter(rate.Every(p.Window/time.Duration(p.Permits)), p.Permits)}
		rl.limiters[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Prune drops buckets idle for longer than idle.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	cutoff := rl.clock.Now().Add(-idle)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			n++
		}
	}
	return n
}

// RunCleanup prunes idle buckets every interval until ctx is done.
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune(idle)
		}
	}
}
