// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// RateLimitConfig configures rate limits and cooldowns for capabilities.
// The zero value disables limiting.
type RateLimitConfig struct {
	DefaultPerMinute int
	PerCapability    map[string]int
	Cooldowns        map[string]time.Duration
}

func (c RateLimitConfig) rateFor(name string) int {
	if c.PerCapability != nil {
		if rate, ok := c.PerCapability[name]; ok {
			return rate
		}
	}
	return c.DefaultPerMinute
}

func (c RateLimitConfig) cooldownFor(name string) time.Duration {
	if c.Cooldowns == nil {
		return 0
	}
	return c.Cooldowns[name]
}

// rateLimiter is a token bucket refilled continuously at the configured
// rate, plus an optional quiet period after every allowed call.
type rateLimiter struct {
	mu          sync.Mutex
	now         func() time.Time
	capacity    float64
	perSecond   float64
	tokens      float64
	last        time.Time
	cooldown    time.Duration
	nextAllowed time.Time
}

func newRateLimiter(ratePerMinute int, cooldown time.Duration) *rateLimiter {
	return newRateLimiterWithClock(ratePerMinute, cooldown, time.Now)
}

// newRateLimiterWithClock returns nil when neither a rate nor a cooldown is set.
func newRateLimiterWithClock(ratePerMinute int, cooldown time.Duration, now func() time.Time) *rateLimiter {
	if ratePerMinute <= 0 && cooldown <= 0 {
		return nil
	}
	rl := &rateLimiter{
		now:      now,
		cooldown: cooldown,
		last:     now(),
	}
	if ratePerMinute > 0 {
		rl.capacity = float64(ratePerMinute)
		rl.tokens = rl.capacity
		rl.perSecond = float64(ratePerMinute) / time.Minute.Seconds()
	}
	return rl
}

// Allow takes one token. A nil limiter allows everything.
func (r *rateLimiter) Allow() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Before(r.nextAllowed) {
		return fmt.Errorf("%w: retry after %s", ErrInCooldown, r.nextAllowed.Sub(now).Round(time.Second))
	}

	if r.capacity > 0 {
		r.tokens = math.Min(r.capacity, r.tokens+now.Sub(r.last).Seconds()*r.perSecond)
		r.last = now
		if r.tokens < 1 {
			wait := time.Duration((1 - r.tokens) / r.perSecond * float64(time.Second))
			return fmt.Errorf("%w: retry after %s", ErrRateLimited, wait.Round(time.Second))
		}
		r.tokens--
	}

	if r.cooldown > 0 {
		r.nextAllowed = now.Add(r.cooldown)
	}
	return nil
}
