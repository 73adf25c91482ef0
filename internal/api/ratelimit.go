package api

import (
	"net/http"
	"strconv"
	"time"

	"onecta_bridge/internal/types"
)

// Rate-limit response headers.
const (
	headerLimitMinute     = "X-RateLimit-Limit-minute"
	headerLimitDay        = "X-RateLimit-Limit-day"
	headerRemainingMinute = "X-RateLimit-Remaining-minute"
	headerRemainingDay    = "X-RateLimit-Remaining-day"
)

// recordRateLimits stores the counters of a response that carries them.
// Responses without rate-limit headers leave the previous values untouched.
func (c *Client) recordRateLimits(h http.Header) {
	limits, ok := parseRateLimits(h)
	if !ok {
		return
	}
	limits.UpdatedAt = time.Now()

	c.limitsMu.Lock()
	c.limits = limits
	c.limitsMu.Unlock()

	c.logger.Debug("Rate limits",
		"limit_minute", limits.LimitMinute,
		"remaining_minute", limits.RemainingMinute,
		"limit_day", limits.LimitDay,
		"remaining_day", limits.RemainingDay)
	if limits.RemainingDay == 0 || limits.RemainingMinute == 0 {
		c.logger.Warn("Gateway rate limit exhausted",
			"remaining_minute", limits.RemainingMinute,
			"remaining_day", limits.RemainingDay)
	}

	if c.observer != nil {
		c.observer.ObserveRateLimits(limits)
	}
}

func parseRateLimits(h http.Header) (types.RateLimits, bool) {
	var limits types.RateLimits
	found := false
	for header, dst := range map[string]*int{
		headerLimitMinute:     &limits.LimitMinute,
		headerLimitDay:        &limits.LimitDay,
		headerRemainingMinute: &limits.RemainingMinute,
		headerRemainingDay:    &limits.RemainingDay,
	} {
		raw := h.Get(header)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		*dst = n
		found = true
	}
	return limits, found
}
