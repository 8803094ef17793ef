package catalog

import "golang.org/x/time/rate"

// NewRateLimiter allows requestsPerSecond requests with no burst beyond a
// single request.
func NewRateLimiter(requestsPerSecond int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}
