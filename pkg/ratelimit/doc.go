// Package ratelimit throttles outbound calls to the license server.
//
// Two implementations share the Limiter interface:
//
// Token Bucket:
//   - Fixed capacity bucket that refills completely after a period
//   - Allows a burst followed by a quiet period
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - Used by the license client with the configured requests per minute
//
// Usage:
//
//	limiter := ratelimit.NewSlidingWindow(30, time.Minute)
//
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
package ratelimit
