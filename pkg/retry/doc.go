// Package retry provides backoff and retry logic for transient failures in
// network calls, such as the license server check.
//
// Basic usage:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return call(ctx)
//	}, nil)
//
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		RetryIf:     retry.DefaultRetryIf,
//	}
//	ok, err := retry.DoWithResult(ctx, check, cfg)
//
// Typed errors from scrapeguard/pkg/errors decide what is retried: network,
// rate limit and server errors are; auth, config and not found errors are
// not. ErrorTypeBackoff.For can be set as Config.BackoffFor to wait longer
// after a rate limit than after a dropped connection.
package retry
