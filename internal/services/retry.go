package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Retry limits shared by the external API clients.
const (
	MaxRetries     = 3
	InitialBackoff = 500 * time.Millisecond
	MaxBackoff     = 8 * time.Second
)

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, timeouts, connection errors).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{"connection reset", "connection refused", "temporary failure", "awaiting headers"} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// Retry runs fn until it succeeds, returns a non-retriable error, or the
// attempt budget is spent. Backoff doubles from InitialBackoff up to MaxBackoff.
func Retry(ctx context.Context, fn func() error) error {
	backoff := InitialBackoff
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if err = fn(); err == nil || !IsRetriable(err) {
			return err
		}
		if attempt == MaxRetries {
			break
		}
		if sleepErr := SleepWithContext(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
		if backoff > MaxBackoff {
			backoff = MaxBackoff
		}
	}
	return err
}
