package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// DefaultBarInterval is the bar length used when none is configured.
const DefaultBarInterval = time.Minute

// WaitDuration returns how long to sleep until the bar after lastBar is due.
// It is never negative.
func WaitDuration(lastBar, now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = DefaultBarInterval
	}

	wait := lastBar.Add(interval).Sub(now)
	if wait < 0 {
		return 0
	}

	return wait
}

// ParseInterval converts a bar interval such as "1m" or "1h" to a duration.
func ParseInterval(interval string) (time.Duration, error) {
	switch interval {
	case "":
		return DefaultBarInterval, nil
	case "1d":
		return 24 * time.Hour, nil
	case "1w":
		return 7 * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidTimespan, err, "invalid bar interval %q", interval)
	}

	if d < time.Minute {
		return 0, errors.Newf(errors.ErrCodeInvalidTimespan, "bar interval %q is shorter than one minute", interval)
	}

	return d, nil
}

// Frequency converts a bar interval to a price history frequency.
func Frequency(interval time.Duration) (string, int) {
	switch {
	case interval >= 7*24*time.Hour && interval%(7*24*time.Hour) == 0:
		return "weekly", int(interval / (7 * 24 * time.Hour))
	case interval >= 24*time.Hour && interval%(24*time.Hour) == 0:
		return "daily", int(interval / (24 * time.Hour))
	default:
		minutes := int(interval / time.Minute)
		if minutes <= 0 {
			minutes = 1
		}

		return "minute", minutes
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
