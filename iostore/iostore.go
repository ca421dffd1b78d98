// Package iostore wraps instance.Save/Load in bounded exponential backoff,
// retrying the transient failures a directory-per-instance JSON layout can
// hit on shared or networked filesystems (partial writes racing a
// concurrent reader, momentary ENOSPC/EBUSY) without retrying forever.
package iostore

import (
	"time"

	"gopkg.in/cenkalti/backoff.v1"

	"go.uber.org/zap"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
)

const maxRetries = 5

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxTries(b, maxRetries)
}

// Save writes inst to dir, retrying transient failures with exponential
// backoff before giving up.
func Save(inst *instance.Instance, dir string) error {
	const op = "iostore.Save"
	attempt := 0
	err := backoff.RetryNotify(func() error {
		return inst.Save(dir)
	}, newBackOff(), func(err error, wait time.Duration) {
		attempt++
		zap.S().Warnw("iostore: save attempt failed, retrying", "dir", dir, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

// Load reads an Instance from dir, retrying transient failures with
// exponential backoff before giving up.
func Load(dir string) (*instance.Instance, error) {
	const op = "iostore.Load"
	attempt := 0
	var inst *instance.Instance
	err := backoff.RetryNotify(func() error {
		var loadErr error
		inst, loadErr = instance.Load(dir)
		return loadErr
	}, newBackOff(), func(err error, wait time.Duration) {
		attempt++
		zap.S().Warnw("iostore: load attempt failed, retrying", "dir", dir, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	return inst, nil
}
