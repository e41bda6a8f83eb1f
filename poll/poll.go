// Package poll waits for an observed value to converge on an expected one.
// It is used against live pages, where hydration and client-side fetches
// settle some time after the first paint.
package poll

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Options controls the retry loop.
type Options struct {
	Retries int
	Delay   time.Duration
}

// DefaultOptions returns 30 retries every 100ms, or 100 every 500ms when
// the CI environment variable is set.
func DefaultOptions() Options {
	return defaultsFor(os.Getenv("CI") != "")
}

func defaultsFor(ci bool) Options {
	if ci {
		return Options{Retries: 100, Delay: 500 * time.Millisecond}
	}
	return Options{Retries: 30, Delay: 100 * time.Millisecond}
}

// MismatchError is returned when the value never matched.
type MismatchError struct {
	Got    string
	Want   string
	Waited time.Duration
	Err    error // last error returned by get, if any
}

func (e *MismatchError) Error() string {
	s := fmt.Sprintf("poll: %q did not equal %q in %s", e.Got, e.Want, e.Waited)
	if e.Err != nil {
		s += ": last error: " + e.Err.Error()
	}
	return s
}

func (e *MismatchError) Unwrap() error { return e.Err }

// Equal calls get until its value, formatted with fmt.Sprint, equals want's.
// It tries opts.Retries+1 times, sleeping opts.Delay between attempts.
// Zero options select DefaultOptions. A cancelled ctx stops the loop with
// ctx.Err().
func Equal[T any](ctx context.Context, get func(context.Context) (T, error), want T, opts Options) error {
	if opts.Retries <= 0 && opts.Delay <= 0 {
		opts = DefaultOptions()
	}
	wantS := fmt.Sprint(want)

	var (
		gotS    string
		lastErr error
	)
	for i := opts.Retries; i >= 0; i-- {
		got, err := get(ctx)
		lastErr = err
		if err == nil {
			gotS = fmt.Sprint(got)
			if gotS == wantS {
				return nil
			}
		}
		if i == 0 {
			break
		}

		t := time.NewTimer(opts.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return &MismatchError{
		Got:    gotS,
		Want:   wantS,
		Waited: time.Duration(opts.Retries) * opts.Delay,
		Err:    lastErr,
	}
}
