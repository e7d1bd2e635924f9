// Package resolve implements the exists-or-create decision for remote
// resources.
//
// A resolution lists the full inventory of a resource kind, applies a
// predicate, and either returns a deterministic pick of the matches or runs
// the creation closure. Because the appliance's listings are eventually
// consistent, a just-created resource is re-polled with a bounded constant
// backoff until it becomes visible; the mutation itself is never retried.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotFoundAfterCreate is returned when a created resource never became
// visible within the polling budget. From the caller's point of view this is
// indistinguishable from a failed creation.
var ErrNotFoundAfterCreate = errors.New("resource not found after creation")

// errNotVisible drives the polling loop; it never escapes Resolve.
var errNotVisible = errors.New("not yet visible")

// Options bounds the post-creation visibility polling. The defaults give a
// total wait of roughly five seconds.
type Options struct {
	// Attempts is the number of listing attempts after creation.
	Attempts uint64
	// Interval is the fixed delay between attempts.
	Interval time.Duration
}

// DefaultOptions is the polling policy used unless a resource kind tunes it.
var DefaultOptions = Options{Attempts: 10, Interval: 500 * time.Millisecond}

func (o Options) withDefaults() Options {
	if o.Attempts == 0 {
		o.Attempts = DefaultOptions.Attempts
	}
	if o.Interval == 0 {
		o.Interval = DefaultOptions.Interval
	}
	return o
}

// ListFunc returns the full listing of a resource kind.
type ListFunc[T any] func(ctx context.Context) ([]T, error)

// MatchFunc is the idempotency predicate over a listing row.
type MatchFunc[T any] func(row T) bool

// PickFunc breaks ties when more than one row matches. It is only called
// with a non-empty slice.
type PickFunc[T any] func(rows []T) T

// CreateFunc performs the remote add mutation.
type CreateFunc func(ctx context.Context) error

// First picks the first match. This is the tie-break for kinds without a
// recency field.
func First[T any](rows []T) T { return rows[0] }

// Resolve returns the matching row, creating the resource first when no row
// matches. The boolean reports whether a creation was performed. Transport
// failures from the initial listing, the creation, or any polling attempt
// propagate immediately.
func Resolve[T any](ctx context.Context, kind string, list ListFunc[T], match MatchFunc[T], pick PickFunc[T], create CreateFunc, opts Options) (T, bool, error) {
	var zero T
	opts = opts.withDefaults()

	rows, err := list(ctx)
	if err != nil {
		return zero, false, fmt.Errorf("list %s: %w", kind, err)
	}
	if matched := filter(rows, match); len(matched) > 0 {
		return pick(matched), false, nil
	}

	if err := create(ctx); err != nil {
		return zero, false, fmt.Errorf("create %s: %w", kind, err)
	}

	var found T
	poll := func() error {
		rows, err := list(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if matched := filter(rows, match); len(matched) > 0 {
			found = pick(matched)
			return nil
		}
		return errNotVisible
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.Interval), opts.Attempts-1),
		ctx,
	)
	if err := backoff.Retry(poll, policy); err != nil {
		if errors.Is(err, errNotVisible) {
			return zero, true, fmt.Errorf("%s: %w", kind, ErrNotFoundAfterCreate)
		}
		return zero, true, fmt.Errorf("list %s after creation: %w", kind, err)
	}
	return found, true, nil
}

func filter[T any](rows []T, match MatchFunc[T]) []T {
	var out []T
	for _, row := range rows {
		if match(row) {
			out = append(out, row)
		}
	}
	return out
}
