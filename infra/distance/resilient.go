// Package distance provides the production travel-time chain: a caching
// layer, a retrying wrapper that degrades to the sentinel cost, and an
// offline haversine estimator.
package distance

import (
	"context"
	"time"

	coredistance "github.com/cleanbear/dispatch/core/distance"
	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/metrics"
	"github.com/cleanbear/dispatch/core/model"
)

// ResilientOptions bounds the retry loop.
type ResilientOptions struct {
	// Attempts is the total number of tries, minimum 1.
	Attempts int
	// Backoff is the initial wait between tries, doubled each time.
	Backoff time.Duration
	// Timeout bounds a single attempt. Zero means no per-attempt bound.
	Timeout time.Duration
}

// Resilient retries a flaky provider and, when every attempt fails,
// returns the sentinel cost instead of an error. It is the engine-facing
// boundary of the chain: no lookup error propagates past it.
type Resilient struct {
	next coredistance.Provider
	opts ResilientOptions
	log  logger.Logger
	sink metrics.Sink
}

// NewResilient wraps next. A nil sink disables degradation metrics.
func NewResilient(next coredistance.Provider, opts ResilientOptions, log logger.Logger, sink metrics.Sink) *Resilient {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Resilient{next: next, opts: opts, log: log, sink: sink}
}

// TravelMinutes implements distance.Provider.
func (r *Resilient) TravelMinutes(ctx context.Context, from, to model.Coordinate) (float64, error) {
	backoff := r.opts.Backoff
	var lastErr error
loop:
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		m, err := r.lookup(ctx, from, to)
		if err == nil {
			return m, nil
		}
		lastErr = err
		if attempt == r.opts.Attempts {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			break loop
		case <-timer.C:
		}
		backoff *= 2
	}
	r.log.Warnf("travel lookup %s -> %s failed after %d attempts, using sentinel: %v",
		from.Key(), to.Key(), r.opts.Attempts, lastErr)
	metrics.Degrade(r.sink, "provider")
	return coredistance.SentinelMinutes, nil
}

func (r *Resilient) lookup(ctx context.Context, from, to model.Coordinate) (float64, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	return r.next.TravelMinutes(ctx, from, to)
}
