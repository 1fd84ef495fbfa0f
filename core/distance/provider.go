package distance

import (
	"context"
	"sync"

	"github.com/cleanbear/dispatch/core/model"
)

// SentinelMinutes is the travel cost recorded when no provider answer is
// available. It keeps a run going while pushing the degraded candidate to
// the back of the selection order.
const SentinelMinutes = 9999

// Provider resolves expected door-to-door travel time between two points.
type Provider interface {
	TravelMinutes(ctx context.Context, from, to model.Coordinate) (float64, error)
}

// Geocoder resolves a street address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Coordinate, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, from, to model.Coordinate) (float64, error)

// TravelMinutes implements Provider.
func (f Func) TravelMinutes(ctx context.Context, from, to model.Coordinate) (float64, error) {
	return f(ctx, from, to)
}

// PairKey is the canonical fixture and cache key for an origin-destination
// pair, e.g. "37.49790,127.02760|37.51330,127.10010".
func PairKey(from, to model.Coordinate) string {
	return from.Key() + "|" + to.Key()
}

// Fixed is a deterministic in-memory Provider for tests and offline runs.
// Lookups hit Pairs first and fall back to Default. When Err is set every
// lookup fails with it. Safe for concurrent use.
type Fixed struct {
	Pairs   map[string]float64
	Default float64
	Err     error

	mu    sync.Mutex
	calls int
}

// TravelMinutes implements Provider.
func (f *Fixed) TravelMinutes(_ context.Context, from, to model.Coordinate) (float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	if m, ok := f.Pairs[PairKey(from, to)]; ok {
		return m, nil
	}
	return f.Default, nil
}

// Calls reports how many lookups the provider has served.
func (f *Fixed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
