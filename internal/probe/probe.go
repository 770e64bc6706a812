package probe

import (
	"context"

	"github.com/hamed0406/storewatch/internal/domain"
)

// Outcome is the result of a single store lookup.
//
// Fields:
//   - Listing: the verdict. On any failure it is domain.Listed and FailOpen is set,
//     so a network problem never reads as a removal.
//   - StatusCode: HTTP status when a response was received; 0 for transport/DNS errors.
//   - Reason: short human-readable explanation, logged by the caller.
type Outcome struct {
	Store      string
	Listing    domain.Listing
	StatusCode int
	FailOpen   bool
	Reason     string
	LatencyMS  float64
}

// Prober checks whether the app is listed on one store. It never fails;
// errors are folded into a fail-open Outcome.
type Prober interface {
	Name() string
	StoreURL() string
	Probe(ctx context.Context) Outcome
}

func failOpen(store string, status int, reason string, latency float64) Outcome {
	return Outcome{
		Store:      store,
		Listing:    domain.Listed,
		StatusCode: status,
		FailOpen:   true,
		Reason:     reason,
		LatencyMS:  latency,
	}
}
