// Package inference talks to the depth-estimation collaborator. It owns
// model readiness, the explicit load-retry policy, and the translation of
// raw model output into a normalized depth field.
package inference

import (
	"context"

	"github.com/papilink/relief/pkg/depth"
)

// Estimator produces a normalized depth field for a photograph. The grid
// resolution is fixed by the collaborator, not by callers.
type Estimator interface {
	// EstimateDepth runs depth inference on an encoded photograph and
	// returns a field with values normalized to [0,1].
	EstimateDepth(ctx context.Context, photo []byte) (*depth.Field, error)
	// Ready reports whether the depth model is loaded and usable.
	Ready() bool
}

// ModelNotReadyError reports use of the estimator before the depth model
// finished loading (or after it failed to load).
type ModelNotReadyError struct {
	Reason string
}

func (e *ModelNotReadyError) Error() string {
	if e.Reason == "" {
		return "depth model is not ready"
	}
	return "depth model is not ready: " + e.Reason
}
