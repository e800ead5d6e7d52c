// Package evolve searches for strong module combinations with a generational
// genetic algorithm whose fitness function is a remote scoring oracle.
package evolve

import (
	"context"
	"errors"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

// ErrInsufficientModules is returned before any generation runs when the
// candidate pool cannot fill a single combination.
var ErrInsufficientModules = errors.New("insufficient modules available")

// Oracle scores one combination of module ids.
type Oracle interface {
	Score(ctx context.Context, moduleIds []string) (domain.Scores, error)
}

// Recorder persists per-generation statistics.
type Recorder interface {
	Insert(ctx context.Context, record domain.GenerationRecord) error
}
