package engine

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/sightline/pkg/scene"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	graph  *scene.Graph
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (*scene.Graph, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, errors.New("evaluation superseded by newer request").
				WithTag("generation", gen)
		}

		return res.graph, res.errors, res.err

	case <-timer.C:
		return nil, nil, errors.New("evaluation timed out").
			WithTag("timeout", timeout.String())
	}
}
