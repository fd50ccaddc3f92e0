package intersect

import (
	"context"

	"github.com/chazu/sightline/pkg/scene"
)

// Loader fetches the child of a paged LOD node that is not resident. A nil
// node with a nil error means the child is not available. Loads block the
// traversal; cancellation is up to the loader.
type Loader interface {
	LoadNode(ctx context.Context, file string) (*scene.Node, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context, file string) (*scene.Node, error)

func (f LoaderFunc) LoadNode(ctx context.Context, file string) (*scene.Node, error) {
	return f(ctx, file)
}
