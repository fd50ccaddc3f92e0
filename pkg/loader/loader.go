// Package loader supplies paged scene children on demand by evaluating
// scene scripts from disk.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/sightline/pkg/engine"
	"github.com/chazu/sightline/pkg/intersect"
	"github.com/chazu/sightline/pkg/scene"
)

const (
	// ErrTypeNotFound classifies loads of files that do not exist.
	ErrTypeNotFound = "scene_file_not_found"

	// ErrTypeEvaluation classifies files that fail to evaluate to a scene.
	ErrTypeEvaluation = "scene_file_evaluation"
)

var _ intersect.Loader = (*Loader)(nil)

// Loader evaluates scene scripts into nodes. Loaded nodes are cached by
// path unless caching is disabled, so repeated traversals see the same
// node.
type Loader struct {
	root   string
	engine *engine.Engine
	cache  bool

	mu    sync.Mutex
	nodes map[string]*scene.Node
}

// Option configures a Loader.
type Option func(*Loader)

// WithRoot resolves relative file names against dir.
func WithRoot(dir string) Option {
	return func(l *Loader) {
		l.root = dir
	}
}

// WithEngine sets the engine scripts are evaluated with.
func WithEngine(e *engine.Engine) Option {
	return func(l *Loader) {
		l.engine = e
	}
}

// WithCache enables or disables the node cache. It is on by default.
func WithCache(enabled bool) Option {
	return func(l *Loader) {
		l.cache = enabled
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		cache: true,
		nodes: make(map[string]*scene.Node),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.engine == nil {
		l.engine = engine.NewEngine()
	}
	return l
}

// Path returns where file is read from.
func (l *Loader) Path(file string) string {
	if filepath.IsAbs(file) || l.root == "" {
		return filepath.Clean(file)
	}
	return filepath.Join(l.root, file)
}

// LoadNode evaluates file and returns its root node. A script with several
// roots yields a group holding them.
func (l *Loader) LoadNode(ctx context.Context, file string) (*scene.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New("loading scene file canceled").
			WithTag("file", file).
			Wrap(err)
	}

	path := l.Path(file)
	if n := l.cached(path); n != nil {
		return n, nil
	}

	source, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New("scene file not found").
			WithType(ErrTypeNotFound).
			WithTag("path", path).
			Wrap(err)
	}
	if err != nil {
		return nil, errors.New("reading scene file failed").
			WithTag("path", path).
			Wrap(err)
	}

	logs.WithTag("path", path).Debug("evaluating scene file")
	g, evalErrs, err := l.engine.EvaluateNamed(path, string(source))
	if err != nil {
		return nil, errors.New("evaluating scene file failed").
			WithType(ErrTypeEvaluation).
			WithTag("path", path).
			Wrap(err)
	}
	if len(evalErrs) > 0 {
		return nil, errors.New("evaluating scene file failed").
			WithType(ErrTypeEvaluation).
			WithTag("path", path).
			WithTag("errors", len(evalErrs)).
			Wrap(evalErrs[0])
	}
	if len(g.Roots) == 0 {
		return nil, errors.New("scene file has no root node").
			WithType(ErrTypeEvaluation).
			WithTag("path", path)
	}

	n := g.Root()
	if len(g.Roots) > 1 {
		n.ID = scene.NodeIDFromName(path)
	}
	return l.store(path, n), nil
}

func (l *Loader) cached(path string) *scene.Node {
	if !l.cache {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nodes[path]
}

// store caches n unless another load of path won the race, in which case
// the cached node is returned.
func (l *Loader) store(path string, n *scene.Node) *scene.Node {
	if !l.cache {
		return n
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.nodes[path]; ok {
		return prev
	}
	l.nodes[path] = n
	return n
}

// Purge drops every cached node.
func (l *Loader) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = make(map[string]*scene.Node)
}
