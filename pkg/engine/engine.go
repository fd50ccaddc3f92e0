// Package engine provides the Lisp evaluation engine for scene scripts.
// It wraps zygomys in a sandboxed environment and produces a scene.Graph
// from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/sightline/pkg/kernel"
	"github.com/chazu/sightline/pkg/kernel/sdfx"
	"github.com/chazu/sightline/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// defaultMeshCells is the marching cubes resolution used for scripted
// solids unless a kernel is supplied.
const defaultMeshCells = 48

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or an invalid scene.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for scene evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel  kernel.Kernel
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel sets the solid modelling kernel behind box, cylinder and
// sphere.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) {
		e.kernel = k
	}
}

// WithTimeout sets the hard limit for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.kernel == nil {
		e.kernel = sdfx.New(sdfx.WithMeshCells(defaultMeshCells))
	}
	return e
}

// Evaluate takes Lisp source code and produces a new scene.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval failure or invalid scene: returns nil graph + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Graph, []EvalError, error) {
	return e.EvaluateNamed("", source)
}

// EvaluateNamed is Evaluate with node IDs derived under namespace, so that
// scripts loaded from different files never share IDs.
func (e *Engine) EvaluateNamed(namespace, source string) (*scene.Graph, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: errors.New("panic during evaluation").
					WithTag("panic", fmt.Sprint(r))}
			}
		}()

		g, evalErrs, err := e.evaluate(namespace, source)
		ch <- evalResult{graph: g, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(namespace, source string) (*scene.Graph, []EvalError, error) {
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return scene.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder(e.kernel, namespace)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	last, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	// A script that never calls root yields its final node.
	switch last.(type) {
	case *sexpNode, *sexpSolid:
		if len(b.g.Roots) == 0 {
			n, err := b.toNode(last)
			if err != nil {
				return nil, []EvalError{{Message: err.Error()}}, nil
			}
			b.g.AddRoot(n)
		}
	}

	res := scene.Validate(b.g)
	for _, w := range res.Warnings {
		logs.WithTag("node", w.NodeID.Short()).Debug(w.Message)
	}
	if len(res.Errors) > 0 {
		evalErrs := make([]EvalError, 0, len(res.Errors))
		for _, f := range res.Errors {
			evalErrs = append(evalErrs, EvalError{Message: f.Error()})
		}
		return nil, evalErrs, nil
	}
	return b.g, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
