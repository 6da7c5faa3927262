package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vango-dev/waypoint/pkg/router"
)

// ErrGuardRejected is the abort reason when a guard expression yields false.
var ErrGuardRejected = errors.New("manifest: guard rejected navigation")

// ErrGuardResult is returned when a guard expression yields a value that is
// neither a bool, a string nor nil.
var ErrGuardResult = errors.New("manifest: guard returned unsupported value")

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithVars exposes vars to every guard expression as `vars`.
func WithVars(vars map[string]any) CompilerOption {
	return func(c *Compiler) {
		c.vars = vars
	}
}

// WithVarsFunc computes `vars` per navigation from the guard's context.
// It takes precedence over WithVars.
func WithVarsFunc(fn func(ctx context.Context) map[string]any) CompilerOption {
	return func(c *Compiler) {
		c.varsFunc = fn
	}
}

// Compiler turns guard expressions into router guards. Compiled programs
// are cached by source text.
//
// An expression sees:
//
//	to, from  {path, fullPath, name, found, meta}
//	meta      the guarded route's own meta
//	vars      caller-supplied values
//
// and decides by its result: true or nil continue, false aborts, a string
// redirects to that path.
type Compiler struct {
	vars     map[string]any
	varsFunc func(ctx context.Context) map[string]any

	mu    sync.Mutex
	cache map[string]*vm.Program
}

// NewCompiler creates a guard compiler.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{cache: make(map[string]*vm.Program)}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Compile compiles expression into a guard. meta is the guarded route's
// meta bag.
func (c *Compiler) Compile(expression string, meta map[string]any) (router.Guard, error) {
	program, err := c.program(expression)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]any{}
	}

	return func(ctx context.Context, to, from *router.Location) router.Decision {
		env := map[string]any{
			"to":   locationEnv(to),
			"from": locationEnv(from),
			"meta": meta,
			"vars": c.varsFor(ctx),
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return router.Abort(fmt.Errorf("manifest: guard %q: %w", expression, err))
		}
		return decide(expression, out)
	}, nil
}

// Check compiles expression without building a guard.
func (c *Compiler) Check(expression string) error {
	_, err := c.program(expression)
	return err
}

func (c *Compiler) program(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("manifest: guard expression must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.cache[expression]; ok {
		return p, nil
	}

	p, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("manifest: compile guard %q: %w", expression, err)
	}
	c.cache[expression] = p
	return p, nil
}

func (c *Compiler) varsFor(ctx context.Context) map[string]any {
	if c.varsFunc != nil {
		if v := c.varsFunc(ctx); v != nil {
			return v
		}
		return map[string]any{}
	}
	if c.vars == nil {
		return map[string]any{}
	}
	return c.vars
}

func decide(expression string, out any) router.Decision {
	switch v := out.(type) {
	case nil:
		return router.Continue()
	case bool:
		if v {
			return router.Continue()
		}
		return router.Abort(fmt.Errorf("%w: %s", ErrGuardRejected, expression))
	case string:
		return router.Redirect(v)
	default:
		return router.Abort(fmt.Errorf("%w: %T from %s", ErrGuardResult, out, expression))
	}
}

// locationEnv is the view of a location exposed to expressions.
func locationEnv(loc *router.Location) map[string]any {
	if loc == nil {
		return map[string]any{"path": "", "fullPath": "", "name": "", "found": false, "meta": map[string]any{}}
	}
	name := ""
	if leaf := loc.Leaf(); leaf != nil {
		name = leaf.Name
	}
	return map[string]any{
		"path":     loc.Path,
		"fullPath": loc.FullPath,
		"name":     name,
		"found":    loc.Found(),
		"meta":     loc.Meta(),
	}
}
