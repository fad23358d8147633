// Package expr evaluates template expressions against a component's data
// environment. Compiled programs are cached by their exact source string in
// a bounded LRU, so steady-state rendering never recompiles.
package expr

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the compiled-program cache capacity of the default
// evaluator. Sized so typical applications never evict.
const DefaultCacheSize = 4096

// Evaluator compiles and runs expressions with a shared compile cache.
// Safe for concurrent use.
type Evaluator struct {
	cache *lru.Cache[string, *vm.Program]
}

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	cacheSize int
}

// WithCacheSize sets the compiled-program cache capacity.
func WithCacheSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	cfg := config{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	cache, _ := lru.New[string, *vm.Program](cfg.cacheSize)
	return &Evaluator{cache: cache}
}

// Eval evaluates input against env. Non-string input passes through
// unchanged. Any compile or runtime failure yields the empty string;
// expression errors are presentation bugs, not control flow.
func (e *Evaluator) Eval(input any, env map[string]any) any {
	src, ok := input.(string)
	if !ok {
		return input
	}

	program, ok := e.cache.Get(src)
	if !ok {
		var err error
		program, err = expr.Compile(src)
		if err != nil {
			return ""
		}
		e.cache.Add(src, program)
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return ""
	}
	return out
}

// EvalString evaluates input and coerces the result to a string, with
// nil mapping to "".
func (e *Evaluator) EvalString(input any, env map[string]any) string {
	return Stringify(e.Eval(input, env))
}

var (
	defaultEvaluator *Evaluator
	defaultOnce      sync.Once
)

// Default returns the process-wide shared evaluator. Its cache lives for
// the lifetime of the process.
func Default() *Evaluator {
	defaultOnce.Do(func() {
		defaultEvaluator = New()
	})
	return defaultEvaluator
}

// Eval evaluates input with the default evaluator.
func Eval(input any, env map[string]any) any {
	return Default().Eval(input, env)
}
