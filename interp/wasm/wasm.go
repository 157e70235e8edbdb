// Package wasm evaluates fitness functions compiled to WebAssembly. A module
// exports "fitness" taking one f64 per dimension and returning one f64.
package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// ExportName is the function every fitness module must export.
const ExportName = "fitness"

// Evaluator implements core.Evaluator on top of the wazero runtime. Calls are
// serialized because a module instance is not safe for concurrent use.
type Evaluator struct {
	runtime  wazero.Runtime
	module   api.Module
	fn       api.Function
	dim      int
	mu       sync.Mutex
	params   []uint64
	closeErr error
}

// NewEvaluator compiles and instantiates wasmBytes and checks that the
// exported fitness function matches dim.
func NewEvaluator(ctx context.Context, wasmBytes []byte, dim int) (*Evaluator, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension %d < 1", core.ErrInvalidConfiguration, dim)
	}

	// Create runtime with memory and timeout limits
	config := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(64). // 64 pages = 4MB
		WithCloseOnContextDone(true)
	runtime := wazero.NewRuntimeWithConfig(ctx, config)

	// Enable WASI for modules built by standard toolchains
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to compile WASM module: %w", err)
	}
	if err := checkSignature(compiled, dim); err != nil {
		runtime.Close(ctx)
		return nil, err
	}

	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("fitness").
		WithStartFunctions())
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	return &Evaluator{
		runtime: runtime,
		module:  module,
		fn:      module.ExportedFunction(ExportName),
		dim:     dim,
		params:  make([]uint64, dim),
	}, nil
}

func checkSignature(compiled wazero.CompiledModule, dim int) error {
	def, ok := compiled.ExportedFunctions()[ExportName]
	if !ok {
		return fmt.Errorf("%w: module does not export %q", core.ErrInvalidConfiguration, ExportName)
	}
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != dim {
		return fmt.Errorf("%w: %s takes %d parameters, want %d", core.ErrInvalidConfiguration, ExportName, len(params), dim)
	}
	for i, p := range params {
		if p != api.ValueTypeF64 {
			return fmt.Errorf("%w: %s parameter %d is %s, want f64", core.ErrInvalidConfiguration, ExportName, i, api.ValueTypeName(p))
		}
	}
	if len(results) != 1 || results[0] != api.ValueTypeF64 {
		return fmt.Errorf("%w: %s must return a single f64", core.ErrInvalidConfiguration, ExportName)
	}
	return nil
}

// Dimension returns the number of parameters of the fitness function.
func (e *Evaluator) Dimension() int { return e.dim }

func (e *Evaluator) Evaluate(ctx context.Context, x []float64) (float64, error) {
	if len(x) != e.dim {
		return 0, fmt.Errorf("wasm: position of dimension %d, want %d", len(x), e.dim)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range x {
		e.params[i] = api.EncodeF64(v)
	}
	results, err := e.fn.Call(ctx, e.params...)
	if err != nil {
		return 0, fmt.Errorf("wasm: call %s: %w", ExportName, err)
	}
	return api.DecodeF64(results[0]), nil
}

// Close releases the module and the runtime.
func (e *Evaluator) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime != nil {
		e.closeErr = e.runtime.Close(ctx)
		e.runtime = nil
	}
	return e.closeErr
}
