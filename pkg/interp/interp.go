// Package interp wires the lexer, compiler and virtual machine into a single
// pipeline for host programs.
package interp

import (
	"errors"
	"sync"

	"github.com/tliron/commonlog"

	"ember/pkg/chunk"
	"ember/pkg/compiler"
	"ember/pkg/config"
	"ember/pkg/value"
	"ember/pkg/vm"
)

var log = commonlog.GetLogger("ember.interp")

// Interpreter owns one VM. Compilation and the compile cache may be shared
// between goroutines; execution may not.
type Interpreter struct {
	cfg *config.Config
	vm  *vm.VM

	mu    sync.Mutex
	cache map[[32]byte]*chunk.Function
}

// New creates an interpreter. A nil cfg means config.Default().
func New(cfg *config.Config) *Interpreter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Interpreter{
		cfg:   cfg,
		vm:    vm.New(cfg.VMOptions()),
		cache: make(map[[32]byte]*chunk.Function),
	}
}

func (in *Interpreter) Config() *config.Config { return in.cfg }

func (in *Interpreter) VM() *vm.VM { return in.vm }

// Compile turns source text into a top-level function.
func (in *Interpreter) Compile(src string) (*chunk.Function, error) {
	c := compiler.Get()
	defer compiler.Put(c)
	return c.Compile(src)
}

// Execute runs a compiled function on the interpreter's VM.
func (in *Interpreter) Execute(fn *chunk.Function) (value.Value, error) {
	result, err := in.vm.Interpret(fn)
	if err != nil {
		var rerr *vm.RuntimeError
		if errors.As(err, &rerr) {
			log.Errorf("%s", rerr)
		}
		return value.Value{}, err
	}
	return result, nil
}

// Run compiles and executes src.
func (in *Interpreter) Run(src string) (value.Value, error) {
	fn, err := in.Compile(src)
	if err != nil {
		return value.Value{}, err
	}
	return in.Execute(fn)
}

// CompileImage compiles src and serializes the result.
func (in *Interpreter) CompileImage(src string) ([]byte, error) {
	fn, err := in.Compile(src)
	if err != nil {
		return nil, err
	}
	return chunk.MarshalImage(fn)
}

// RunImage verifies and executes a serialized chunk image.
func (in *Interpreter) RunImage(data []byte) (value.Value, error) {
	fn, err := chunk.UnmarshalImage(data)
	if err != nil {
		return value.Value{}, err
	}
	return in.Execute(fn)
}

// Reset clears the VM and drops every cached function.
func (in *Interpreter) Reset() {
	in.vm.Reset()

	in.mu.Lock()
	defer in.mu.Unlock()
	clear(in.cache)
}
