package interp

import (
	"fmt"
	"os"

	"ember/pkg/chunk"
	"ember/pkg/value"
)

// LoadFile reads a source file or a chunk image and returns its top-level
// function. Results are cached by content digest when the cache is enabled,
// so loading an unchanged file twice compiles it once.
func (in *Interpreter) LoadFile(path string) (*chunk.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !in.cfg.Cache.Enabled {
		return in.load(path, data)
	}

	sum := chunk.Digest(data)

	in.mu.Lock()
	cached, ok := in.cache[sum]
	in.mu.Unlock()
	if ok {
		log.Debugf("cache hit for %s", path)
		return cached, nil
	}

	fn, err := in.load(path, data)
	if err != nil {
		return nil, err
	}

	in.mu.Lock()
	in.cache[sum] = fn
	in.mu.Unlock()
	return fn, nil
}

func (in *Interpreter) load(path string, data []byte) (*chunk.Function, error) {
	if chunk.IsImage(data) {
		fn, err := chunk.UnmarshalImage(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return fn, nil
	}

	fn, err := in.Compile(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fn, nil
}

// RunFile loads path and executes it.
func (in *Interpreter) RunFile(path string) (value.Value, error) {
	fn, err := in.LoadFile(path)
	if err != nil {
		return value.Value{}, err
	}
	return in.Execute(fn)
}

// CacheLen reports how many compiled functions are cached.
func (in *Interpreter) CacheLen() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.cache)
}
