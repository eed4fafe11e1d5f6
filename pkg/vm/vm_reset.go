package vm

// Reset returns the VM to its initial state for reuse, keeping the
// capacity of its stacks.
func (vm *VM) Reset() {
	vm.resetStack()

	// Clear globals and the identifier table
	for name := range vm.globals {
		delete(vm.globals, name)
	}
	for name := range vm.strings {
		delete(vm.strings, name)
	}

	vm.heap.Reset()
}
