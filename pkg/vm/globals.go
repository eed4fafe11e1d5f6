package vm

import "ember/pkg/value"

// Intern returns the canonical copy of name, storing it on first use.
func (vm *VM) Intern(name string) string {
	if canonical, ok := vm.strings[name]; ok {
		return canonical
	}
	vm.strings[name] = name
	return name
}

// SetGlobal binds name in the globals table. It reports whether the name
// was new.
func (vm *VM) SetGlobal(name string, v value.Value) bool {
	name = vm.Intern(name)
	_, exists := vm.globals[name]
	vm.globals[name] = v
	return !exists
}

func (vm *VM) Global(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// DeleteGlobal removes name and reports whether it was bound.
func (vm *VM) DeleteGlobal(name string) bool {
	if _, ok := vm.globals[name]; !ok {
		return false
	}
	delete(vm.globals, name)
	return true
}
