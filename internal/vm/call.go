package vm

import "github.com/tephra-lang/tephra/internal/value"

// callValue dispatches a call to whatever is callable — a closure or a
// native function — reporting a runtime error for anything else (spec.md
// §4.5 "Calls").
func (vm *VM) callValue(callee value.Value, argc int) bool {
	switch c := callee.(type) {
	case *value.ObjClosure:
		return vm.call(c, argc)
	case *value.ObjNative:
		args := make([]value.Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		vm.stack = vm.stack[:len(vm.stack)-argc-1]
		result, err := c.Fn(args)
		if err != nil {
			vm.runtimeError(err.Error())
			return false
		}
		vm.push(result)
		return true
	default:
		vm.runtimeError("Can only call functions.")
		return false
	}
}

// call pushes a new frame for closure, checking arity and the
// MaxFrames-deep call-depth limit (spec.md §4.5).
func (vm *VM) call(closure *value.ObjClosure, argc int) bool {
	fn := closure.Function
	if argc != fn.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argc)
		return false
	}
	if len(vm.frames) >= MaxFrames {
		vm.runtimeError("Stack overflow.")
		return false
	}

	vm.frames = append(vm.frames, frame{
		closure: closure,
		ip:      0,
		base:    len(vm.stack) - argc - 1,
	})
	return true
}

// add implements OP_ADD's two overloads: numeric addition and string
// concatenation (spec.md §4.5 "ADD"). Concatenation interns its result
// through Take, since the freshly built buffer belongs solely to this
// operation.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch bv := b.(type) {
	case value.Number:
		av, ok := a.(value.Number)
		if !ok {
			vm.runtimeError("Operands must be two numbers or two strings.")
			return &RuntimeError{Message: vm.lastErr}
		}
		vm.pop()
		vm.pop()
		vm.push(av + bv)
		return nil
	case *value.ObjString:
		av, ok := a.(*value.ObjString)
		if !ok {
			vm.runtimeError("Operands must be two numbers or two strings.")
			return &RuntimeError{Message: vm.lastErr}
		}
		vm.pop()
		vm.pop()
		combined := make([]byte, 0, len(av.Chars)+len(bv.Chars))
		combined = append(combined, av.Chars...)
		combined = append(combined, bv.Chars...)
		vm.push(vm.interner.Take(combined))
		return nil
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
		return &RuntimeError{Message: vm.lastErr}
	}
}

// ---- upvalues ---------------------------------------------------------------

// captureUpvalue returns the open upvalue aliasing stack slot, reusing an
// existing one if the sorted open-upvalue list already has it (spec.md
// §4.5 "Capturing an upvalue").
func (vm *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalue

	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}

	created := &value.ObjUpvalue{Slot: slot, IsOpen: true, Next: cur}
	if prev == nil {
		vm.openUpvalue = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose Slot is at or above
// fromSlot, copying the stack value into the upvalue's own storage so it
// outlives the frame being popped (spec.md §4.5 "Closing upvalues").
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalue != nil && vm.openUpvalue.Slot >= fromSlot {
		uv := vm.openUpvalue
		uv.Closed = vm.stack[uv.Slot]
		uv.IsOpen = false
		vm.openUpvalue = uv.Next
	}
}

func (vm *VM) readUpvalue(uv *value.ObjUpvalue) value.Value {
	if uv.IsOpen {
		return vm.stack[uv.Slot]
	}
	return uv.Closed
}

func (vm *VM) writeUpvalue(uv *value.ObjUpvalue, v value.Value) {
	if uv.IsOpen {
		vm.stack[uv.Slot] = v
		return
	}
	uv.Closed = v
}
