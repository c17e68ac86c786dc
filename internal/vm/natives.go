package vm

import (
	"fmt"
	"math"
	"time"

	"github.com/tephra-lang/tephra/internal/value"
)

// defineNatives installs the host-implemented globals every script starts
// with: clock() from spec.md §4.6; the supplemental len/type/str natives
// modeled on ion's builtinLen/builtinType/builtinString; and floor/ceil/
// sin/pi/e, adapted from the teacher's modules/math.go loadMath (the
// arity check RequireArgLen performed there is inlined per-native here,
// since this language has no module/namespace system for loadMath's
// ctx.LoadModule to register into).
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock)
	vm.defineNative("len", nativeLen)
	vm.defineNative("type", vm.nativeType)
	vm.defineNative("str", vm.nativeStr)
	vm.defineNative("floor", nativeFloor)
	vm.defineNative("ceil", nativeCeil)
	vm.defineNative("sin", nativeSin)

	piObj := vm.interner.Copy([]byte("pi"))
	vm.globals.Set(piObj, value.Number(math.Pi))
	eObj := vm.interner.Copy([]byte("e"))
	vm.globals.Set(eObj, value.Number(math.E))
}

func (vm *VM) defineNative(name string, fn value.NativeFn) {
	nameObj := vm.interner.Copy([]byte(name))
	vm.globals.Set(nameObj, &value.ObjNative{Name: name, Fn: fn})
}

// nativeClock returns elapsed wall-clock seconds, not process CPU time —
// a deliberate deviation from clox's clock()/CLOCKS_PER_SEC documented in
// DESIGN.md. Only relative differences between two calls are meaningful
// either way (spec.md §4.6).
func nativeClock(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("clock() takes no arguments.")
	}
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativeLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly one argument.")
	}
	s, ok := args[0].(*value.ObjString)
	if !ok {
		return nil, fmt.Errorf("len() argument must be a string.")
	}
	return value.Number(float64(len(s.Chars))), nil
}

func (vm *VM) nativeType(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type() takes exactly one argument.")
	}
	return vm.interner.Copy([]byte(value.TypeName(args[0]))), nil
}

func (vm *VM) nativeStr(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str() takes exactly one argument.")
	}
	return vm.interner.Copy([]byte(args[0].String())), nil
}

func nativeFloor(args []value.Value) (value.Value, error) {
	n, err := requireOneNumber("floor", args)
	if err != nil {
		return nil, err
	}
	return value.Number(math.Floor(float64(n))), nil
}

func nativeCeil(args []value.Value) (value.Value, error) {
	n, err := requireOneNumber("ceil", args)
	if err != nil {
		return nil, err
	}
	return value.Number(math.Ceil(float64(n))), nil
}

func nativeSin(args []value.Value) (value.Value, error) {
	n, err := requireOneNumber("sin", args)
	if err != nil {
		return nil, err
	}
	return value.Number(math.Sin(float64(n))), nil
}

func requireOneNumber(name string, args []value.Value) (value.Number, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s() takes exactly one argument.", name)
	}
	n, ok := args[0].(value.Number)
	if !ok {
		return 0, fmt.Errorf("%s() argument must be a number.", name)
	}
	return n, nil
}
