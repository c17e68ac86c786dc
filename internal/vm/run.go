package vm

import (
	"fmt"

	"github.com/tephra-lang/tephra/internal/chunk"
	"github.com/tephra-lang/tephra/internal/debug"
	"github.com/tephra-lang/tephra/internal/value"
)

// run is the fetch-decode-execute loop. Every opcode internal/chunk
// defines has a case here; unknown opcodes are unreachable by
// construction since only this package's compiler output ever reaches
// the VM.
func (vm *VM) run() error {
	frameTop := &vm.frames[len(vm.frames)-1]

	readByte := func() byte {
		b := chunkOf(frameTop.closure.Function).Code[frameTop.ip]
		frameTop.ip++
		return b
	}
	readUint16 := func() uint16 {
		hi := readByte()
		lo := readByte()
		return uint16(hi)<<8 | uint16(lo)
	}
	readConstant := func(idx int) value.Value {
		return chunkOf(frameTop.closure.Function).Constants[idx]
	}

	for {
		if vm.Trace {
			ck := chunkOf(frameTop.closure.Function)
			debug.DisassembleInstruction(ck, frameTop.ip)
		}

		op := chunk.OpCode(readByte())
		switch op {
		case chunk.OpConstant:
			idx := int(readByte())
			vm.push(readConstant(idx))

		case chunk.OpConstantLong:
			idx := int(readUint16())
			vm.push(readConstant(idx))

		case chunk.OpNil:
			vm.push(value.NilValue)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := int(readByte())
			vm.push(vm.stack[frameTop.base+slot])

		case chunk.OpSetLocal:
			slot := int(readByte())
			vm.stack[frameTop.base+slot] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := readConstant(int(readByte())).(*value.ObjString)
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.String())
				return &RuntimeError{Message: vm.lastErr}
			}
			vm.push(v)

		case chunk.OpDefineGlobal:
			name := readConstant(int(readByte())).(*value.ObjString)
			vm.globals.Set(name, vm.pop())

		case chunk.OpSetGlobal:
			name := readConstant(int(readByte())).(*value.ObjString)
			if _, ok := vm.globals.Get(name); !ok {
				vm.runtimeError("Undefined variable '%s'.", name.String())
				return &RuntimeError{Message: vm.lastErr}
			}
			vm.globals.Set(name, vm.peek(0))

		case chunk.OpGetUpvalue:
			slot := int(readByte())
			vm.push(vm.readUpvalue(frameTop.closure.Upvalues[slot]))

		case chunk.OpSetUpvalue:
			slot := int(readByte())
			vm.writeUpvalue(frameTop.closure.Upvalues[slot], vm.peek(0))

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case chunk.OpGreater, chunk.OpLess:
			b, bOk := vm.peek(0).(value.Number)
			a, aOk := vm.peek(1).(value.Number)
			if !aOk || !bOk {
				vm.runtimeError("Operands must be numbers.")
				return &RuntimeError{Message: vm.lastErr}
			}
			vm.pop()
			vm.pop()
			if op == chunk.OpGreater {
				vm.push(value.Bool(a > b))
			} else {
				vm.push(value.Bool(a < b))
			}

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}

		case chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide:
			b, bOk := vm.peek(0).(value.Number)
			a, aOk := vm.peek(1).(value.Number)
			if !aOk || !bOk {
				vm.runtimeError("Operands must be numbers.")
				return &RuntimeError{Message: vm.lastErr}
			}
			vm.pop()
			vm.pop()
			switch op {
			case chunk.OpSubtract:
				vm.push(a - b)
			case chunk.OpMultiply:
				vm.push(a * b)
			case chunk.OpDivide:
				vm.push(a / b)
			}

		case chunk.OpNot:
			vm.push(value.Bool(!value.Truthy(vm.pop())))

		case chunk.OpNegate:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				vm.runtimeError("Operand must be a number.")
				return &RuntimeError{Message: vm.lastErr}
			}
			vm.pop()
			vm.push(-n)

		case chunk.OpPrint:
			fmt.Println(vm.pop().String())

		case chunk.OpJump:
			offset := int(readUint16())
			frameTop.ip += offset

		case chunk.OpJumpIfFalse:
			offset := int(readUint16())
			if !value.Truthy(vm.peek(0)) {
				frameTop.ip += offset
			}

		case chunk.OpLoop:
			offset := int(readUint16())
			frameTop.ip -= offset

		case chunk.OpCall:
			argc := int(readByte())
			if !vm.callValue(vm.peek(argc), argc) {
				return &RuntimeError{Message: vm.lastErr}
			}
			frameTop = &vm.frames[len(vm.frames)-1]

		case chunk.OpClosure:
			fn := readConstant(int(readByte())).(*value.ObjFunction)
			closure := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte() == 1
				index := int(readByte())
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(frameTop.base + index)
				} else {
					closure.Upvalues[i] = frameTop.closure.Upvalues[index]
				}
			}
			vm.push(closure)

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frameTop.base)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop() // the top-level script closure itself
				return nil
			}
			vm.stack = vm.stack[:frameTop.base]
			vm.push(result)
			frameTop = &vm.frames[len(vm.frames)-1]
		}
	}
}
