package vm

import "fmt"

func (vm *VM) read(addr uint16) (uint8, error) {
	if int(addr) >= MemorySize {
		return 0, fmt.Errorf("%w: read at 0x%04x", ErrOutOfBounds, addr)
	}
	return vm.memory[addr], nil
}

func (vm *VM) write(addr uint16, v uint8) error {
	if int(addr) >= MemorySize {
		return fmt.Errorf("%w: write at 0x%04x", ErrOutOfBounds, addr)
	}
	vm.memory[addr] = v
	return nil
}

// readBlock returns n bytes starting at addr, or an error if any of them lies
// past the end of memory. Nothing is read on error.
func (vm *VM) readBlock(addr uint16, n int) ([]uint8, error) {
	end := int(addr) + n
	if end > MemorySize {
		return nil, fmt.Errorf("%w: read of %d bytes at 0x%04x", ErrOutOfBounds, n, addr)
	}
	return vm.memory[addr:end], nil
}

// writeBlock copies bs to memory starting at addr, or fails without writing.
func (vm *VM) writeBlock(addr uint16, bs ...uint8) error {
	end := int(addr) + len(bs)
	if end > MemorySize {
		return fmt.Errorf("%w: write of %d bytes at 0x%04x", ErrOutOfBounds, len(bs), addr)
	}
	copy(vm.memory[addr:end], bs)
	return nil
}

func (vm *VM) push(addr uint16) error {
	if int(vm.sp) >= StackSize {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, vm.sp)
	}
	vm.stack[vm.sp] = addr
	vm.sp++
	return nil
}

func (vm *VM) pop() (uint16, error) {
	if vm.sp == 0 {
		return 0, ErrStackUnderflow
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}
