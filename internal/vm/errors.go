package vm

import (
	"errors"
	"fmt"
)

var (
	ErrROMTooLarge    = errors.New("rom too large")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrOutOfBounds    = errors.New("out of bounds access")
	ErrStackOverflow  = fmt.Errorf("%w: stack overflow", ErrOutOfBounds)
	ErrStackUnderflow = fmt.Errorf("%w: stack underflow", ErrOutOfBounds)

	// ErrHalted is returned by Step when the program jumped to the
	// instruction it was executing and can make no further progress.
	ErrHalted = errors.New("program halted")

	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// CycleError is a fatal failure of the instruction at PC.
type CycleError struct {
	PC     uint16
	Opcode Opcode
	Err    error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pc=0x%04x opcode=0x%04X: %v", e.PC, uint16(e.Opcode), e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
