package vm

import (
	"fmt"
	"io"
)

// Disassemble writes one line per instruction word of program, addressed as
// if it were loaded at ProgramStart. A trailing odd byte is listed as data.
func Disassemble(w io.Writer, program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrROMTooLarge, len(program), MaxProgramSize)
	}

	for i := 0; i < len(program); i += InstructionSize {
		addr := int(ProgramStart) + i

		if i+1 >= len(program) {
			if _, err := fmt.Fprintf(w, "0x%04x  %02X    db 0x%02x\n", addr, program[i], program[i]); err != nil {
				return err
			}
			break
		}

		opcode := Opcode(uint16(program[i])<<8 | uint16(program[i+1]))
		if _, err := fmt.Fprintf(w, "0x%04x  %04X  %s\n", addr, uint16(opcode), Decode(opcode)); err != nil {
			return err
		}
	}

	return nil
}
