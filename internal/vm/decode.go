package vm

// Opcode is a raw 16-bit instruction word.
type Opcode uint16

// Family is the top nibble, which selects the instruction group.
func (o Opcode) Family() uint8 { return uint8(o >> 12) }

// X is the first register operand (bits 8-11).
func (o Opcode) X() uint8 { return uint8((o & 0x0F00) >> 8) }

// Y is the second register operand (bits 4-7).
func (o Opcode) Y() uint8 { return uint8((o & 0x00F0) >> 4) }

// N is the low nibble.
func (o Opcode) N() uint8 { return uint8(o & 0x000F) }

// KK is the low byte.
func (o Opcode) KK() uint8 { return uint8(o & 0x00FF) }

// NNN is the 12-bit address.
func (o Opcode) NNN() uint16 { return uint16(o & 0x0FFF) }

// Op identifies an instruction kind.
type Op uint8

const (
	OpUnknown Op = iota
	OpCls
	OpRts
	OpJmp
	OpJsr
	OpSkeqImm
	OpSkneImm
	OpSkeqReg
	OpMovImm
	OpAddImm
	OpMovReg
	OpOr
	OpAnd
	OpXor
	OpAddReg
	OpSub
	OpShr
	OpRsb
	OpShl
	OpSkneReg
	OpMvi
	OpJmi
	OpRand
	OpSprite
	OpSkpr
	OpSkup
	OpGdelay
	OpKey
	OpSdelay
	OpSsound
	OpAdi
	OpFont
	OpBcd
	OpStr
	OpLdr

	opCount
)

// Instruction is a decoded opcode.
type Instruction struct {
	Op     Op
	Opcode Opcode
}

func (i Instruction) String() string {
	return instructions[i.Op].Name(i.Opcode)
}

// Decode maps every opcode to an instruction. Words with no defined
// instruction decode to OpUnknown.
func Decode(opcode Opcode) Instruction {
	return Instruction{Op: decodeOp(opcode), Opcode: opcode}
}

func decodeOp(opcode Opcode) Op {
	switch opcode.Family() {
	case 0x0:
		switch opcode.KK() {
		case 0xE0:
			// 00E0 - Clear screen
			return OpCls

		case 0xEE:
			// 00EE - Return from subroutine
			return OpRts
		}

	case 0x1:
		// 1NNN - Jumps to address NNN
		return OpJmp

	case 0x2:
		// 2NNN - Calls subroutine at NNN
		return OpJsr

	case 0x3:
		// 3XNN - Skips the next instruction if VX equals NN
		return OpSkeqImm

	case 0x4:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return OpSkneImm

	case 0x5:
		// 5XY0 - Skips the next instruction if VX equals VY
		return OpSkeqReg

	case 0x6:
		// 6XNN - Sets VX to NN
		return OpMovImm

	case 0x7:
		// 7XNN - Adds NN to VX
		return OpAddImm

	case 0x8:
		switch opcode.N() {
		case 0x0:
			// 8XY0 - Sets VX to the value of VY
			return OpMovReg

		case 0x1:
			// 8XY1 - Sets VX to (VX OR VY)
			return OpOr

		case 0x2:
			// 8XY2 - Sets VX to (VX AND VY)
			return OpAnd

		case 0x3:
			// 8XY3 - Sets VX to (VX XOR VY)
			return OpXor

		case 0x4:
			// 8XY4 - Adds VY to VX, VF is the carry
			return OpAddReg

		case 0x5:
			// 8XY5 - Subtracts VY from VX, VF is set when VX > VY
			return OpSub

		case 0x6:
			// 8XY6 - Shifts VX right by one, VF is the bit shifted out
			return OpShr

		case 0x7:
			// 8XY7 - Sets VX to VY minus VX, VF is set when VY > VX
			return OpRsb

		case 0xE:
			// 8XYE - Shifts VX left by one, VF is the bit shifted out
			return OpShl
		}

	case 0x9:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		return OpSkneReg

	case 0xA:
		// ANNN - Sets I to the address NNN
		return OpMvi

	case 0xB:
		// BNNN - Jumps to the address NNN plus V0
		return OpJmi

	case 0xC:
		// CXNN - Sets VX to a random number, masked by NN
		return OpRand

	case 0xD:
		// DXYN - Draws an 8xN sprite from I at (VX, VY), VF is the collision
		return OpSprite

	case 0xE:
		switch opcode.KK() {
		case 0x9E:
			// EX9E - Skips the next instruction if the key stored in VX is pressed
			return OpSkpr

		case 0xA1:
			// EXA1 - Skips the next instruction if the key stored in VX isn't pressed
			return OpSkup
		}

	case 0xF:
		switch opcode.KK() {
		case 0x07:
			// FX07 - Sets VX to the value of the delay timer
			return OpGdelay

		case 0x0A:
			// FX0A - A key press is awaited, and then stored in VX
			return OpKey

		case 0x15:
			// FX15 - Sets the delay timer to VX
			return OpSdelay

		case 0x18:
			// FX18 - Sets the sound timer to VX
			return OpSsound

		case 0x1E:
			// FX1E - Adds VX to I, VF is set when I+VX > 0xFFF
			return OpAdi

		case 0x29:
			// FX29 - Sets I to the font sprite for the digit in VX
			return OpFont

		case 0x33:
			// FX33 - Stores the BCD representation of VX at I, I+1 and I+2
			return OpBcd

		case 0x55:
			// FX55 - Stores V0 to VX in memory starting at address I
			return OpStr

		case 0x65:
			// FX65 - Reads memory starting at address I into V0 to VX
			return OpLdr
		}
	}

	return OpUnknown
}
