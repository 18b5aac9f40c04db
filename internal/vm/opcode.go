package vm

import (
	"context"
	"fmt"
	"log/slog"
)

func (vm *VM) executeOpcode(opcode Opcode) error {
	instr := Decode(opcode)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", vm.pc),
			"opcode", fmt.Sprintf("0x%04x", uint16(opcode)),
			"instr", instr.String(),
		)
	}

	return instructions[instr.Op].Execute(vm, opcode)
}

type instruction struct {
	Name    func(opcode Opcode) string
	Execute func(vm *VM, opcode Opcode) error
}

// skip advances past the next instruction in addition to the normal advance.
func (vm *VM) skip(cond bool) {
	if cond {
		vm.next += InstructionSize
	}
}

func (vm *VM) setFlag(cond bool) {
	if cond {
		vm.registers[flagRegister] = 1
	} else {
		vm.registers[flagRegister] = 0
	}
}

func nameX(mnemonic string) func(Opcode) string {
	return func(opcode Opcode) string {
		return fmt.Sprintf("%s v%x", mnemonic, opcode.X())
	}
}

func nameXY(mnemonic string) func(Opcode) string {
	return func(opcode Opcode) string {
		return fmt.Sprintf("%s v%x, v%x", mnemonic, opcode.X(), opcode.Y())
	}
}

func nameXKK(mnemonic string) func(Opcode) string {
	return func(opcode Opcode) string {
		return fmt.Sprintf("%s v%x, %d", mnemonic, opcode.X(), opcode.KK())
	}
}

func nameNNN(mnemonic string) func(Opcode) string {
	return func(opcode Opcode) string {
		return fmt.Sprintf("%s 0x%03x", mnemonic, opcode.NNN())
	}
}

// binary builds an 8XY_ instruction that stores f(VX, VY) in VX.
func binary(mnemonic string, f func(x, y uint8) uint8) instruction {
	return instruction{
		Name: nameXY(mnemonic),
		Execute: func(vm *VM, opcode Opcode) error {
			vX, vY := opcode.X(), opcode.Y()
			vm.registers[vX] = f(vm.registers[vX], vm.registers[vY])
			return nil
		},
	}
}

var instructions = [opCount]instruction{
	OpUnknown: {
		Name: func(opcode Opcode) string {
			return fmt.Sprintf("unknown 0x%04X", uint16(opcode))
		},
		Execute: func(vm *VM, opcode Opcode) error {
			return ErrUnknownOpcode
		},
	},

	// 00E0	cls	Clear the screen
	OpCls: {
		Name: func(Opcode) string { return "cls" },
		Execute: func(vm *VM, opcode Opcode) error {
			vm.fb.Clear()
			return nil
		},
	},

	// 00EE	rts	return from subroutine call
	OpRts: {
		Name: func(Opcode) string { return "rts" },
		Execute: func(vm *VM, opcode Opcode) error {
			pc, err := vm.pop()
			if err != nil {
				return err
			}
			vm.next = pc
			return nil
		},
	},

	// 1xxx	jmp xxx	jump to address xxx
	OpJmp: {
		Name: nameNNN("jmp"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.next = opcode.NNN()
			if vm.next == vm.pc {
				return ErrHalted
			}
			return nil
		},
	},

	// 2xxx	jsr xxx	jump to subroutine at address xxx
	OpJsr: {
		Name: nameNNN("jsr"),
		Execute: func(vm *VM, opcode Opcode) error {
			if err := vm.push(vm.next); err != nil {
				return err
			}
			vm.next = opcode.NNN()
			return nil
		},
	},

	// 3rxx	skeq vr,xx	skip if register r = constant
	OpSkeqImm: {
		Name: nameXKK("skeq"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.skip(vm.registers[opcode.X()] == opcode.KK())
			return nil
		},
	},

	// 4rxx	skne vr,xx	skip if register r <> constant
	OpSkneImm: {
		Name: nameXKK("skne"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.skip(vm.registers[opcode.X()] != opcode.KK())
			return nil
		},
	},

	// 5ry0	skeq vr,vy	skip if register r = register y
	OpSkeqReg: {
		Name: nameXY("skeq"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.skip(vm.registers[opcode.X()] == vm.registers[opcode.Y()])
			return nil
		},
	},

	// 6rxx	mov vr,xx	move constant to register r
	OpMovImm: {
		Name: nameXKK("mov"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.registers[opcode.X()] = opcode.KK()
			return nil
		},
	},

	// 7rxx	add vr,xx	add constant to register r	No carry generated
	OpAddImm: {
		Name: nameXKK("add"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.registers[opcode.X()] += opcode.KK()
			return nil
		},
	},

	// 8ry0	mov vr,vy	move register vy into vr
	OpMovReg: binary("mov", func(_, y uint8) uint8 { return y }),

	// 8ry1	or rx,ry	or register vy into register vx
	OpOr: binary("or", func(x, y uint8) uint8 { return x | y }),

	// 8ry2	and rx,ry	and register vy into register vx
	OpAnd: binary("and", func(x, y uint8) uint8 { return x & y }),

	// 8ry3	xor rx,ry	exclusive or register ry into register rx
	OpXor: binary("xor", func(x, y uint8) uint8 { return x ^ y }),

	// 8ry4	add vr,vy	add register vy to vr,carry in vf
	OpAddReg: {
		Name: nameXY("add"),
		Execute: func(vm *VM, opcode Opcode) error {
			vX, vY := opcode.X(), opcode.Y()
			sum := uint16(vm.registers[vX]) + uint16(vm.registers[vY])

			vm.registers[vX] = uint8(sum)
			vm.setFlag(sum > 0xFF)
			return nil
		},
	},

	// 8ry5	sub vr,vy	subtract register vy from vr, vf set to 1 if vr > vy
	OpSub: {
		Name: nameXY("sub"),
		Execute: func(vm *VM, opcode Opcode) error {
			vX, vY := opcode.X(), opcode.Y()
			x, y := vm.registers[vX], vm.registers[vY]

			vm.registers[vX] = x - y
			vm.setFlag(vm.noBorrow(x, y))
			return nil
		},
	},

	// 8r06	shr vr	shift register vr right, bit 0 goes into register vf
	OpShr: {
		Name: nameX("shr"),
		Execute: func(vm *VM, opcode Opcode) error {
			vX := opcode.X()
			x := vm.registers[vX]

			vm.registers[vX] = x >> 1
			vm.registers[flagRegister] = x & 0x1
			return nil
		},
	},

	// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr, vf set to 1 if vy > vr
	OpRsb: {
		Name: nameXY("rsb"),
		Execute: func(vm *VM, opcode Opcode) error {
			vX, vY := opcode.X(), opcode.Y()
			x, y := vm.registers[vX], vm.registers[vY]

			vm.registers[vX] = y - x
			vm.setFlag(vm.noBorrow(y, x))
			return nil
		},
	},

	// 8r0e	shl vr	shift register vr left, bit 7 goes into register vf
	OpShl: {
		Name: nameX("shl"),
		Execute: func(vm *VM, opcode Opcode) error {
			vX := opcode.X()
			x := vm.registers[vX]

			vm.registers[vX] = x << 1
			vm.registers[flagRegister] = x >> 7
			return nil
		},
	},

	// 9ry0	skne rx,ry	skip if rx register is not equal to ry register
	OpSkneReg: {
		Name: nameXY("skne"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.skip(vm.registers[opcode.X()] != vm.registers[opcode.Y()])
			return nil
		},
	},

	// axxx	mvi xxx	Load index register with constant xxx
	OpMvi: {
		Name: nameNNN("mvi"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.index = opcode.NNN()
			return nil
		},
	},

	// bxxx	jmi xxx	Jump to address xxx+register v0
	OpJmi: {
		Name: nameNNN("jmi"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.next = opcode.NNN() + uint16(vm.registers[0])
			return nil
		},
	},

	// crxx	rand vr,xxx	vr = random number masked by xxx
	OpRand: {
		Name: nameXKK("rand"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.registers[opcode.X()] = vm.random() & opcode.KK()
			return nil
		},
	},

	// drys	sprite rx,ry,s	Draw sprite at screen location rx,ry height s
	// Sprites stored in memory at location in index register, maximum 8 bits wide.
	// Wraps around the screen.
	// If when drawn, clears a pixel, vf is set to 1 otherwise it is zero.
	// All drawing is xor drawing (e.g. it toggles the screen pixels)
	OpSprite: {
		Name: func(opcode Opcode) string {
			return fmt.Sprintf("sprite v%x, v%x, %d", opcode.X(), opcode.Y(), opcode.N())
		},
		Execute: func(vm *VM, opcode Opcode) error {
			sprite, err := vm.readBlock(vm.index, int(opcode.N()))
			if err != nil {
				return err
			}

			x, y := int(vm.registers[opcode.X()]), int(vm.registers[opcode.Y()])
			vm.setFlag(vm.fb.Draw(x, y, sprite))
			return nil
		},
	},

	// ek9e	skpr k	skip if key (register rk) pressed
	OpSkpr: {
		Name: nameX("skpr"),
		Execute: func(vm *VM, opcode Opcode) error {
			pressed, err := vm.pressed(vm.registers[opcode.X()])
			if err != nil {
				return err
			}
			vm.skip(pressed)
			return nil
		},
	},

	// eka1	skup k	skip if key (register rk) not pressed
	OpSkup: {
		Name: nameX("skup"),
		Execute: func(vm *VM, opcode Opcode) error {
			pressed, err := vm.pressed(vm.registers[opcode.X()])
			if err != nil {
				return err
			}
			vm.skip(!pressed)
			return nil
		},
	},

	// fr07	gdelay vr	get delay timer into vr
	OpGdelay: {
		Name: nameX("gdelay"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.registers[opcode.X()] = vm.timers.delay
			return nil
		},
	},

	// fr0a	key vr	wait for keypress, put key in register vr
	// Completes on a released-to-pressed transition, so a key held down when
	// the wait starts has to be pressed again.
	OpKey: {
		Name: nameX("key"),
		Execute: func(vm *VM, opcode Opcode) error {
			var keys [KeyCount]bool
			for k := range keys {
				keys[k], _ = vm.pressed(uint8(k))
			}

			if vm.waiting {
				for k := range keys {
					if keys[k] && !vm.waitKeys[k] {
						vm.registers[opcode.X()] = uint8(k)
						vm.waiting = false
						return nil
					}
				}
			}

			vm.waiting = true
			vm.waitKeys = keys
			vm.next = vm.pc
			return nil
		},
	},

	// fr15	sdelay vr	set the delay timer to vr
	OpSdelay: {
		Name: nameX("sdelay"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.timers.delay = vm.registers[opcode.X()]
			return nil
		},
	},

	// fr18	ssound vr	set the sound timer to vr
	OpSsound: {
		Name: nameX("ssound"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.timers.sound = vm.registers[opcode.X()]
			return nil
		},
	},

	// fr1e	adi vr	add register vr to the index register
	OpAdi: {
		Name: nameX("adi"),
		Execute: func(vm *VM, opcode Opcode) error {
			x := uint16(vm.registers[opcode.X()])

			vm.index += x
			vm.setFlag(vm.index > 0x0FFF)
			return nil
		},
	},

	// fr29	font vr	point I to the sprite for hexadecimal character in vr	Sprite is 5 bytes high
	OpFont: {
		Name: nameX("font"),
		Execute: func(vm *VM, opcode Opcode) error {
			vm.index = FontStart + uint16(vm.registers[opcode.X()])*FontGlyphSize
			return nil
		},
	},

	// fr33	bcd vr	store the bcd representation of register vr at location I,I+1,I+2	Doesn't change I
	OpBcd: {
		Name: nameX("bcd"),
		Execute: func(vm *VM, opcode Opcode) error {
			x := vm.registers[opcode.X()]
			return vm.writeBlock(vm.index, x/100, (x/10)%10, x%10)
		},
	},

	// fr55	str v0-vr	store registers v0-vr at location I onwards	Doesn't change I
	OpStr: {
		Name: func(opcode Opcode) string {
			return fmt.Sprintf("str v0-v%x", opcode.X())
		},
		Execute: func(vm *VM, opcode Opcode) error {
			n := int(opcode.X()) + 1
			return vm.writeBlock(vm.index, vm.registers[:n]...)
		},
	},

	// fx65	ldr v0-vr	load registers v0-vr from location I onwards	Doesn't change I
	OpLdr: {
		Name: func(opcode Opcode) string {
			return fmt.Sprintf("ldr v0-v%x", opcode.X())
		},
		Execute: func(vm *VM, opcode Opcode) error {
			n := int(opcode.X()) + 1
			bs, err := vm.readBlock(vm.index, n)
			if err != nil {
				return err
			}
			copy(vm.registers[:n], bs)
			return nil
		},
	},
}

// noBorrow is the VF value of a subtraction a-b.
func (vm *VM) noBorrow(a, b uint8) bool {
	if vm.cfg.SubtractNotBorrow {
		return a >= b
	}
	return a > b
}
