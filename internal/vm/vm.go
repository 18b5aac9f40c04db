package vm

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	// MaxPC is the highest address an instruction can start at.
	MaxPC = uint16(MemorySize - InstructionSize)

	flagRegister = 0x0F
)

// Config tunes behaviour the reference machine leaves open.
type Config struct {
	// RealtimeTimers stops Step from ticking the delay and sound timers once
	// per cycle. Run then ticks them at TimerFrequency of wall-clock time.
	RealtimeTimers bool

	// SubtractNotBorrow makes 8XY5 and 8XY7 set VF when the minuend is greater
	// than or equal to the subtrahend. By default VF is set only when it is
	// strictly greater.
	SubtractNotBorrow bool

	// Seed makes CXNN deterministic when non-zero.
	Seed uint64
}

type VM struct {
	cfg Config

	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint16            // Stack pointer

	pc    uint16 // Program counter
	next  uint16 // Program counter after the executing instruction
	index uint16 // Index register

	timers timers

	fb     Framebuffer
	keypad Keypad // Keypad of the running cycle

	waiting  bool           // FX0A is waiting for a key press
	waitKeys [KeyCount]bool // Keypad snapshot seen by FX0A on the previous cycle

	rng     *rand.Rand
	program []byte
}

func New(cfg Config) *VM {
	vm := &VM{cfg: cfg}
	if cfg.Seed != 0 {
		vm.rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	vm.Reset()
	return vm
}

// Display presents the framebuffer. It is called only when the framebuffer
// changed since the last presentation.
type Display interface {
	Present(fb *Framebuffer) error
}

// Keypad is a snapshot of the 16 logical keys, owned by the input backend.
type Keypad interface {
	Pressed(key Key) bool
}

type HAL interface {
	Display
	Keypad

	// Poll drains pending device events into the keypad snapshot. It returns
	// ErrQuit or ErrReboot when the user asked for it.
	Poll() error
	WaitForNextFrame() error
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Load validates program and resets the machine with it loaded at ProgramStart.
// An oversized program is rejected and leaves the machine untouched.
func (vm *VM) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrROMTooLarge, len(program), MaxProgramSize)
	}

	vm.program = program
	vm.Reset()
	return nil
}

// Reset puts the machine back into its power-on state with the loaded program.
func (vm *VM) Reset() {
	vm.pc = ProgramStart
	vm.next = ProgramStart
	vm.index = 0
	vm.sp = 0

	vm.fb.Clear()

	clear(vm.stack[:])
	clear(vm.registers[:])
	clear(vm.memory[:])
	vm.waiting = false
	clear(vm.waitKeys[:])

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(vm.memory[FontStart:], chip8Font[:])

	if len(vm.program) > 0 {
		slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(vm.program))
		copy(vm.memory[ProgramStart:], vm.program)
	}

	vm.timers = timers{}
}

func (vm *VM) PC() uint16                { return vm.pc }
func (vm *VM) Index() uint16             { return vm.index }
func (vm *VM) Register(i int) uint8      { return vm.registers[i&0x0F] }
func (vm *VM) DelayTimer() uint8         { return vm.timers.delay }
func (vm *VM) SoundTimer() uint8         { return vm.timers.sound }
func (vm *VM) Framebuffer() *Framebuffer { return &vm.fb }
func (vm *VM) StackDepth() int           { return int(vm.sp) }
func (vm *VM) WaitingForKey() bool       { return vm.waiting }

// Memory returns the byte at addr.
func (vm *VM) Memory(addr uint16) (uint8, error) {
	return vm.read(addr)
}

// TickTimers decrements the delay and sound timers once, stopping at zero.
func (vm *VM) TickTimers() {
	vm.timers.tick()
}

// Run executes cycles until the HAL reports quit or reboot, or a cycle fails.
func (vm *VM) Run(hal HAL) error {
	schedule := newTimerSchedule(time.Now())

	for {
		if err := hal.Poll(); err != nil {
			return err
		}

		if vm.cfg.RealtimeTimers {
			for n := schedule.due(time.Now()); n > 0; n-- {
				vm.TickTimers()
			}
		}

		err := vm.Step(hal, hal)
		if err != nil {
			if errors.Is(err, ErrHalted) {
				slog.Info("program halted", "pc", fmt.Sprintf("0x%04x", vm.pc))
				return vm.waitForReboot(hal)
			}

			return err
		}

		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}
	}
}

func (vm *VM) waitForReboot(hal HAL) error {
	for {
		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}

		if err := hal.Poll(); err != nil {
			return err
		}
	}
}

// Step runs one fetch, decode, execute, timer tick and present cycle.
// Fatal failures are returned as *CycleError. ErrHalted is returned after a
// complete cycle that jumped to itself.
func (vm *VM) Step(display Display, keypad Keypad) error {
	pc := vm.pc

	opcode, err := vm.fetchOpcode()
	if err != nil {
		return &CycleError{PC: pc, Err: err}
	}

	vm.keypad = keypad
	vm.next = pc + InstructionSize

	halted := false
	if err := vm.executeOpcode(opcode); err != nil {
		if !errors.Is(err, ErrHalted) {
			return &CycleError{PC: pc, Opcode: opcode, Err: err}
		}
		halted = true
	}

	if vm.next%InstructionSize != 0 || vm.next > MaxPC {
		return &CycleError{
			PC:     pc,
			Opcode: opcode,
			Err:    fmt.Errorf("%w: program counter 0x%04x", ErrOutOfBounds, vm.next),
		}
	}
	vm.pc = vm.next

	if !vm.cfg.RealtimeTimers {
		vm.TickTimers()
	}

	if vm.fb.dirty {
		if err := display.Present(&vm.fb); err != nil {
			return fmt.Errorf("present framebuffer: %w", err)
		}
		vm.fb.dirty = false
	}

	if halted {
		return ErrHalted
	}

	return nil
}

func (vm *VM) fetchOpcode() (Opcode, error) {
	hi, err := vm.read(vm.pc)
	if err != nil {
		return 0, err
	}
	lo, err := vm.read(vm.pc + 1)
	if err != nil {
		return 0, err
	}

	return Opcode(uint16(hi)<<8 | uint16(lo)), nil // Op code is two bytes, big-endian
}

func (vm *VM) pressed(key uint8) (bool, error) {
	if int(key) >= KeyCount {
		return false, fmt.Errorf("%w: key 0x%02x", ErrOutOfBounds, key)
	}
	if vm.keypad == nil {
		return false, nil
	}
	return vm.keypad.Pressed(Key(key)), nil
}

func (vm *VM) random() uint8 {
	if vm.rng != nil {
		return uint8(vm.rng.UintN(256))
	}
	return uint8(rand.IntN(256))
}
