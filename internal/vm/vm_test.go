package vm

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"
)

// testIO is a headless display and keypad.
type testIO struct {
	keys     [KeyCount]bool
	presents int
	frame    [ScreenHeight][ScreenWidth]bool

	polls    int
	quitAt   int
	frames   int
	presentE error
}

func (io *testIO) Pressed(key Key) bool { return io.keys[key] }

func (io *testIO) Present(fb *Framebuffer) error {
	if io.presentE != nil {
		return io.presentE
	}
	io.presents++
	for row := range io.frame {
		for col := range io.frame[row] {
			io.frame[row][col] = fb.Lit(row, col)
		}
	}
	return nil
}

func (io *testIO) Poll() error {
	io.polls++
	if io.quitAt > 0 && io.polls >= io.quitAt {
		return ErrQuit
	}
	return nil
}

func (io *testIO) WaitForNextFrame() error {
	io.frames++
	return nil
}

func program(words ...uint16) []byte {
	bs := make([]byte, 0, 2*len(words))
	for _, w := range words {
		bs = append(bs, byte(w>>8), byte(w))
	}
	return bs
}

func newTestVM(t *testing.T, cfg Config, words ...uint16) *VM {
	t.Helper()
	m := New(cfg)
	if err := m.Load(program(words...)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func step(t *testing.T, m *VM, io *testIO, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := m.Step(io, io); err != nil {
			t.Fatalf("step %d at pc 0x%04x: %v", i, m.PC(), err)
		}
	}
}

func mem(t *testing.T, m *VM, addr uint16) uint8 {
	t.Helper()
	b, err := m.Memory(addr)
	if err != nil {
		t.Fatalf("Memory(0x%04x): %v", addr, err)
	}
	return b
}

func TestNew(t *testing.T) {
	m := New(Config{})

	if g, w := m.PC(), ProgramStart; g != w {
		t.Errorf("pc = 0x%04x, want 0x%04x", g, w)
	}
	for i, w := range chip8Font {
		if g := mem(t, m, FontStart+uint16(i)); g != w {
			t.Errorf("font[%d] = 0x%02x, want 0x%02x", i, g, w)
		}
	}
	for addr := uint16(len(chip8Font)); addr < MemorySize; addr++ {
		if g := mem(t, m, addr); g != 0 {
			t.Fatalf("memory[0x%04x] = 0x%02x, want 0", addr, g)
		}
	}
	for i := 0; i < RegisterCount; i++ {
		if g := m.Register(i); g != 0 {
			t.Errorf("v%x = %d, want 0", i, g)
		}
	}
}

func TestLoad(t *testing.T) {
	for _, c := range []struct {
		size int
		err  bool
	}{
		{0, false},
		{1, false},
		{MaxProgramSize - 1, false},
		{MaxProgramSize, false},
		{MaxProgramSize + 1, true},
		{MemorySize, true},
	} {
		t.Run(fmt.Sprint(c.size), func(t *testing.T) {
			m := New(Config{})
			if err := m.Load(bytes.Repeat([]byte{0xAB}, 4)); err != nil {
				t.Fatal(err)
			}

			err := m.Load(bytes.Repeat([]byte{1}, c.size))
			if c.err {
				if !errors.Is(err, ErrROMTooLarge) {
					t.Fatalf("Load error = %v, want ErrROMTooLarge", err)
				}
				// The previous program must survive a rejected load.
				if g := mem(t, m, ProgramStart); g != 0xAB {
					t.Errorf("memory[0x200] = 0x%02x after rejected load, want 0xab", g)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			for i := 0; i < MaxProgramSize; i++ {
				w := uint8(0)
				if i < c.size {
					w = 1
				}
				if g := mem(t, m, ProgramStart+uint16(i)); g != w {
					t.Fatalf("memory[0x%04x] = 0x%02x, want 0x%02x", int(ProgramStart)+i, g, w)
				}
			}
		})
	}
}

func TestReset(t *testing.T) {
	m := newTestVM(t, Config{},
		0x6A05, // mov va, 5
		0xA300, // mvi 0x300
		0x2300, // jsr 0x300
	)
	io := &testIO{}
	step(t, m, io, 3)

	m.Reset()

	if g := m.PC(); g != ProgramStart {
		t.Errorf("pc = 0x%04x, want 0x%04x", g, ProgramStart)
	}
	if g := m.Register(0xA); g != 0 {
		t.Errorf("va = %d, want 0", g)
	}
	if g := m.Index(); g != 0 {
		t.Errorf("index = 0x%04x, want 0", g)
	}
	if g := m.StackDepth(); g != 0 {
		t.Errorf("stack depth = %d, want 0", g)
	}
	if g := mem(t, m, ProgramStart); g != 0x6A {
		t.Errorf("memory[0x200] = 0x%02x, want program reloaded", g)
	}
}

func TestStepPresentsOnlyWhenDirty(t *testing.T) {
	m := newTestVM(t, Config{},
		0x6001, // mov v0, 1
		0x00E0, // cls
		0x6002, // mov v0, 2
		0xA000, // mvi 0x000
		0xD005, // sprite v0, v0, 5
		0x6003, // mov v0, 3
	)
	io := &testIO{}

	// The power-on clear is presented on the first cycle.
	wantPresents := []int{1, 2, 2, 2, 3, 3}
	for i, w := range wantPresents {
		step(t, m, io, 1)
		if io.presents != w {
			t.Errorf("after step %d presents = %d, want %d", i, io.presents, w)
		}
		if m.Framebuffer().Dirty() {
			t.Errorf("after step %d framebuffer still dirty", i)
		}
	}
}

func TestStepPresentError(t *testing.T) {
	presentErr := errors.New("window gone")
	m := newTestVM(t, Config{}, 0x00E0)
	io := &testIO{presentE: presentErr}

	if err := m.Step(io, io); !errors.Is(err, presentErr) {
		t.Fatalf("Step error = %v, want %v", err, presentErr)
	}
	if !m.Framebuffer().Dirty() {
		t.Errorf("framebuffer not dirty after failed present")
	}
}

func TestTimers(t *testing.T) {
	m := newTestVM(t, Config{},
		0x6003, // mov v0, 3
		0xF015, // sdelay v0
		0xF018, // ssound v0
		0x1206, // jmp 0x206
		0x1206,
	)
	io := &testIO{}
	step(t, m, io, 2)

	// The delay timer was set to 3 and ticked once in the same cycle.
	if g := m.DelayTimer(); g != 2 {
		t.Fatalf("delay = %d, want 2", g)
	}
	step(t, m, io, 1)
	if g := m.SoundTimer(); g != 2 {
		t.Fatalf("sound = %d, want 2", g)
	}

	for i := 0; i < 5; i++ {
		m.TickTimers()
	}
	if g, w := m.DelayTimer(), uint8(0); g != w {
		t.Errorf("delay = %d, want %d", g, w)
	}
	if g, w := m.SoundTimer(), uint8(0); g != w {
		t.Errorf("sound = %d, want %d", g, w)
	}
}

func TestRealtimeTimersDoNotTickPerCycle(t *testing.T) {
	m := newTestVM(t, Config{RealtimeTimers: true},
		0x6010, // mov v0, 16
		0xF015, // sdelay v0
		0x6000, // mov v0, 0
		0x6000, // mov v0, 0
	)
	io := &testIO{}
	step(t, m, io, 4)

	if g := m.DelayTimer(); g != 16 {
		t.Errorf("delay = %d, want 16", g)
	}
}

func TestTimerSchedule(t *testing.T) {
	start := time.Unix(1000, 0)
	s := newTimerSchedule(start)

	for _, c := range []struct {
		after time.Duration
		want  int
	}{
		{0, 0},
		{timerPeriod / 2, 0},
		{timerPeriod, 1},
		{timerPeriod + timerPeriod/2, 0},
		{2 * timerPeriod, 1},
		{12 * timerPeriod, 10},
		{time.Second + 12*timerPeriod, TimerFrequency},
	} {
		if g := s.due(start.Add(c.after)); g != c.want {
			t.Errorf("due(+%v) = %d, want %d", c.after, g, c.want)
		}
	}
}

func TestRun(t *testing.T) {
	m := newTestVM(t, Config{},
		0x7001, // add v0, 1
		0x1200, // jmp 0x200
	)
	io := &testIO{quitAt: 11}

	if err := m.Run(io); !errors.Is(err, ErrQuit) {
		t.Fatalf("Run error = %v, want ErrQuit", err)
	}
	if g := m.Register(0); g != 5 {
		t.Errorf("v0 = %d, want 5", g)
	}
	if g := io.frames; g != 10 {
		t.Errorf("frames = %d, want 10", g)
	}
}

func TestRunHalted(t *testing.T) {
	m := newTestVM(t, Config{},
		0x6007, // mov v0, 7
		0x1202, // jmp 0x202
	)
	io := &testIO{quitAt: 6}

	if err := m.Run(io); !errors.Is(err, ErrQuit) {
		t.Fatalf("Run error = %v, want ErrQuit", err)
	}
	if g := m.PC(); g != 0x202 {
		t.Errorf("pc = 0x%04x, want 0x0202", g)
	}
	if g := m.Register(0); g != 7 {
		t.Errorf("v0 = %d, want 7", g)
	}
}

func TestRunFatal(t *testing.T) {
	m := newTestVM(t, Config{}, 0xFFFF)
	io := &testIO{}

	err := m.Run(io)
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run error = %v, want *CycleError", err)
	}
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("Run error = %v, want ErrUnknownOpcode", err)
	}
}
