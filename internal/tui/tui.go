// Package tui runs the VM display and keypad inside a terminal.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/kapitanov/chip8/internal/keymap"
	"github.com/kapitanov/chip8/internal/vm"
)

const (
	DefaultFrameDelay = 1200 * time.Microsecond

	// DefaultHoldTime is how long a key stays pressed after its last key
	// event. Terminals report presses and auto-repeats but no releases.
	DefaultHoldTime = 150 * time.Millisecond
)

var ErrNotTerminal = errors.New("stdout is not a terminal")

type Options struct {
	FrameDelay time.Duration
	HoldTime   time.Duration
}

// Terminal draws two pixel rows per character cell using half blocks.
type Terminal struct {
	screen tcell.Screen
	style  tcell.Style

	keys      keymap.Snapshot
	pressedAt [vm.KeyCount]time.Time

	events chan tcell.Event
	quit   chan struct{}

	frameDelay time.Duration
	holdTime   time.Duration
	now        func() time.Time
}

var _ vm.HAL = (*Terminal)(nil)

// New takes over the controlling terminal. Call Shutdown to restore it.
func New(opts Options) (*Terminal, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, ErrNotTerminal
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}

	return newTerminal(screen, opts)
}

func newTerminal(screen tcell.Screen, opts Options) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init terminal screen: %w", err)
	}
	slog.Debug("tui: init screen")

	t := &Terminal{
		screen: screen,
		style: tcell.StyleDefault.
			Foreground(tcell.NewHexColor(0xbea700)).
			Background(tcell.ColorBlack),
		events:     make(chan tcell.Event, 64),
		quit:       make(chan struct{}),
		frameDelay: opts.FrameDelay,
		holdTime:   opts.HoldTime,
		now:        time.Now,
	}
	if t.frameDelay <= 0 {
		t.frameDelay = DefaultFrameDelay
	}
	if t.holdTime <= 0 {
		t.holdTime = DefaultHoldTime
	}

	screen.HideCursor()
	screen.SetStyle(t.style)
	screen.Clear()

	go t.pollEvents()

	return t, nil
}

// pollEvents forwards screen events to Poll, which runs on the VM goroutine.
func (t *Terminal) pollEvents() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}

		select {
		case t.events <- ev:
		case <-t.quit:
			return
		}
	}
}

func (t *Terminal) Shutdown() {
	close(t.quit)
	t.screen.Fini()
	slog.Debug("tui: fini screen")
}

func (t *Terminal) Poll() error {
	now := t.now()

	for drained := false; !drained; {
		select {
		case ev := <-t.events:
			if err := t.processEvent(ev, now); err != nil {
				return err
			}
		default:
			drained = true
		}
	}

	for k := range t.pressedAt {
		if t.keys[k] && now.Sub(t.pressedAt[k]) > t.holdTime {
			t.keys[k] = false
		}
	}

	return nil
}

func (t *Terminal) processEvent(ev tcell.Event, now time.Time) error {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		t.screen.Sync()

	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			slog.Debug("tui: exit requested")
			return vm.ErrQuit

		case tcell.KeyBackspace, tcell.KeyBackspace2:
			slog.Debug("tui: reboot requested")
			t.keys.Reset()
			return vm.ErrReboot

		case tcell.KeyRune:
			if key, ok := keymap.Lookup(ev.Rune()); ok {
				t.keys.Set(key, true)
				t.pressedAt[key] = now
			}
		}
	}

	return nil
}

func (t *Terminal) Pressed(key vm.Key) bool {
	return t.keys.Pressed(key)
}

func (t *Terminal) Present(fb *vm.Framebuffer) error {
	for row := 0; row < vm.ScreenHeight; row += 2 {
		for col := 0; col < vm.ScreenWidth; col++ {
			t.screen.SetContent(col, row/2, halfBlock(fb.Lit(row, col), fb.Lit(row+1, col)), nil, t.style)
		}
	}

	t.screen.Show()
	return nil
}

func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}

func (t *Terminal) WaitForNextFrame() error {
	time.Sleep(t.frameDelay)
	return nil
}
