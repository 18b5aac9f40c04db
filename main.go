package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kapitanov/chip8/internal/hal"
	"github.com/kapitanov/chip8/internal/romwatch"
	"github.com/kapitanov/chip8/internal/tui"
	"github.com/kapitanov/chip8/internal/vm"
	"github.com/spf13/cobra"
)

const (
	backendSDL      = "sdl"
	backendTerminal = "terminal"
)

type options struct {
	verbose    bool
	backend    string
	frameDelay time.Duration
	watch      bool
	vm         vm.Config
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogger(opts.verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	flags := cmd.Flags()
	flags.StringVarP(&opts.backend, "backend", "b", backendSDL, "display and keyboard backend: sdl or terminal (redirect stderr when using terminal)")
	flags.DurationVar(&opts.frameDelay, "cycle-delay", hal.DefaultFrameDelay, "pause between cycles")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "reboot when the rom file changes")
	flags.BoolVar(&opts.vm.RealtimeTimers, "realtime-timers", false, fmt.Sprintf("tick timers at %d Hz instead of once per cycle", vm.TimerFrequency))
	flags.BoolVar(&opts.vm.SubtractNotBorrow, "sub-not-borrow", false, "set VF on subtraction when the result does not borrow (VX >= VY) instead of VX > VY")
	flags.Uint64Var(&opts.vm.Seed, "seed", 0, "seed for the random number instruction, 0 picks one at random")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		return run(args[0], opts)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "disasm PATH_TO_ROM_FILE",
		Short: "Print the instructions of a rom",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			bs, err := readROM(args[0])
			if err != nil {
				return err
			}
			return vm.Disassemble(c.OutOrStdout(), bs)
		},
	})

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func setupLogger(verbose bool) {
	loggerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if verbose {
		loggerOpts.Level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))
}

func readROM(path string) ([]byte, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load file %q: %w", path, err)
	}
	return bs, nil
}

func run(path string, opts options) error {
	bs, err := readROM(path)
	if err != nil {
		return err
	}

	machine := vm.New(opts.vm)
	if err := machine.Load(bs); err != nil {
		return fmt.Errorf("unable to load rom %q: %w", path, err)
	}

	h, shutdown, err := newBackend(opts)
	if err != nil {
		return fmt.Errorf("unable to initialize %s backend: %w", opts.backend, err)
	}
	defer shutdown()

	if opts.watch {
		w, err := romwatch.New(path)
		if err != nil {
			return fmt.Errorf("unable to watch rom %q: %w", path, err)
		}
		defer w.Close()

		h = romwatch.NewReloading(h, w.Changed())
	}

	for {
		err = machine.Run(h)

		if errors.Is(err, vm.ErrQuit) {
			return nil
		}

		if errors.Is(err, vm.ErrReboot) {
			reboot(machine, path)
			continue
		}

		return err
	}
}

// reboot reloads the rom from disk. If it cannot be loaded any more the
// previous image is restarted.
func reboot(machine *vm.VM, path string) {
	bs, err := readROM(path)
	if err == nil {
		err = machine.Load(bs)
	}
	if err != nil {
		slog.Error("reload failed, restarting previous rom", "err", err)
		machine.Reset()
	}
}

func newBackend(opts options) (vm.HAL, func(), error) {
	switch opts.backend {
	case backendSDL:
		h, err := hal.New(hal.Options{FrameDelay: opts.frameDelay})
		if err != nil {
			return nil, nil, err
		}
		return h, h.Shutdown, nil

	case backendTerminal:
		t, err := tui.New(tui.Options{FrameDelay: opts.frameDelay})
		if err != nil {
			return nil, nil, err
		}
		return t, t.Shutdown, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}
