// Package keymap maps the physical keyboard onto the 16-key CHIP-8 keypad.
package keymap

import (
	"unicode"

	"github.com/kapitanov/chip8/internal/vm"
)

// Physical                Logical
// ================        =================
// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
// | q | w | e | r |       | 4 | 5 | 6 | D |
// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
// | z | x | c | v |       | A | 0 | B | F |
// ================        =================
var layout = [4][4]struct {
	physical rune
	logical  vm.Key
}{
	{{'1', vm.Key1}, {'2', vm.Key2}, {'3', vm.Key3}, {'4', vm.KeyC}},
	{{'q', vm.Key4}, {'w', vm.Key5}, {'e', vm.Key6}, {'r', vm.KeyD}},
	{{'a', vm.Key7}, {'s', vm.Key8}, {'d', vm.Key9}, {'f', vm.KeyE}},
	{{'z', vm.KeyA}, {'x', vm.Key0}, {'c', vm.KeyB}, {'v', vm.KeyF}},
}

// Lookup returns the logical key for a physical key, case-insensitively.
func Lookup(r rune) (vm.Key, bool) {
	r = unicode.ToLower(r)
	for _, row := range layout {
		for _, k := range row {
			if k.physical == r {
				return k.logical, true
			}
		}
	}
	return 0, false
}

// Physical returns every mapped physical key in layout order.
func Physical() []rune {
	rs := make([]rune, 0, vm.KeyCount)
	for _, row := range layout {
		for _, k := range row {
			rs = append(rs, k.physical)
		}
	}
	return rs
}

// Snapshot is a 16-key pressed state. The zero value has every key released.
type Snapshot [vm.KeyCount]bool

func (s *Snapshot) Pressed(key vm.Key) bool {
	return int(key) < len(s) && s[key]
}

func (s *Snapshot) Set(key vm.Key, pressed bool) {
	if int(key) < len(s) {
		s[key] = pressed
	}
}

func (s *Snapshot) Reset() {
	*s = Snapshot{}
}
