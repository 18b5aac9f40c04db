package vm

import (
	"fmt"
	"testing"
)

func lit(fb *Framebuffer) map[[2]int]bool {
	m := make(map[[2]int]bool)
	for row := 0; row < ScreenHeight; row++ {
		for col := 0; col < ScreenWidth; col++ {
			if fb.Lit(row, col) {
				m[[2]int{row, col}] = true
			}
		}
	}
	return m
}

func TestFramebufferDraw(t *testing.T) {
	for _, c := range []struct {
		x, y   int
		sprite []uint8
		want   [][2]int // row, col
	}{
		{0, 0, []uint8{0x80}, [][2]int{{0, 0}}},
		{3, 4, []uint8{0xC0, 0x01}, [][2]int{{4, 3}, {4, 4}, {5, 10}}},
		// Wraps right to left.
		{62, 0, []uint8{0xF0}, [][2]int{{0, 62}, {0, 63}, {0, 0}, {0, 1}}},
		// Wraps bottom to top.
		{0, 31, []uint8{0x80, 0x80, 0x80}, [][2]int{{31, 0}, {0, 0}, {1, 0}}},
		// Coordinates beyond the screen start wrapped.
		{64 + 5, 32 + 2, []uint8{0x80}, [][2]int{{2, 5}}},
		{255, 255, []uint8{0x80}, [][2]int{{31, 63}}},
		{10, 10, nil, nil},
	} {
		t.Run(fmt.Sprintf("%d,%d", c.x, c.y), func(t *testing.T) {
			var fb Framebuffer
			if fb.Draw(c.x, c.y, c.sprite) {
				t.Errorf("collision on empty screen")
			}
			if !fb.Dirty() {
				t.Errorf("not dirty after draw")
			}

			got := lit(&fb)
			if len(got) != len(c.want) {
				t.Errorf("%d pixels lit, want %d", len(got), len(c.want))
			}
			for _, p := range c.want {
				if !got[p] {
					t.Errorf("pixel %v not lit", p)
				}
			}
		})
	}
}

func TestFramebufferCollision(t *testing.T) {
	var fb Framebuffer
	fb.Draw(0, 0, []uint8{0x80})

	// The overlapping pixel is first in the sprite; later pixels must not
	// clear the collision.
	if !fb.Draw(0, 0, []uint8{0xFF, 0xFF}) {
		t.Errorf("no collision reported")
	}
	if fb.Lit(0, 0) {
		t.Errorf("pixel (0, 0) still lit after xor")
	}
	if !fb.Lit(0, 1) || !fb.Lit(1, 7) {
		t.Errorf("new pixels not lit")
	}

	if fb.Draw(20, 20, []uint8{0xFF}) {
		t.Errorf("collision reported on blank area")
	}
}

func TestFramebufferClear(t *testing.T) {
	var fb Framebuffer
	fb.Draw(5, 5, []uint8{0xFF, 0xFF})
	fb.dirty = false

	fb.Clear()
	if !fb.Dirty() {
		t.Errorf("not dirty after clear")
	}
	if n := len(lit(&fb)); n != 0 {
		t.Errorf("%d pixels lit after clear", n)
	}
}
