package vm

// Framebuffer is the 64x32 monochrome display. Coordinates wrap around both
// edges.
type Framebuffer struct {
	gfx   [ScreenWidth * ScreenHeight]uint8 // Graphics buffer
	dirty bool                              // Changed since it was last presented
}

// Lit reports whether the pixel at row, col is on.
func (fb *Framebuffer) Lit(row, col int) bool {
	return fb.gfx[getScreenAddr(col, row)] != 0
}

// Clear turns every pixel off.
func (fb *Framebuffer) Clear() {
	clear(fb.gfx[:])
	fb.dirty = true
}

func (fb *Framebuffer) Dirty() bool {
	return fb.dirty
}

// Draw XORs an 8 pixel wide sprite onto the screen with its top left corner at
// (x, y). Each byte of sprite is one row, most significant bit leftmost.
// It reports whether any lit pixel was turned off.
func (fb *Framebuffer) Draw(x, y int, sprite []uint8) bool {
	collision := false

	for row, bits := range sprite {
		const width = 8
		for col := 0; col < width; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}

			screenAddr := getScreenAddr(x+col, y+row)
			if fb.gfx[screenAddr] != 0 {
				collision = true
			}
			fb.gfx[screenAddr] ^= 1
		}
	}

	fb.dirty = true
	return collision
}

func getScreenAddr(x, y int) int {
	x %= ScreenWidth
	if x < 0 {
		x += ScreenWidth
	}
	y %= ScreenHeight
	if y < 0 {
		y += ScreenHeight
	}

	return ScreenWidth*y + x
}
