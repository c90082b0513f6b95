// Package frame holds the cell-grid video frame model and the ASCII
// encoder that turns raw RGB rasters into it.
package frame

// cellSize is the per-cell byte layout: glyph, r, g, b.
const cellSize = 4

// Cell is a single grid cell: one printable glyph plus its color.
type Cell struct {
	Glyph byte
	R     uint8
	G     uint8
	B     uint8
}

// Frame is a row-major grid of cells. Data always holds exactly
// Width*Height*4 bytes, 4 per cell in (glyph, r, g, b) order.
type Frame struct {
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
	Data   []byte `json:"data"`
}

// New returns a zeroed frame of the given dimensions.
func New(width, height uint16) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Data:   make([]byte, int(width)*int(height)*cellSize),
	}
}

// SetCell writes the cell at (x, y). Out-of-range coordinates are a no-op.
func (f *Frame) SetCell(x, y uint16, glyph byte, r, g, b uint8) {
	if x >= f.Width || y >= f.Height {
		return
	}
	idx := (int(y)*int(f.Width) + int(x)) * cellSize
	if idx+cellSize > len(f.Data) {
		return
	}
	f.Data[idx] = glyph
	f.Data[idx+1] = r
	f.Data[idx+2] = g
	f.Data[idx+3] = b
}

// Cell reads the cell at (x, y). The second return value is false when the
// coordinates fall outside the grid.
func (f *Frame) Cell(x, y uint16) (Cell, bool) {
	if x >= f.Width || y >= f.Height {
		return Cell{}, false
	}
	idx := (int(y)*int(f.Width) + int(x)) * cellSize
	if idx+cellSize > len(f.Data) {
		return Cell{}, false
	}
	return Cell{
		Glyph: f.Data[idx],
		R:     f.Data[idx+1],
		G:     f.Data[idx+2],
		B:     f.Data[idx+3],
	}, true
}

// Valid reports whether the data length matches the declared dimensions.
func (f *Frame) Valid() bool {
	return len(f.Data) == int(f.Width)*int(f.Height)*cellSize
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Data: make([]byte, len(f.Data))}
	copy(c.Data, f.Data)
	return c
}
