package frame

// palette orders 69 printable characters from light to dark density.
// Index 0 renders luminance 0, the last index renders luminance 255.
const palette = " .'`^\",:;Il!i><~+_-?][}{1)(|\\tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$"

// Luminance computes Rec. 601 brightness from RGB, truncated to [0,255].
// Integer arithmetic keeps the mapping exact: 0.299R + 0.587G + 0.114B.
func Luminance(r, g, b uint8) uint8 {
	y := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
	if y > 255 {
		y = 255
	}
	return uint8(y)
}

// GlyphIndex maps a luminance value to a palette index. The mapping is
// monotonic and stays within palette bounds.
func GlyphIndex(y uint8) int {
	idx := int(y) * (len(palette) - 1) / 255
	if idx >= len(palette) {
		idx = len(palette) - 1
	}
	return idx
}

// GlyphFor selects the palette glyph for an RGB color.
func GlyphFor(r, g, b uint8) byte {
	return palette[GlyphIndex(Luminance(r, g, b))]
}

// PaletteSize reports the number of glyphs in the palette.
func PaletteSize() int {
	return len(palette)
}

// Encode converts a packed RGB raster into a cell frame. stride is the
// number of bytes per source row; pass 3*width for tightly packed input.
// Pixels that fall outside the raster read as black rather than failing,
// which tolerates stride or size mismatches from the video source. With
// mono set, cell colors collapse to the gray (Y,Y,Y).
//
// Encode is pure and safe to call concurrently on independent frames.
func Encode(raster []byte, stride int, width, height uint16, mono bool) *Frame {
	f := New(width, height)
	for y := 0; y < int(height); y++ {
		rowOff := y * stride
		for x := 0; x < int(width); x++ {
			idx := rowOff + x*3

			var r, g, b uint8
			if idx+2 < len(raster) {
				r, g, b = raster[idx], raster[idx+1], raster[idx+2]
			}

			glyph := GlyphFor(r, g, b)
			if mono {
				gray := Luminance(r, g, b)
				f.SetCell(uint16(x), uint16(y), glyph, gray, gray, gray)
			} else {
				f.SetCell(uint16(x), uint16(y), glyph, r, g, b)
			}
		}
	}
	return f
}

// AdjustContrast applies brightness then contrast to every cell, clamping
// each channel to [0,255], and re-derives the glyph from the adjusted
// color so glyph and color never drift apart. contrast=1, brightness=0 is
// the identity.
func AdjustContrast(f *Frame, contrast float64, brightness int) {
	for i := 0; i+cellSize <= len(f.Data); i += cellSize {
		r := adjustChannel(f.Data[i+1], contrast, brightness)
		g := adjustChannel(f.Data[i+2], contrast, brightness)
		b := adjustChannel(f.Data[i+3], contrast, brightness)

		f.Data[i] = GlyphFor(r, g, b)
		f.Data[i+1] = r
		f.Data[i+2] = g
		f.Data[i+3] = b
	}
}

func adjustChannel(v uint8, contrast float64, brightness int) uint8 {
	n := int(v) + brightness
	if n < 0 {
		n = 0
	} else if n > 255 {
		n = 255
	}
	c := (float64(n)-128)*contrast + 128
	if c < 0 {
		c = 0
	} else if c > 255 {
		c = 255
	}
	return uint8(c)
}
