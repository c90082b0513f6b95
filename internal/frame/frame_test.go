package frame

import (
	"bytes"
	"testing"
)

func TestLuminance(t *testing.T) {
	if got := Luminance(255, 255, 255); got != 255 {
		t.Fatalf("white luminance = %d, want 255", got)
	}
	if got := Luminance(0, 0, 0); got != 0 {
		t.Fatalf("black luminance = %d, want 0", got)
	}
	gray := Luminance(128, 128, 128)
	if gray != 128 {
		t.Fatalf("gray luminance = %d, want 128", gray)
	}
}

func TestGlyphIndexMonotonic(t *testing.T) {
	prev := -1
	for y := 0; y <= 255; y++ {
		idx := GlyphIndex(uint8(y))
		if idx < 0 || idx >= PaletteSize() {
			t.Fatalf("GlyphIndex(%d) = %d out of palette bounds", y, idx)
		}
		if idx < prev {
			t.Fatalf("GlyphIndex(%d) = %d decreased from %d", y, idx, prev)
		}
		prev = idx
	}
}

func TestGlyphForExtremes(t *testing.T) {
	if got := GlyphFor(0, 0, 0); got != ' ' {
		t.Fatalf("black glyph = %q, want space", got)
	}
	if got := GlyphFor(255, 255, 255); got != palette[len(palette)-1] {
		t.Fatalf("white glyph = %q, want densest %q", got, palette[len(palette)-1])
	}
}

func TestGlyphDeterministic(t *testing.T) {
	// Identical luminance must always yield an identical glyph.
	for y := 0; y <= 255; y++ {
		a := GlyphIndex(uint8(y))
		b := GlyphIndex(uint8(y))
		if a != b {
			t.Fatalf("GlyphIndex(%d) not deterministic: %d vs %d", y, a, b)
		}
	}
}

func TestEncodeDimensions(t *testing.T) {
	raster := make([]byte, 3*4*2)
	f := Encode(raster, 3*4, 4, 2, false)
	if f.Width != 4 || f.Height != 2 {
		t.Fatalf("frame dimensions = %dx%d, want 4x2", f.Width, f.Height)
	}
	if len(f.Data) != 4*2*4 {
		t.Fatalf("data length = %d, want %d", len(f.Data), 4*2*4)
	}
}

func TestEncodeColorsAndMono(t *testing.T) {
	raster := []byte{200, 100, 50, 0, 0, 0}
	f := Encode(raster, 6, 2, 1, false)
	c, ok := f.Cell(0, 0)
	if !ok {
		t.Fatal("cell (0,0) absent")
	}
	if c.R != 200 || c.G != 100 || c.B != 50 {
		t.Fatalf("cell color = (%d,%d,%d), want (200,100,50)", c.R, c.G, c.B)
	}
	if c.Glyph != GlyphFor(200, 100, 50) {
		t.Fatalf("cell glyph = %q, want %q", c.Glyph, GlyphFor(200, 100, 50))
	}

	m := Encode(raster, 6, 2, 1, true)
	mc, _ := m.Cell(0, 0)
	gray := Luminance(200, 100, 50)
	if mc.R != gray || mc.G != gray || mc.B != gray {
		t.Fatalf("mono cell color = (%d,%d,%d), want (%d,%d,%d)", mc.R, mc.G, mc.B, gray, gray, gray)
	}
	if mc.Glyph != c.Glyph {
		t.Fatalf("mono changed glyph: %q vs %q", mc.Glyph, c.Glyph)
	}
}

func TestEncodeShortRasterReadsBlack(t *testing.T) {
	// Raster only covers the first pixel; the rest must read as black.
	raster := []byte{255, 255, 255}
	f := Encode(raster, 6, 2, 1, false)
	c, _ := f.Cell(1, 0)
	if c.R != 0 || c.G != 0 || c.B != 0 || c.Glyph != ' ' {
		t.Fatalf("out-of-bounds pixel = %+v, want black space cell", c)
	}
}

func TestEncodeRespectsStride(t *testing.T) {
	// Two rows of one pixel each with 2 bytes of row padding.
	raster := []byte{10, 20, 30, 0, 0, 40, 50, 60, 0, 0}
	f := Encode(raster, 5, 1, 2, false)
	top, _ := f.Cell(0, 0)
	bottom, _ := f.Cell(0, 1)
	if top.R != 10 || bottom.R != 40 {
		t.Fatalf("stride ignored: top.R=%d bottom.R=%d", top.R, bottom.R)
	}
}

func TestAdjustContrastIdentity(t *testing.T) {
	raster := []byte{10, 10, 10, 0, 0, 0, 200, 150, 100, 255, 255, 255}
	f := Encode(raster, 12, 4, 1, false)
	orig := f.Clone()

	AdjustContrast(f, 1.0, 0)
	if !bytes.Equal(f.Data, orig.Data) {
		t.Fatalf("contrast=1 brightness=0 changed frame:\n got %v\nwant %v", f.Data, orig.Data)
	}
}

func TestAdjustContrastRederivesGlyph(t *testing.T) {
	raster := []byte{100, 100, 100}
	f := Encode(raster, 3, 1, 1, false)

	AdjustContrast(f, 2.0, 50)
	c, _ := f.Cell(0, 0)
	if c.Glyph != GlyphFor(c.R, c.G, c.B) {
		t.Fatalf("glyph %q out of sync with color (%d,%d,%d)", c.Glyph, c.R, c.G, c.B)
	}
	if c.R != c.G || c.G != c.B {
		t.Fatalf("uniform input became non-uniform: (%d,%d,%d)", c.R, c.G, c.B)
	}
}

func TestCellOutOfRange(t *testing.T) {
	f := New(2, 2)
	if _, ok := f.Cell(2, 0); ok {
		t.Fatal("x out of range reported present")
	}
	if _, ok := f.Cell(0, 2); ok {
		t.Fatal("y out of range reported present")
	}
	// Out-of-range writes must not panic or corrupt the grid.
	f.SetCell(5, 5, '@', 1, 2, 3)
	for _, b := range f.Data {
		if b != 0 {
			t.Fatal("out-of-range SetCell wrote data")
		}
	}
}
