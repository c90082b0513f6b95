package capture

import "time"

// patternReadDelay approximates a device's per-frame acquisition cost so
// the pattern source blocks like a real one.
const patternReadDelay = 5 * time.Millisecond

// PatternSource is a synthetic Source producing a moving color gradient.
// It stands in for a camera when no device integration is linked, and
// drives the capture tests.
type PatternSource struct {
	width  int
	height int
	tick   int
	delay  time.Duration
}

// NewPatternSource returns a pattern source at the configured geometry.
func NewPatternSource(cfg Config) (Source, error) {
	return &PatternSource{
		width:  int(cfg.Width),
		height: int(cfg.Height),
		delay:  patternReadDelay,
	}, nil
}

// ReadRaster produces the next gradient raster, shifted one step per
// call so consecutive frames visibly differ.
func (p *PatternSource) ReadRaster() ([]byte, int, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	stride := p.width * 3
	raster := make([]byte, stride*p.height)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			idx := y*stride + x*3
			raster[idx] = byte((x*255/max(p.width-1, 1) + p.tick*4) % 256)
			raster[idx+1] = byte((y*255/max(p.height-1, 1) + p.tick*2) % 256)
			raster[idx+2] = byte((x + y + p.tick) % 256)
		}
	}
	p.tick++
	return raster, stride, nil
}

// Close is a no-op; the pattern source holds no device handle.
func (p *PatternSource) Close() error { return nil }
