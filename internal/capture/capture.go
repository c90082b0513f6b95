// Package capture bridges a blocking video producer to the async side of
// a TermIO client: a dedicated goroutine runs the acquire/decode/encode
// cycle and hands finished frames through a small bounded channel.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/termio/termio/internal/frame"
	"github.com/termio/termio/internal/logger"
)

// frameBuffer is the capacity of the producer/consumer channel. The
// producer blocks when it is full, which backpressures the capture loop
// instead of growing memory.
const frameBuffer = 2

// ErrDecode marks a transient per-packet failure. The capture loop logs
// it and moves to the next packet; wrap it with fmt.Errorf and %w.
var ErrDecode = errors.New("frame decode failed")

// ErrClosed is returned by Recv after the bridge has shut down.
var ErrClosed = errors.New("capture bridge closed")

// Config describes the requested capture geometry and pacing.
type Config struct {
	// Device identifies the source, e.g. "/dev/video0" or "pattern".
	Device string
	// Width and Height are the target grid dimensions in cells.
	Width  uint16
	Height uint16
	// FPSCap limits produced frames per second; 0 means uncapped.
	FPSCap int
	// Mono collapses cell colors to grayscale.
	Mono bool
	// Contrast and Brightness post-process each encoded frame.
	// Contrast 1 and Brightness 0 leave frames untouched; a zero
	// Contrast is normalized to 1 so the zero value of Config is the
	// identity.
	Contrast   float64
	Brightness int
}

// Source yields raw RGB rasters on demand. ReadRaster blocks until a
// raster is available and returns the packed RGB bytes plus the row
// stride. It returns io.EOF when the stream ends and errors wrapping
// ErrDecode for failures that only spoil a single raster.
type Source interface {
	ReadRaster() (raster []byte, stride int, err error)
	Close() error
}

// Opener opens a Source for a config. The real device integration lives
// behind this seam; tests and the demo client use PatternSource.
type Opener func(Config) (Source, error)

// Bridge owns the capture goroutine and the bounded frame channel
// between it and the consumer.
type Bridge struct {
	cfg    Config
	frames chan *frame.Frame
	stop   chan struct{}
	logger *logger.Logger
}

// Start opens the source and launches the capture loop. An unopenable
// source fails immediately with the device and requested geometry in the
// error; nothing is retried. A zero cfg.Contrast is normalized to 1.
func Start(cfg Config, open Opener, log *logger.Logger) (*Bridge, error) {
	if cfg.Contrast == 0 {
		cfg.Contrast = 1
	}
	src, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open capture device %q (%dx%d): %w", cfg.Device, cfg.Width, cfg.Height, err)
	}

	b := &Bridge{
		cfg:    cfg,
		frames: make(chan *frame.Frame, frameBuffer),
		stop:   make(chan struct{}, 1),
		logger: log,
	}
	go b.loop(src)
	return b, nil
}

// loop is the producer: it may block in ReadRaster and in the frame
// channel send; nothing else in the process ever blocks on it.
func (b *Bridge) loop(src Source) {
	defer close(b.frames)
	defer src.Close()

	var interval time.Duration
	if b.cfg.FPSCap > 0 {
		interval = time.Second / time.Duration(b.cfg.FPSCap)
	}
	var lastEmit time.Time

	for {
		// Shutdown is checked once per packet; best-effort by design.
		select {
		case <-b.stop:
			return
		default:
		}

		raster, stride, err := src.ReadRaster()
		if err != nil {
			if errors.Is(err, ErrDecode) {
				b.logger.Warnf("skipping frame: %v", err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				b.logger.Errorf("capture source terminated: %v", err)
			}
			return
		}

		// Pace from the end of the previous emission so delays do not
		// compound into drift.
		if interval > 0 && !lastEmit.IsZero() {
			if remaining := interval - time.Since(lastEmit); remaining > 0 {
				time.Sleep(remaining)
			}
		}

		f := frame.Encode(raster, stride, b.cfg.Width, b.cfg.Height, b.cfg.Mono)
		if b.cfg.Contrast != 1 || b.cfg.Brightness != 0 {
			frame.AdjustContrast(f, b.cfg.Contrast, b.cfg.Brightness)
		}

		select {
		case b.frames <- f:
		case <-b.stop:
			return
		}
		lastEmit = time.Now()
	}
}

// TryRecv polls for a frame without blocking. ok is false when no frame
// is ready or the bridge has closed.
func (b *Bridge) TryRecv() (f *frame.Frame, ok bool) {
	select {
	case f, ok = <-b.frames:
		return f, ok && f != nil
	default:
		return nil, false
	}
}

// Recv blocks for the next frame, returning ErrClosed once the bridge
// has shut down.
func (b *Bridge) Recv() (*frame.Frame, error) {
	f, ok := <-b.frames
	if !ok {
		return nil, ErrClosed
	}
	return f, nil
}

// Stop asks the producer to exit. The request is a single-slot command;
// it may take up to one pending decode step to be honored.
func (b *Bridge) Stop() {
	select {
	case b.stop <- struct{}{}:
	default:
	}
}
