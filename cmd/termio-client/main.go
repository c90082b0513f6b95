// termio-client joins a TermIO session: it captures frames from a video
// source, submits them to the hub, and renders every participant's feed
// plus the chat log in the terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/termio/termio/internal/capture"
	"github.com/termio/termio/internal/client"
	"github.com/termio/termio/internal/logger"
)

// frameSubmitInterval is how often the sender polls the capture bridge.
// The bridge's own fps cap governs the actual frame rate.
const frameSubmitInterval = 33 * time.Millisecond

func main() {
	name := flag.String("name", "", "display name (required)")
	server := flag.String("server", "ws://127.0.0.1:8080/ws", "server WebSocket URL")
	device := flag.String("device", "pattern", "video source device")
	width := flag.Uint("width", 80, "feed width in cells")
	height := flag.Uint("height", 24, "feed height in cells")
	fps := flag.Int("fps", 15, "frame rate cap, 0 for uncapped")
	mono := flag.Bool("mono", false, "grayscale feed")
	contrast := flag.Float64("contrast", 1.0, "contrast adjustment")
	brightness := flag.Int("brightness", 0, "brightness adjustment")
	logFile := flag.String("log", "termio-client.log", "log file path")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: termio-client -name <display name> [-server ws://host:port/ws]")
		os.Exit(2)
	}

	// The terminal belongs to the UI; logs go to the file only.
	logCfg := logger.DefaultConfig()
	logCfg.FilePath = *logFile
	logCfg.LogToJSON = true
	logger.Init(logCfg)

	cfg := client.DefaultConfig()
	cfg.URL = *server
	cfg.Username = *name

	agg := client.NewAggregator()
	c := client.New(cfg, agg, logger.New("client"))

	ui, err := newUI(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal init: %v\n", err)
		os.Exit(1)
	}

	if err := c.Connect(); err != nil {
		ui.fini()
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", *server, err)
		os.Exit(1)
	}

	bridge, err := capture.Start(capture.Config{
		Device:     *device,
		Width:      uint16(*width),
		Height:     uint16(*height),
		FPSCap:     *fps,
		Mono:       *mono,
		Contrast:   *contrast,
		Brightness: *brightness,
	}, openSource, logger.New("capture"))
	if err != nil {
		ui.fini()
		c.Close()
		fmt.Fprintf(os.Stderr, "start capture: %v\n", err)
		os.Exit(1)
	}

	go submitFrames(c, bridge)

	ui.run()

	bridge.Stop()
	c.Close()
}

// openSource maps a device name to a capture source. Real camera
// integrations plug in here behind capture.Opener; the built-in source
// is the synthetic test pattern.
func openSource(cfg capture.Config) (capture.Source, error) {
	switch cfg.Device {
	case "pattern", "":
		return capture.NewPatternSource(cfg)
	default:
		return nil, fmt.Errorf("unknown device %q (built-in source: pattern)", cfg.Device)
	}
}

// submitFrames forwards captured frames to the hub. The hub mirrors the
// local feed back, so the UI picks it up like any peer's.
func submitFrames(c *client.Client, bridge *capture.Bridge) {
	ticker := time.NewTicker(frameSubmitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f, ok := bridge.TryRecv()
			if !ok {
				continue
			}
			if err := c.SendFrame(f); err != nil {
				return
			}
		case <-c.Done():
			return
		}
	}
}
