package main

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/termio/termio/internal/client"
	"github.com/termio/termio/internal/frame"
)

// chatLines is the height of the chat tail above the input line.
const chatLines = 6

// feedGap separates tiled peer feeds.
const feedGap = 2

// connectionLost marks the interrupt event posted when the hub
// connection ends, as opposed to a plain redraw request.
type connectionLost struct{}

// ui renders the aggregator's projections full-screen: every peer's
// latest feed tiled across the top, the chat tail below, and one input
// line at the bottom. It owns the terminal for its whole lifetime.
type ui struct {
	screen   tcell.Screen
	client   *client.Client
	input    []rune
	finiOnce sync.Once
}

func newUI(c *client.Client) (*ui, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	u := &ui{screen: screen, client: c}
	// Redraw whenever the aggregator changes; the event queue filling up
	// just means a redraw is already pending.
	c.Aggregator().OnUpdate = func() {
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
	return u, nil
}

// run drives the event loop until the user quits or the connection
// drops. It must be called from the main goroutine.
func (u *ui) run() {
	defer u.fini()

	go func() {
		<-u.client.Done()
		_ = u.screen.PostEvent(tcell.NewEventInterrupt(connectionLost{}))
	}()

	for {
		u.draw()

		switch ev := u.screen.PollEvent().(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return
			case tcell.KeyEnter:
				if len(u.input) > 0 {
					if err := u.client.SendChat(string(u.input)); err != nil {
						return
					}
					u.input = u.input[:0]
				}
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if len(u.input) > 0 {
					u.input = u.input[:len(u.input)-1]
				}
			case tcell.KeyRune:
				u.input = append(u.input, ev.Rune())
			}
		case *tcell.EventInterrupt:
			if _, lost := ev.Data().(connectionLost); lost {
				return
			}
		case *tcell.EventResize:
			u.screen.Sync()
		}
	}
}

func (u *ui) fini() {
	u.finiOnce.Do(u.screen.Fini)
}

func (u *ui) draw() {
	u.screen.Clear()
	w, h := u.screen.Size()
	feedBottom := h - chatLines - 2

	x := 0
	for _, name := range u.client.Aggregator().Roster() {
		f, ok := u.client.Aggregator().Frame(name)
		if !ok {
			continue
		}
		u.putString(x, 0, name, tcell.StyleDefault.Bold(true), w)
		u.drawFrame(f, x, 1, w, feedBottom)
		x += int(f.Width) + feedGap
		if x >= w {
			break
		}
	}

	sep := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for sx := 0; sx < w; sx++ {
		u.screen.SetContent(sx, h-chatLines-2, tcell.RuneHLine, nil, sep)
	}

	for i, entry := range u.client.Aggregator().Chat(chatLines) {
		u.putString(0, h-chatLines-1+i, entry.Name+": "+entry.Text, tcell.StyleDefault, w)
	}

	u.putString(0, h-1, "> "+string(u.input), tcell.StyleDefault, w)
	u.screen.ShowCursor(2+len(u.input), h-1)

	u.screen.Show()
}

// drawFrame paints one feed with its top-left corner at (x0, y0),
// clipping anything that falls outside the feed area.
func (u *ui) drawFrame(f *frame.Frame, x0, y0, maxX, maxY int) {
	for y := uint16(0); y < f.Height; y++ {
		if y0+int(y) >= maxY {
			return
		}
		for x := uint16(0); x < f.Width; x++ {
			if x0+int(x) >= maxX {
				break
			}
			cell, ok := f.Cell(x, y)
			if !ok {
				continue
			}
			style := tcell.StyleDefault.Foreground(
				tcell.NewRGBColor(int32(cell.R), int32(cell.G), int32(cell.B)))
			u.screen.SetContent(x0+int(x), y0+int(y), rune(cell.Glyph), nil, style)
		}
	}
}

func (u *ui) putString(x, y int, s string, style tcell.Style, maxX int) {
	for _, r := range s {
		if x >= maxX {
			return
		}
		u.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
