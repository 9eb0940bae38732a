package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"cannonade/internal/game"
	"cannonade/internal/policy"
)

// statusHold is how long an event line stays on screen before the
// idle line returns.
const statusHold = 4 * time.Second

// feedFrame is one decoded wire message.
type feedFrame struct {
	hello *game.Hello
	snap  *game.Snapshot
}

// viewer renders the spectator feed into a terminal.
type viewer struct {
	screen        tcell.Screen
	width, height int

	hello    game.Hello
	snap     game.Snapshot
	haveSnap bool

	status   string
	statusAt time.Time
}

func newViewer() (*viewer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	v := &viewer{
		screen: screen,
		// Sane table until the real hello lands.
		hello: game.Hello{Width: 800, Height: 600, TickRate: 60},
	}
	v.width, v.height = screen.Size()
	return v, nil
}

// readFeed decodes wire frames and hands them to the draw loop. The
// type field picks the concrete message; anything else is skipped.
func readFeed(conn *websocket.Conn, frames chan<- feedFrame, errs chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errs <- err
			return
		}

		var probe struct {
			Type string `msgpack:"type"`
		}
		if err := msgpack.Unmarshal(data, &probe); err != nil {
			continue
		}

		switch probe.Type {
		case game.MsgTypeHello:
			var h game.Hello
			if err := msgpack.Unmarshal(data, &h); err == nil {
				frames <- feedFrame{hello: &h}
			}
		case game.MsgTypeSnapshot:
			var s game.Snapshot
			if err := msgpack.Unmarshal(data, &s); err == nil {
				frames <- feedFrame{snap: &s}
			}
		}
	}
}

func (v *viewer) apply(f feedFrame) {
	if f.hello != nil {
		v.hello = *f.hello
		v.haveSnap = false
		v.status = fmt.Sprintf("next match: %s vs %s", f.hello.Left, f.hello.Right)
		v.statusAt = time.Now()
	}
	if f.snap != nil && len(f.snap.Cannons) == 2 && len(f.snap.Score) == 2 {
		v.snap = *f.snap
		v.haveSnap = true
		for _, e := range f.snap.Events {
			if line := eventText(e); line != "" {
				v.status = line
				v.statusAt = time.Now()
			}
		}
	}
}

func eventText(e game.EventMsg) string {
	switch e.Type {
	case game.EventShot:
		return fmt.Sprintf("%s fires a %s bullet at power %d", e.Side, e.Kind, e.Power)
	case game.EventGoal:
		if e.Reason == "stalemate" {
			return fmt.Sprintf("stalemate, point to the %s side", e.Side)
		}
		return fmt.Sprintf("goal for the %s side", e.Side)
	case game.EventRound:
		return fmt.Sprintf("round %d kicks off", e.Round+1)
	case game.EventOver:
		if e.Winner == "draw" {
			return "match over: draw"
		}
		return fmt.Sprintf("match over: %s side wins", e.Winner)
	}
	return ""
}

// run is the draw loop: keys and resizes from the terminal, frames from
// the feed.
func (v *viewer) run(frames <-chan feedFrame, errs <-chan error) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			events <- v.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if quitKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				v.width, v.height = v.screen.Size()
				v.screen.Sync()
				v.draw()
			}

		case f := <-frames:
			v.apply(f)
			v.draw()

		case err := <-errs:
			return err
		}
	}
}

func quitKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return true
	}
	return ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q')
}

// Field rect inside the terminal: two header rows above, one status row
// below.
func (v *viewer) fieldRect() (x0, y0, w, h int) {
	return 1, 3, v.width - 2, v.height - 5
}

func (v *viewer) fx(x float64) int {
	x0, _, w, _ := v.fieldRect()
	cell := x0 + int(x/v.hello.Width*float64(w-1)+0.5)
	return min(max(cell, x0), x0+w-1)
}

func (v *viewer) fy(y float64) int {
	_, y0, _, h := v.fieldRect()
	cell := y0 + int(y/v.hello.Height*float64(h-1)+0.5)
	return min(max(cell, y0), y0+h-1)
}

func (v *viewer) draw() {
	v.screen.Clear()
	defer v.screen.Show()

	_, _, fw, fh := v.fieldRect()
	if fw < 10 || fh < 5 {
		v.drawText(0, 0, tcell.StyleDefault, "terminal too small")
		return
	}

	if !v.haveSnap {
		v.drawText(2, 1, tcell.StyleDefault, "waiting for the feed...")
		v.drawStatus()
		return
	}

	v.drawHeader()
	v.drawField()
	v.drawPieces()
	v.drawStatus()
}

func (v *viewer) drawHeader() {
	left, right := v.snap.Cannons[0], v.snap.Cannons[1]

	title := fmt.Sprintf("%s %d : %d %s", left.Policy, v.snap.Score[0], v.snap.Score[1], right.Policy)
	v.drawText((v.width-len(title))/2, 0, tcell.StyleDefault.Bold(true), title)

	clock := fmt.Sprintf("%4.1fs round %d", v.snap.TimeLeft, v.snap.Round+1)
	v.drawText(v.width-len(clock)-1, 0, tcell.StyleDefault, clock)

	leftLine := cannonLine(left)
	v.drawText(1, 1, tcell.StyleDefault.Foreground(tcell.ColorGreen), leftLine)
	rightLine := cannonLine(right)
	v.drawText(v.width-len(rightLine)-1, 1, tcell.StyleDefault.Foreground(tcell.ColorBlue), rightLine)
}

func cannonLine(c game.CannonView) string {
	line := fmt.Sprintf("pw %d  pr %d", c.PowerLeft, c.PrecisionLeft)
	if c.Charging {
		line += fmt.Sprintf("  charging %d/%d", c.Charge, c.Pending)
	}
	return line
}

// drawField paints the rails, the goal lines and the faint midline.
func (v *viewer) drawField() {
	x0, y0, w, h := v.fieldRect()
	rail := tcell.StyleDefault.Foreground(tcell.ColorGray)

	for x := x0; x < x0+w; x++ {
		v.screen.SetContent(x, y0, '─', nil, rail)
		v.screen.SetContent(x, y0+h-1, '─', nil, rail)
	}

	leftGoal := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	rightGoal := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	for y := y0; y < y0+h; y++ {
		v.screen.SetContent(x0, y, '│', nil, leftGoal)
		v.screen.SetContent(x0+w-1, y, '│', nil, rightGoal)
	}

	mid := v.fx(v.hello.Width / 2)
	for y := y0 + 1; y < y0+h-1; y += 2 {
		v.screen.SetContent(mid, y, '·', nil, rail)
	}
}

// drawPieces paints cannons, bullets and the ball over the field.
func (v *viewer) drawPieces() {
	for _, c := range v.snap.Cannons {
		style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
		if c.Side == "right" {
			style = tcell.StyleDefault.Foreground(tcell.ColorBlue)
		}
		v.screen.SetContent(v.fx(c.Pos.X), v.fy(c.Pos.Y), '█', nil, style)
	}

	for _, b := range v.snap.Bullets {
		style := tcell.StyleDefault.Foreground(tcell.ColorTeal)
		if b.Kind == policy.KindPower {
			style = tcell.StyleDefault.Foreground(tcell.ColorRed)
		}
		v.screen.SetContent(v.fx(b.Pos.X), v.fy(b.Pos.Y), '•', nil, style)
	}

	ball := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	v.screen.SetContent(v.fx(v.snap.Ball.Pos.X), v.fy(v.snap.Ball.Pos.Y), '●', nil, ball)

	if v.snap.Over {
		msg := "match over: draw"
		if v.snap.Winner != "" && v.snap.Winner != "draw" {
			msg = fmt.Sprintf("match over: %s side wins %d-%d",
				v.snap.Winner, v.snap.Score[0], v.snap.Score[1])
		}
		_, y0, _, h := v.fieldRect()
		v.drawText((v.width-len(msg))/2, y0+h/2, tcell.StyleDefault.Bold(true), msg)
	}
}

func (v *viewer) drawStatus() {
	line := v.status
	if line == "" || time.Since(v.statusAt) > statusHold {
		line = "live cannon feed"
		if v.haveSnap {
			line = fmt.Sprintf("match %.8s", v.snap.MatchID)
		}
	}
	v.drawText(1, v.height-1, tcell.StyleDefault, line)

	hint := "q quits"
	v.drawText(v.width-len(hint)-1, v.height-1, tcell.StyleDefault.Foreground(tcell.ColorGray), hint)
}

func (v *viewer) drawText(x, y int, style tcell.Style, text string) {
	if y < 0 || y >= v.height {
		return
	}
	for i, r := range []rune(text) {
		if x+i < 0 || x+i >= v.width {
			continue
		}
		v.screen.SetContent(x+i, y, r, nil, style)
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "feed server address")
	flag.Parse()

	url := fmt.Sprintf("ws://%s/ws", *addr)
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	v, err := newViewer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
		os.Exit(1)
	}

	frames := make(chan feedFrame, 64)
	errs := make(chan error, 1)
	go readFeed(conn, frames, errs)

	err = v.run(frames, errs)
	v.screen.Fini()
	if err != nil {
		fmt.Fprintf(os.Stderr, "feed: %v\n", err)
		os.Exit(1)
	}
}
