package game

import (
	"errors"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"cannonade/internal/geom"
	"cannonade/internal/policy"
)

func newTestMatch(t *testing.T) *Match {
	t.Helper()
	m, err := NewMatch(DefaultConfig(), "distance", "distance", 5)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return m
}

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestNewMatchUnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := NewMatch(cfg, "flawless", "distance", 1); !errors.Is(err, policy.ErrUnknownPolicy) {
		t.Errorf("left unknown: err = %v, want ErrUnknownPolicy", err)
	}
	if _, err := NewMatch(cfg, "distance", "flawless", 1); !errors.Is(err, policy.ErrUnknownPolicy) {
		t.Errorf("right unknown: err = %v, want ErrUnknownPolicy", err)
	}
}

func TestNewMatchBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRate = 0
	if _, err := NewMatch(cfg, "distance", "distance", 1); !errors.Is(err, ErrBadTickRate) {
		t.Errorf("err = %v, want ErrBadTickRate", err)
	}
}

func TestMatchTurnCycle(t *testing.T) {
	m := newTestMatch(t)

	m.Step()
	for _, c := range m.cannons {
		if !c.charging {
			t.Fatalf("%v cannon not charging after first tick", c.Side)
		}
		if got := c.PowerLeft + c.PrecisionLeft; got != m.cfg.PowerAmmo+m.cfg.PrecisionAmmo-1 {
			t.Errorf("%v ammo = %d after acceptance, want one bullet spent", c.Side, got)
		}
		if c.pending.Power != m.cfg.MaxPower {
			t.Errorf("%v pending power = %d, want clamp to %d", c.Side, c.pending.Power, m.cfg.MaxPower)
		}
	}

	// Charge climbs one point per tick, so a full-power order from tick 1
	// leaves the muzzle on tick 31.
	for m.tick < 30 {
		m.Step()
	}
	if len(m.bullets) != 0 {
		t.Fatalf("bullets fired at tick %d, before charge completed", m.tick)
	}
	m.Step()
	if len(m.bullets) != 2 {
		t.Fatalf("bullets = %d at tick %d, want 2", len(m.bullets), m.tick)
	}

	for m.tick < 66 {
		m.Step()
	}
	for _, c := range m.cannons {
		if c.charging {
			t.Errorf("%v cannon charging at tick %d, inside the turn delay", c.Side, m.tick)
		}
	}
	m.Step()
	for _, c := range m.cannons {
		if !c.charging {
			t.Errorf("%v cannon idle at tick %d, turn delay should be over", c.Side, m.tick)
		}
	}
}

func TestMatchDeterministicReplay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WinningScore = 3

	a, err := NewMatch(cfg, "distance", "intercept", 42)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	b, err := NewMatch(cfg, "distance", "intercept", 42)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}

	for i := 0; i < 600; i++ {
		a.Step()
		b.Step()
	}

	if a.ball != b.ball {
		t.Errorf("balls diverged: %+v vs %+v", a.ball, b.ball)
	}
	if a.score != b.score {
		t.Errorf("scores diverged: %v vs %v", a.score, b.score)
	}
	for _, s := range []Side{SideLeft, SideRight} {
		if *a.cannons[s] != *b.cannons[s] {
			t.Errorf("%v cannons diverged: %+v vs %+v", s, *a.cannons[s], *b.cannons[s])
		}
	}
	if len(a.bullets) != len(b.bullets) {
		t.Fatalf("bullet counts diverged: %d vs %d", len(a.bullets), len(b.bullets))
	}
	for i := range a.bullets {
		if *a.bullets[i] != *b.bullets[i] {
			t.Errorf("bullet %d diverged: %+v vs %+v", i, *a.bullets[i], *b.bullets[i])
		}
	}
}

func TestMatchGoalEndsAtWinningScore(t *testing.T) {
	m := newTestMatch(t)
	m.ball = Ball{Pos: geom.Vec{X: 30, Y: 300}, Vel: geom.Vec{X: -6, Y: 0}}

	for i := 0; i < 5 && !m.Over(); i++ {
		m.Step()
	}

	res := m.Result()
	if !res.Over {
		t.Fatalf("match not over after ball rolled out left")
	}
	if res.Winner != "right" {
		t.Errorf("winner = %q, want right", res.Winner)
	}
	if res.Score != [2]int{0, 1} {
		t.Errorf("score = %v, want 0-1", res.Score)
	}

	var sawGoal, sawOver bool
	for _, e := range m.events {
		switch e.Type {
		case EventGoal:
			sawGoal = e.Reason == "goal" && e.Side == "right"
		case EventOver:
			sawOver = e.Winner == "right"
		}
	}
	if !sawGoal || !sawOver {
		t.Errorf("final tick events = %+v, want goal and over", m.events)
	}
}

func TestMatchRoundReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WinningScore = 3
	m, err := NewMatch(cfg, "quadrant", "quadrant", 9)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}

	m.ball = Ball{Pos: geom.Vec{X: 790, Y: 300}}
	m.bullets = append(m.bullets, &Bullet{ID: 99, Pos: geom.Vec{X: 100, Y: 100}})

	m.Step()

	res := m.Result()
	if res.Over {
		t.Fatalf("match over at 1 of %d goals", cfg.WinningScore)
	}
	if res.Score != [2]int{1, 0} {
		t.Errorf("score = %v, want 1-0", res.Score)
	}
	if m.round != 1 {
		t.Errorf("round = %d, want 1", m.round)
	}
	if len(m.bullets) != 0 {
		t.Errorf("bullets not cleared on round reset: %d left", len(m.bullets))
	}

	// Second preset with spawn jitter applied on both axes.
	if m.ball.Pos.X < 395 || m.ball.Pos.X > 405 || m.ball.Pos.Y < 345 || m.ball.Pos.Y > 355 {
		t.Errorf("ball respawned at %+v, want near (400,350)", m.ball.Pos)
	}
	if !m.ball.Stopped() {
		t.Errorf("respawned ball moving: %+v", m.ball.Vel)
	}

	for _, c := range m.cannons {
		if c.PowerLeft != cfg.PowerAmmo || c.PrecisionLeft != cfg.PrecisionAmmo {
			t.Errorf("%v pools = %d/%d after reset, want full", c.Side, c.PowerLeft, c.PrecisionLeft)
		}
		if c.Used != 1 {
			t.Errorf("%v used = %d, want the pre-goal acceptance kept", c.Side, c.Used)
		}
		if c.charging {
			t.Errorf("%v cannon still charging across the reset", c.Side)
		}
	}
}

func TestRoundResetKeepsShotCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WinningScore = 3
	m, err := NewMatch(cfg, "distance", "distance", 4)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}

	// Left fired moments before the goal; its cooldown must carry over.
	m.tick = 100
	m.cannons[SideLeft].lastShotTick = 95
	m.cannons[SideRight].lastShotTick = 40
	m.ball = Ball{Pos: geom.Vec{X: 790, Y: 300}}

	m.Step()

	if m.round != 1 {
		t.Fatalf("round = %d, want 1 after the goal", m.round)
	}
	if got := m.cannons[SideLeft].lastShotTick; got != 95 {
		t.Fatalf("left lastShotTick = %d after reset, want 95 kept", got)
	}

	for m.tick < 130 {
		m.Step()
	}
	if m.cannons[SideLeft].charging {
		t.Fatalf("left cannon took a turn at tick %d, inside its carried cooldown", m.tick)
	}
	m.Step()
	if !m.cannons[SideLeft].charging {
		t.Errorf("left cannon idle at tick %d, cooldown from tick 95 is over", m.tick)
	}
}

func TestMatchStalemateScoresFarSide(t *testing.T) {
	cases := []struct {
		name   string
		ballX  float64
		winner string
	}{
		{"ball deep in right territory", 600, "left"},
		{"ball deep in left territory", 200, "right"},
		{"dead center goes right", 400, "right"},
	}

	for _, tc := range cases {
		m := newTestMatch(t)
		m.ball = Ball{Pos: geom.Vec{X: tc.ballX, Y: 300}}
		for _, c := range m.cannons {
			c.PowerLeft = 0
			c.PrecisionLeft = 0
		}

		m.Step()

		res := m.Result()
		if !res.Over {
			t.Errorf("%s: stalemate not called", tc.name)
			continue
		}
		if res.Winner != tc.winner {
			t.Errorf("%s: winner = %q, want %q", tc.name, res.Winner, tc.winner)
		}

		var reason string
		for _, e := range m.events {
			if e.Type == EventGoal {
				reason = e.Reason
			}
		}
		if reason != "stalemate" {
			t.Errorf("%s: point reason = %q, want stalemate", tc.name, reason)
		}
	}
}

func TestMatchStalemateWaitsForFliers(t *testing.T) {
	m := newTestMatch(t)
	m.ball = Ball{Pos: geom.Vec{X: 600, Y: 300}}
	for _, c := range m.cannons {
		c.PowerLeft = 0
		c.PrecisionLeft = 0
	}
	m.bullets = append(m.bullets, &Bullet{ID: 1, Pos: geom.Vec{X: 100, Y: 100}, Vel: geom.Vec{X: 15, Y: 0}})

	m.Step()

	if m.Over() {
		t.Errorf("stalemate called with a bullet still in flight")
	}
}

func TestMatchClockTieBreaks(t *testing.T) {
	cases := []struct {
		name   string
		score  [2]int
		used   [2]int
		winner string
	}{
		{"higher score wins", [2]int{2, 1}, [2]int{9, 9}, "left"},
		{"score beats thrift", [2]int{1, 2}, [2]int{1, 9}, "right"},
		{"thrift breaks score tie", [2]int{1, 1}, [2]int{3, 5}, "left"},
		{"thrift the other way", [2]int{0, 0}, [2]int{7, 2}, "right"},
		{"dead even is a draw", [2]int{1, 1}, [2]int{4, 4}, "draw"},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.WinningScore = 5
		m, err := NewMatch(cfg, "distance", "distance", 1)
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}

		m.score = tc.score
		m.cannons[SideLeft].Used = tc.used[SideLeft]
		m.cannons[SideRight].Used = tc.used[SideRight]
		for _, c := range m.cannons {
			c.PowerLeft = 0
			c.PrecisionLeft = 0
		}
		m.tick = cfg.MatchTicks() - 1

		m.Step()

		res := m.Result()
		if !res.Over {
			t.Errorf("%s: clock did not end the match", tc.name)
			continue
		}
		if res.Winner != tc.winner {
			t.Errorf("%s: winner = %q, want %q", tc.name, res.Winner, tc.winner)
		}
		if res.Ticks != cfg.MatchTicks() {
			t.Errorf("%s: ticks = %d, want %d", tc.name, res.Ticks, cfg.MatchTicks())
		}
	}
}

func TestMatchOverFreezesState(t *testing.T) {
	m := newTestMatch(t)
	m.ball = Ball{Pos: geom.Vec{X: 10, Y: 300}} // already out on the left

	m.Step()
	if !m.Over() {
		t.Fatalf("match should be over")
	}

	res := m.Result()
	m.Step()
	m.Step()
	if got := m.Result(); got != res {
		t.Errorf("finished match kept mutating: %+v then %+v", res, got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m, err := NewMatch(DefaultConfig(), "distance", "intercept", 8)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	for i := 0; i < 40; i++ {
		m.Step()
	}

	frame, err := m.SnapshotFrame()
	if err != nil {
		t.Fatalf("SnapshotFrame: %v", err)
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(frame, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}

	if snap.Type != MsgTypeSnapshot {
		t.Errorf("type = %q, want %q", snap.Type, MsgTypeSnapshot)
	}
	if snap.MatchID != m.ID() {
		t.Errorf("match id = %q, want %q", snap.MatchID, m.ID())
	}
	if snap.Tick != 40 {
		t.Errorf("tick = %d, want 40", snap.Tick)
	}
	if want := 60 - 40.0/60.0; !near(snap.TimeLeft, want, 1e-9) {
		t.Errorf("time left = %v, want %v", snap.TimeLeft, want)
	}
	if len(snap.Cannons) != 2 || len(snap.Score) != 2 {
		t.Fatalf("snapshot shape off: %d cannons, %d score entries", len(snap.Cannons), len(snap.Score))
	}
	if snap.Cannons[0].Policy != "distance" || snap.Cannons[1].Policy != "intercept" {
		t.Errorf("policies = %q/%q, want distance/intercept",
			snap.Cannons[0].Policy, snap.Cannons[1].Policy)
	}
	if len(snap.Bullets) != 2 {
		t.Errorf("bullets = %d, want the tick 31 volley still flying", len(snap.Bullets))
	}
}

func TestHelloFrame(t *testing.T) {
	m := newTestMatch(t)

	frame, err := m.HelloFrame()
	if err != nil {
		t.Fatalf("HelloFrame: %v", err)
	}
	var hello Hello
	if err := msgpack.Unmarshal(frame, &hello); err != nil {
		t.Fatalf("decode hello: %v", err)
	}

	if hello.Type != MsgTypeHello {
		t.Errorf("type = %q, want %q", hello.Type, MsgTypeHello)
	}
	if hello.Width != 800 || hello.Height != 600 || hello.TickRate != 60 {
		t.Errorf("table = %gx%g at %d tps, want 800x600 at 60", hello.Width, hello.Height, hello.TickRate)
	}
	if hello.Left != "distance" || hello.Right != "distance" {
		t.Errorf("policies = %q/%q, want distance/distance", hello.Left, hello.Right)
	}
}
