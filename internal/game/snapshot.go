package game

import (
	"github.com/vmihailenco/msgpack/v5"

	"cannonade/internal/geom"
)

// Wire message types.
const (
	MsgTypeHello    = "hello"
	MsgTypeSnapshot = "snapshot"
)

// Event types carried inside a snapshot frame.
const (
	EventShot  = "shot"
	EventGoal  = "goal"
	EventRound = "round"
	EventOver  = "over"
)

// EventMsg is one game event from the current tick.
type EventMsg struct {
	Type   string `json:"type" msgpack:"type"`
	Tick   int    `json:"tick" msgpack:"tick"`
	Side   string `json:"side,omitempty" msgpack:"side,omitempty"`
	Kind   string `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Power  int    `json:"power,omitempty" msgpack:"power,omitempty"`
	Reason string `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Round  int    `json:"round,omitempty" msgpack:"round,omitempty"`
	Score  []int  `json:"score,omitempty" msgpack:"score,omitempty"`
	Winner string `json:"winner,omitempty" msgpack:"winner,omitempty"`
}

// CannonView is the spectator view of one cannon.
type CannonView struct {
	Side          string   `json:"side" msgpack:"side"`
	Pos           geom.Vec `json:"pos" msgpack:"pos"`
	PowerLeft     int      `json:"powerLeft" msgpack:"powerLeft"`
	PrecisionLeft int      `json:"precisionLeft" msgpack:"precisionLeft"`
	Used          int      `json:"used" msgpack:"used"`
	Charging      bool     `json:"charging" msgpack:"charging"`
	Charge        int      `json:"charge" msgpack:"charge"`
	Pending       int      `json:"pending,omitempty" msgpack:"pending,omitempty"`
	Policy        string   `json:"policy" msgpack:"policy"`
}

// Hello is the first frame a spectator receives: the static table setup.
type Hello struct {
	Type         string  `json:"type" msgpack:"type"`
	MatchID      string  `json:"matchId" msgpack:"matchId"`
	Width        float64 `json:"width" msgpack:"width"`
	Height       float64 `json:"height" msgpack:"height"`
	BallRadius   float64 `json:"ballRadius" msgpack:"ballRadius"`
	CannonRadius float64 `json:"cannonRadius" msgpack:"cannonRadius"`
	TickRate     int     `json:"tickRate" msgpack:"tickRate"`
	Left         string  `json:"left" msgpack:"left"`
	Right        string  `json:"right" msgpack:"right"`
}

// Snapshot is the full spectator state after one tick. The state is two
// cannons, a ball and a handful of bullets, so every frame carries all
// of it and clients need no delta tracking.
type Snapshot struct {
	Type     string       `json:"type" msgpack:"type"`
	MatchID  string       `json:"matchId" msgpack:"matchId"`
	Tick     int          `json:"tick" msgpack:"tick"`
	TimeLeft float64      `json:"timeLeft" msgpack:"timeLeft"`
	Round    int          `json:"round" msgpack:"round"`
	Ball     Ball         `json:"ball" msgpack:"ball"`
	Cannons  []CannonView `json:"cannons" msgpack:"cannons"`
	Bullets  []Bullet     `json:"bullets" msgpack:"bullets"`
	Score    []int        `json:"score" msgpack:"score"`
	Over     bool         `json:"over" msgpack:"over"`
	Winner   string       `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Events   []EventMsg   `json:"events,omitempty" msgpack:"events,omitempty"`
}

// Snapshot builds the current spectator state.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Type:     MsgTypeSnapshot,
		MatchID:  m.id,
		Tick:     m.tick,
		TimeLeft: m.timeLeft(),
		Round:    m.round,
		Ball:     m.ball,
		Cannons:  make([]CannonView, 0, len(m.cannons)),
		Bullets:  make([]Bullet, 0, len(m.bullets)),
		Score:    m.scoreSlice(),
		Over:     m.over,
		Winner:   m.winner,
	}

	for _, c := range m.cannons {
		snap.Cannons = append(snap.Cannons, CannonView{
			Side:          c.Side.String(),
			Pos:           c.Pos,
			PowerLeft:     c.PowerLeft,
			PrecisionLeft: c.PrecisionLeft,
			Used:          c.Used,
			Charging:      c.charging,
			Charge:        c.charge,
			Pending:       c.pending.Power,
			Policy:        m.names[c.Side],
		})
	}
	for _, b := range m.bullets {
		snap.Bullets = append(snap.Bullets, *b)
	}
	if len(m.events) > 0 {
		snap.Events = append(snap.Events, m.events...)
	}

	return snap
}

// SnapshotFrame marshals the current snapshot for the wire.
func (m *Match) SnapshotFrame() ([]byte, error) {
	return msgpack.Marshal(m.Snapshot())
}

// HelloFrame marshals the static table description sent to new
// spectators.
func (m *Match) HelloFrame() ([]byte, error) {
	return msgpack.Marshal(Hello{
		Type:         MsgTypeHello,
		MatchID:      m.id,
		Width:        m.cfg.Width,
		Height:       m.cfg.Height,
		BallRadius:   m.cfg.BallRadius,
		CannonRadius: m.cfg.CannonRadius,
		TickRate:     m.cfg.TickRate,
		Left:         m.names[SideLeft],
		Right:        m.names[SideRight],
	})
}

// timeLeft returns the remaining match clock in seconds. Callers hold
// the match lock.
func (m *Match) timeLeft() float64 {
	left := float64(m.cfg.MatchTicks()-m.tick) / float64(m.cfg.TickRate)
	if left < 0 {
		return 0
	}
	return left
}
