package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"cannonade/internal/geom"
	"cannonade/internal/policy"
)

// Result summarizes a match for records and standings. Policies, Score
// and Used are indexed by side, left first.
type Result struct {
	MatchID  string    `msgpack:"matchId" yaml:"match_id"`
	Seed     uint64    `msgpack:"seed" yaml:"seed"`
	Policies [2]string `msgpack:"policies" yaml:"policies"`
	Score    [2]int    `msgpack:"score" yaml:"score"`
	Used     [2]int    `msgpack:"used" yaml:"used"`
	Rounds   int       `msgpack:"rounds" yaml:"rounds"`
	Ticks    int       `msgpack:"ticks" yaml:"ticks"`
	Winner   string    `msgpack:"winner" yaml:"winner"`
	Over     bool      `msgpack:"over" yaml:"over"`
}

// Match runs one cannon duel. All mutation happens under the mutex in
// Step; Snapshot and Result may be read from other goroutines.
type Match struct {
	mu sync.Mutex

	cfg  Config
	id   string
	seed uint64
	rng  *rand.Rand

	tick     int
	round    int
	ball     Ball
	cannons  [2]*Cannon
	gunners  [2]policy.Policy
	names    [2]string
	bullets  []*Bullet
	bulletID uint32
	score    [2]int

	over   bool
	winner string

	events []EventMsg
}

// NewMatch sets up a duel between two named policies. The seed drives
// every random draw of the match and its gunners, so equal seeds replay
// tick for tick.
func NewMatch(cfg Config, leftPolicy, rightPolicy string, seed uint64) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Match{
		cfg:   cfg,
		id:    uuid.NewString(),
		seed:  seed,
		rng:   rand.New(rand.NewPCG(seed, 0)),
		names: [2]string{leftPolicy, rightPolicy},
		ball:  Ball{Pos: cfg.spawnPresets()[0]},
	}
	m.cannons[SideLeft] = NewCannon(SideLeft, cfg)
	m.cannons[SideRight] = NewCannon(SideRight, cfg)

	var err error
	m.gunners[SideLeft], err = policy.New(leftPolicy, cfg.Field(), rand.New(rand.NewPCG(seed, 1)))
	if err != nil {
		return nil, fmt.Errorf("left cannon: %w", err)
	}
	m.gunners[SideRight], err = policy.New(rightPolicy, cfg.Field(), rand.New(rand.NewPCG(seed, 2)))
	if err != nil {
		return nil, fmt.Errorf("right cannon: %w", err)
	}

	return m, nil
}

// ID returns the match id.
func (m *Match) ID() string {
	return m.id
}

// Over reports whether the match has ended.
func (m *Match) Over() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.over
}

// Result returns the match summary so far; Over marks it final.
func (m *Match) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Result{
		MatchID:  m.id,
		Seed:     m.seed,
		Policies: m.names,
		Score:    m.score,
		Used:     [2]int{m.cannons[SideLeft].Used, m.cannons[SideRight].Used},
		Rounds:   m.round + 1,
		Ticks:    m.tick,
		Winner:   m.winner,
		Over:     m.over,
	}
}

// Step advances the match one tick. A finished match ignores it.
func (m *Match) Step() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.over {
		return
	}
	m.events = m.events[:0]
	m.tick++

	m.stepTurns()
	m.checkClock()
	if m.over {
		return
	}
	m.checkStalemate()
	if m.over {
		return
	}
	m.stepBall()
	if m.over {
		return
	}
	m.stepBullets()
}

// Run steps the match in real time, emitting a marshaled snapshot after
// every tick, until the match ends or the context is cancelled.
func (m *Match) Run(ctx context.Context, emit func([]byte)) error {
	slog.Info("match starting",
		"match", m.id,
		"left", m.names[SideLeft],
		"right", m.names[SideRight],
		"seed", m.seed)

	ticker := time.NewTicker(time.Second / time.Duration(m.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Step()

			frame, err := m.SnapshotFrame()
			if err != nil {
				slog.Error("marshal snapshot", "match", m.id, "err", err)
			} else if emit != nil {
				emit(frame)
			}

			if m.Over() {
				res := m.Result()
				slog.Info("match over",
					"match", m.id,
					"winner", res.Winner,
					"score", res.Score,
					"rounds", res.Rounds,
					"ticks", res.Ticks)
				return nil
			}
		}
	}
}

// stepTurns ramps charging cannons and asks idle ones for a decision.
// Policies observe the ball before it moves this tick.
func (m *Match) stepTurns() {
	delay := m.cfg.TurnDelayTicks()
	for _, c := range m.cannons {
		if c.charging {
			c.charge++
			if c.charge >= c.pending.Power {
				m.fireBullet(c)
			}
			continue
		}
		if !c.ready(m.tick, delay) {
			continue
		}

		shot, ok := m.gunners[c.Side].Decide(c.observe(m.ball))
		if !ok {
			continue
		}
		m.acceptShot(c, shot)
	}
}

// acceptShot validates a firing order and starts the charge. Ammo is
// spent on acceptance; an order against an empty pool is dropped and the
// policy simply gets asked again next tick.
func (m *Match) acceptShot(c *Cannon, shot policy.Shot) {
	shot.Power = geom.ClampInt(shot.Power, 1, m.cfg.MaxPower)
	if !c.spend(shot.Kind) {
		slog.Debug("dropped shot for empty pool",
			"match", m.id, "side", c.Side.String(), "kind", string(shot.Kind))
		return
	}
	c.pending = shot
	c.charging = true
	c.charge = 0
}

// checkClock ends the match when the clock runs out. A score tie goes to
// the thriftier side; equal bullet spend is a draw.
func (m *Match) checkClock() {
	if m.tick < m.cfg.MatchTicks() {
		return
	}
	switch {
	case m.score[SideLeft] > m.score[SideRight]:
		m.finish(SideLeft.String())
	case m.score[SideRight] > m.score[SideLeft]:
		m.finish(SideRight.String())
	case m.cannons[SideLeft].Used < m.cannons[SideRight].Used:
		m.finish(SideLeft.String())
	case m.cannons[SideRight].Used < m.cannons[SideLeft].Used:
		m.finish(SideRight.String())
	default:
		m.finish("draw")
	}
}

// checkStalemate ends a dead round once the ball rests, every pool is
// dry, nothing is charging and no bullet is still flying. The side that
// pushed the ball deeper into enemy ground takes the point.
func (m *Match) checkStalemate() {
	if !m.ball.Stopped() || len(m.bullets) > 0 {
		return
	}
	for _, c := range m.cannons {
		if c.charging || c.PowerLeft > 0 || c.PrecisionLeft > 0 {
			return
		}
	}

	distLeft := math.Abs(m.ball.Pos.X - m.cannons[SideLeft].Pos.X)
	distRight := math.Abs(m.ball.Pos.X - m.cannons[SideRight].Pos.X)
	scorer := SideRight
	if distLeft > distRight {
		scorer = SideLeft
	}
	m.awardPoint(scorer, "stalemate")
}

// stepBall moves the ball and scores a goal line touch.
func (m *Match) stepBall() {
	m.ball.Step(m.cfg)
	if scorer, ok := m.ball.Goal(m.cfg); ok {
		m.awardPoint(scorer, "goal")
	}
}

// awardPoint scores for a side and either finishes the match or resets
// the round.
func (m *Match) awardPoint(s Side, reason string) {
	m.score[s]++
	m.pushEvent(EventMsg{
		Type:   EventGoal,
		Tick:   m.tick,
		Side:   s.String(),
		Reason: reason,
		Score:  m.scoreSlice(),
	})

	if m.score[s] >= m.cfg.WinningScore {
		m.finish(s.String())
		return
	}
	m.resetRound()
}

// resetRound drops the ball on the next preset with a little jitter,
// clears the air and refills both cannons.
func (m *Match) resetRound() {
	m.round++
	presets := m.cfg.spawnPresets()
	spot := presets[m.round%len(presets)]
	spot.X += float64(m.rng.IntN(2*m.cfg.SpawnJitter+1) - m.cfg.SpawnJitter)
	spot.Y += float64(m.rng.IntN(2*m.cfg.SpawnJitter+1) - m.cfg.SpawnJitter)

	m.ball = Ball{Pos: spot}
	m.bullets = m.bullets[:0]
	for _, c := range m.cannons {
		c.reload(m.cfg)
	}
	m.pushEvent(EventMsg{Type: EventRound, Tick: m.tick, Round: m.round})
}

func (m *Match) finish(winner string) {
	m.over = true
	m.winner = winner
	m.pushEvent(EventMsg{
		Type:   EventOver,
		Tick:   m.tick,
		Winner: winner,
		Score:  m.scoreSlice(),
	})
}

func (m *Match) scoreSlice() []int {
	return []int{m.score[SideLeft], m.score[SideRight]}
}

func (m *Match) pushEvent(e EventMsg) {
	m.events = append(m.events, e)
}
