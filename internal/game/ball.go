package game

import "math"

// Step advances the ball one tick: integrate position, bleed speed off
// through friction, snap crawling components to rest and bounce off the
// top and bottom rails.
func (b *Ball) Step(cfg Config) {
	b.Pos = b.Pos.Add(b.Vel)

	b.Vel = b.Vel.Scale(cfg.Friction)
	if math.Abs(b.Vel.X) < cfg.StopSpeed {
		b.Vel.X = 0
	}
	if math.Abs(b.Vel.Y) < cfg.StopSpeed {
		b.Vel.Y = 0
	}

	if b.Pos.Y-cfg.BallRadius <= 0 || b.Pos.Y+cfg.BallRadius >= cfg.Height {
		b.Vel.Y = -b.Vel.Y
	}
}

// Goal reports the scoring side once the ball touches a goal line. The
// point goes to the side opposite the touched goal.
func (b *Ball) Goal(cfg Config) (Side, bool) {
	if b.Pos.X-cfg.BallRadius <= 0 {
		return SideLeft.Other(), true
	}
	if b.Pos.X+cfg.BallRadius >= cfg.Width {
		return SideRight.Other(), true
	}
	return SideLeft, false
}

// Stopped reports whether the ball is fully at rest.
func (b *Ball) Stopped() bool {
	return b.Vel.X == 0 && b.Vel.Y == 0
}
