package game

import (
	"cannonade/internal/geom"
	"cannonade/internal/policy"
)

// Side identifies one of the two cannons.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// String returns the wire name of the side.
func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Ball is the game ball.
type Ball struct {
	Pos geom.Vec `json:"pos" msgpack:"pos"`
	Vel geom.Vec `json:"vel" msgpack:"vel"`
}

// Bullet is a projectile in flight.
type Bullet struct {
	ID    uint32            `json:"id" msgpack:"id"`
	Pos   geom.Vec          `json:"pos" msgpack:"pos"`
	Vel   geom.Vec          `json:"vel" msgpack:"vel"`
	Kind  policy.BulletKind `json:"kind" msgpack:"kind"`
	Power int               `json:"power" msgpack:"power"`
	Owner Side              `json:"owner" msgpack:"owner"`
}

// Cannon is one side's mount: position, ammo book and charge state.
type Cannon struct {
	Side          Side
	Pos           geom.Vec
	PowerLeft     int
	PrecisionLeft int
	Used          int

	lastShotTick int
	charging     bool
	charge       int
	pending      policy.Shot
}

// NewCannon mounts a cannon with full ammo pools, ready to fire at once.
func NewCannon(s Side, cfg Config) *Cannon {
	return &Cannon{
		Side:          s,
		Pos:           cfg.CannonPos(s),
		PowerLeft:     cfg.PowerAmmo,
		PrecisionLeft: cfg.PrecisionAmmo,
		lastShotTick:  -cfg.TurnDelayTicks(),
	}
}

// ready reports whether the cannon may take a new firing decision.
func (c *Cannon) ready(tick, delayTicks int) bool {
	return !c.charging && tick-c.lastShotTick >= delayTicks
}

// observe builds the policy view of the table for this cannon.
func (c *Cannon) observe(ball Ball) policy.Observation {
	return policy.Observation{
		CannonPos:     c.Pos,
		BallPos:       ball.Pos,
		BallVel:       ball.Vel,
		PowerLeft:     c.PowerLeft,
		PrecisionLeft: c.PrecisionLeft,
	}
}

// spend draws one bullet of the kind from its pool, reporting false when
// the pool is empty or the kind is unknown.
func (c *Cannon) spend(kind policy.BulletKind) bool {
	switch kind {
	case policy.KindPower:
		if c.PowerLeft <= 0 {
			return false
		}
		c.PowerLeft--
	case policy.KindPrecision:
		if c.PrecisionLeft <= 0 {
			return false
		}
		c.PrecisionLeft--
	default:
		return false
	}
	c.Used++
	return true
}

// reload refills the pools and clears charge state between rounds. Used
// and the shot cooldown carry across the reset.
func (c *Cannon) reload(cfg Config) {
	c.PowerLeft = cfg.PowerAmmo
	c.PrecisionLeft = cfg.PrecisionAmmo
	c.charging = false
	c.charge = 0
	c.pending = policy.Shot{}
}
