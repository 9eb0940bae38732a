package game

import (
	"math"

	"cannonade/internal/geom"
	"cannonade/internal/policy"
)

// fireBullet launches a cannon's charged shot. Power bullets pick up
// uniform angle jitter on the way out; precision bullets fly exactly
// where aimed.
func (m *Match) fireBullet(c *Cannon) {
	shot := c.pending

	angle := shot.Angle
	if shot.Kind == policy.KindPower && m.cfg.PowerAngleJitter > 0 {
		angle += (m.rng.Float64()*2 - 1) * m.cfg.PowerAngleJitter
	}

	m.bulletID++
	m.bullets = append(m.bullets, &Bullet{
		ID:    m.bulletID,
		Pos:   c.Pos,
		Vel:   geom.Heading(angle).Scale(m.cfg.BulletSpeed),
		Kind:  shot.Kind,
		Power: c.charge,
		Owner: c.Side,
	})

	c.lastShotTick = m.tick
	c.charging = false
	c.charge = 0
	c.pending = policy.Shot{}

	m.pushEvent(EventMsg{
		Type:  EventShot,
		Tick:  m.tick,
		Side:  c.Side.String(),
		Kind:  string(shot.Kind),
		Power: shot.Power,
	})
}

// stepBullets advances every bullet one tick, culls the ones that left
// the field and transfers impulse to the ball on contact.
func (m *Match) stepBullets() {
	alive := m.bullets[:0]
	for _, b := range m.bullets {
		b.Pos = b.Pos.Add(b.Vel)

		if b.Pos.X < 0 || b.Pos.X > m.cfg.Width || b.Pos.Y < 0 || b.Pos.Y > m.cfg.Height {
			continue
		}

		if geom.Dist(b.Pos, m.ball.Pos) <= m.cfg.BallRadius+m.cfg.BulletRadius {
			m.applyImpulse(b)
			continue
		}

		alive = append(alive, b)
	}
	m.bullets = alive
}

// applyImpulse kicks the ball along the line from the impact point
// through its center, scaled by the bullet's charge.
func (m *Match) applyImpulse(b *Bullet) {
	impact := math.Atan2(m.ball.Pos.Y-b.Pos.Y, m.ball.Pos.X-b.Pos.X)

	boost := 1.0
	if b.Kind == policy.KindPower {
		boost = m.cfg.PowerKindBoost
	}
	kick := float64(b.Power) * m.cfg.ImpulseScale * boost

	m.ball.Vel.X += math.Cos(impact) * kick
	m.ball.Vel.Y += math.Sin(impact) * kick
}
