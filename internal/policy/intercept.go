package policy

import (
	"math"
	"math/rand/v2"

	"cannonade/internal/geom"
)

const (
	interceptMinPower     = 5
	interceptPowerDivisor = 10.0
	interceptEpsilon      = 1e-9
)

// Intercept leads the moving ball: it solves for where a bullet fired now
// meets the ball on its current course and aims there. With the ball at
// rest it degrades to a plain direct shot.
type Intercept struct {
	field Field
}

func init() {
	Register("intercept", func(f Field, _ *rand.Rand) Policy {
		return NewIntercept(f)
	})
}

// NewIntercept builds the intercept gunner.
func NewIntercept(f Field) *Intercept {
	return &Intercept{field: f}
}

// Decide implements Policy.
func (p *Intercept) Decide(obs Observation) (Shot, bool) {
	kind, ok := p.pickKind(obs)
	if !ok {
		return Shot{}, false
	}

	target := obs.BallPos
	if t, ok := interceptTime(obs.CannonPos, obs.BallPos, obs.BallVel, p.field.BulletSpeed); ok {
		target = obs.BallPos.Add(obs.BallVel.Scale(t))
		target.X = geom.Clamp(target.X, 0, p.field.Width)
		target.Y = geom.Clamp(target.Y, 0, p.field.Height)
	}

	dist := geom.Dist(obs.CannonPos, target)

	return Shot{
		Angle: geom.AimDegrees(obs.CannonPos, target),
		Power: geom.ClampInt(int(dist/interceptPowerDivisor), interceptMinPower, p.field.MaxPower),
		Kind:  kind,
	}, true
}

// pickKind spends power bullets while the cannon defends its home third
// of the field and precision bullets otherwise.
func (p *Intercept) pickKind(obs Observation) (BulletKind, bool) {
	defensive := obs.CannonPos.X < p.field.Width/3 || obs.CannonPos.X > p.field.Width*2/3
	switch {
	case defensive && obs.PowerLeft > 0:
		return KindPower, true
	case obs.PrecisionLeft > 0:
		return KindPrecision, true
	case obs.PowerLeft > 0:
		return KindPower, true
	}
	return "", false
}

// interceptTime solves |ball + vel*t - cannon| = speed*t for the smallest
// positive t, in ticks. Reports false when bullet and ball never meet.
func interceptTime(cannon, ball, vel geom.Vec, speed float64) (float64, bool) {
	rel := ball.Sub(cannon)
	a := vel.Dot(vel) - speed*speed
	b := 2 * rel.Dot(vel)
	c := rel.Dot(rel)

	// Near-equal speeds collapse the quadratic to a linear closing rate.
	if math.Abs(a) < interceptEpsilon {
		if math.Abs(b) < interceptEpsilon {
			return 0, false
		}
		t := -c / b
		if t <= 0 {
			return 0, false
		}
		return t, true
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}

	sqrtDisc := math.Sqrt(disc)
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > 0 {
		return t1, true
	}
	if t2 > 0 {
		return t2, true
	}
	return 0, false
}
