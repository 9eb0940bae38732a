package policy

import (
	"math/rand/v2"

	"cannonade/internal/geom"
)

// Charge power grows by one for every this many pixels of range.
const distancePowerDivisor = 4.0

// Distance aims straight at the ball and scales charge power with range.
// While both ammo pools hold bullets the kind is a coin flip; once one
// pool runs dry it sticks to the other.
type Distance struct {
	field Field
	rng   *rand.Rand
}

func init() {
	Register("distance", func(f Field, rng *rand.Rand) Policy {
		return NewDistance(f, rng)
	})
}

// NewDistance builds the distance gunner.
func NewDistance(f Field, rng *rand.Rand) *Distance {
	return &Distance{field: f, rng: rng}
}

// Decide implements Policy.
func (p *Distance) Decide(obs Observation) (Shot, bool) {
	if obs.PowerLeft <= 0 && obs.PrecisionLeft <= 0 {
		return Shot{}, false
	}

	var kind BulletKind
	switch {
	case obs.PrecisionLeft <= 0:
		kind = KindPower
	case obs.PowerLeft <= 0:
		kind = KindPrecision
	case p.rng.IntN(2) == 0:
		kind = KindPower
	default:
		kind = KindPrecision
	}

	dist := geom.Dist(obs.CannonPos, obs.BallPos)

	return Shot{
		Angle: geom.AimDegrees(obs.CannonPos, obs.BallPos),
		Power: geom.ClampInt(int(dist/distancePowerDivisor), 1, p.field.MaxPower),
		Kind:  kind,
	}, true
}
