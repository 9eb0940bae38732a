package policy

import (
	"math/rand/v2"

	"cannonade/internal/geom"
)

// QuadrantConfig names the screen thresholds the quadrant gunner keys on.
// Zero value means "use the defaults for the field".
type QuadrantConfig struct {
	// MidlineX splits the field into the two angle branches.
	MidlineX float64 `yaml:"midline_x"`
	// DeepLeftX and DeepRightX bound the central corridor; a ball outside
	// it sits deep near a goal.
	DeepLeftX  float64 `yaml:"deep_left_x"`
	DeepRightX float64 `yaml:"deep_right_x"`
	// FixedPower is the charge used for every shot.
	FixedPower int `yaml:"fixed_power"`
}

// DefaultQuadrantConfig returns the reference thresholds for a field width.
func DefaultQuadrantConfig(width float64) QuadrantConfig {
	return QuadrantConfig{
		MidlineX:   width / 2,
		DeepLeftX:  300,
		DeepRightX: 500,
		FixedPower: 4,
	}
}

type quadrantRule struct {
	name   string
	match  func(cfg QuadrantConfig, ball geom.Vec) bool
	prefer BulletKind
}

// Evaluated in order, first match wins. A ball deep near either goal gets
// smashed with a power bullet, a ball in the central corridor gets a
// controlled precision nudge.
var quadrantRules = []quadrantRule{
	{
		name:   "deep-left",
		match:  func(cfg QuadrantConfig, ball geom.Vec) bool { return ball.X < cfg.DeepLeftX },
		prefer: KindPower,
	},
	{
		name:   "deep-right",
		match:  func(cfg QuadrantConfig, ball geom.Vec) bool { return ball.X > cfg.DeepRightX },
		prefer: KindPower,
	},
	{
		name:   "center",
		match:  func(QuadrantConfig, geom.Vec) bool { return true },
		prefer: KindPrecision,
	},
}

// Quadrant fires fixed-power shots and picks the bullet kind from a rule
// table over the ball's screen region. The two halves of the field use
// differently normalized aim angles that point at the same direction.
type Quadrant struct {
	field Field
	cfg   QuadrantConfig
}

func init() {
	Register("quadrant", func(f Field, _ *rand.Rand) Policy {
		return NewQuadrant(f)
	})
}

// NewQuadrant builds the quadrant gunner, falling back to the default
// thresholds when the field carries none.
func NewQuadrant(f Field) *Quadrant {
	cfg := f.Quadrant
	if cfg.FixedPower <= 0 {
		cfg = DefaultQuadrantConfig(f.Width)
	}
	return &Quadrant{field: f, cfg: cfg}
}

// Decide implements Policy.
func (p *Quadrant) Decide(obs Observation) (Shot, bool) {
	if obs.PowerLeft <= 0 && obs.PrecisionLeft <= 0 {
		return Shot{}, false
	}

	prefer := KindPrecision
	for _, rule := range quadrantRules {
		if rule.match(p.cfg, obs.BallPos) {
			prefer = rule.prefer
			break
		}
	}

	aim := geom.AimDegrees(obs.CannonPos, obs.BallPos)
	if obs.BallPos.X < p.cfg.MidlineX {
		aim = 360 + aim
	}

	return Shot{
		Angle: aim,
		Power: geom.ClampInt(p.cfg.FixedPower, 1, p.field.MaxPower),
		Kind:  pickAvailable(prefer, obs.PowerLeft, obs.PrecisionLeft),
	}, true
}
