package game

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cannonade/internal/geom"
	"cannonade/internal/policy"
)

// Config validation errors.
var (
	ErrBadDimensions = errors.New("bad field dimensions")
	ErrBadTickRate   = errors.New("bad tick rate")
	ErrBadPower      = errors.New("bad power setting")
	ErrBadPhysics    = errors.New("bad physics setting")
	ErrBadMatchRules = errors.New("bad match rules")
)

// Config holds every tunable of a match. Start from DefaultConfig and
// override selected fields from a yaml file.
type Config struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	BallRadius   float64 `yaml:"ball_radius"`
	CannonRadius float64 `yaml:"cannon_radius"`
	CannonInset  float64 `yaml:"cannon_inset"` // cannon x distance from its goal line

	MaxPower     int     `yaml:"max_power"`
	Friction     float64 `yaml:"friction"`   // velocity multiplier per tick
	StopSpeed    float64 `yaml:"stop_speed"` // components below this snap to rest
	BulletSpeed  float64 `yaml:"bullet_speed"`
	BulletRadius float64 `yaml:"bullet_radius"`
	ImpulseScale float64 `yaml:"impulse_scale"` // ball kick per point of power

	PowerKindBoost   float64 `yaml:"power_kind_boost"`   // extra kick for power bullets
	PowerAngleJitter float64 `yaml:"power_angle_jitter"` // degrees, applied both ways

	PowerAmmo     int `yaml:"power_ammo"`
	PrecisionAmmo int `yaml:"precision_ammo"`

	TickRate         int     `yaml:"tick_rate"`
	TurnDelaySeconds float64 `yaml:"turn_delay_seconds"`
	MatchSeconds     int     `yaml:"match_seconds"`
	WinningScore     int     `yaml:"winning_score"`
	SpawnJitter      int     `yaml:"spawn_jitter"` // pixels, each axis

	Quadrant policy.QuadrantConfig `yaml:"quadrant"`
}

// DefaultConfig returns the reference table setup.
func DefaultConfig() Config {
	cfg := Config{
		Width:  800,
		Height: 600,

		BallRadius:   20,
		CannonRadius: 30,
		CannonInset:  50,

		MaxPower:     30,
		Friction:     0.995,
		StopSpeed:    0.1,
		BulletSpeed:  15,
		BulletRadius: 5,
		ImpulseScale: 0.13,

		PowerKindBoost:   1.5,
		PowerAngleJitter: 5,

		PowerAmmo:     5,
		PrecisionAmmo: 10,

		TickRate:         60,
		TurnDelaySeconds: 0.6,
		MatchSeconds:     60,
		WinningScore:     1,
		SpawnJitter:      5,
	}
	cfg.Quadrant = policy.DefaultQuadrantConfig(cfg.Width)
	return cfg
}

// LoadConfig reads a yaml file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for values the engine cannot run with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrBadDimensions, c.Width, c.Height)
	}
	if c.CannonInset*2 >= c.Width {
		return fmt.Errorf("%w: cannon inset %g does not fit width %g", ErrBadDimensions, c.CannonInset, c.Width)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: %d", ErrBadTickRate, c.TickRate)
	}
	if c.MaxPower < 1 {
		return fmt.Errorf("%w: max power %d", ErrBadPower, c.MaxPower)
	}
	if c.PowerAmmo < 0 || c.PrecisionAmmo < 0 {
		return fmt.Errorf("%w: ammo %d/%d", ErrBadPower, c.PowerAmmo, c.PrecisionAmmo)
	}
	if c.Friction <= 0 || c.Friction > 1 {
		return fmt.Errorf("%w: friction %g", ErrBadPhysics, c.Friction)
	}
	if c.BulletSpeed <= 0 {
		return fmt.Errorf("%w: bullet speed %g", ErrBadPhysics, c.BulletSpeed)
	}
	if c.BallRadius <= 0 || c.BulletRadius <= 0 {
		return fmt.Errorf("%w: radii %g/%g", ErrBadPhysics, c.BallRadius, c.BulletRadius)
	}
	if c.MatchSeconds <= 0 || c.WinningScore < 1 {
		return fmt.Errorf("%w: %ds to %d", ErrBadMatchRules, c.MatchSeconds, c.WinningScore)
	}
	if c.TurnDelaySeconds < 0 {
		return fmt.Errorf("%w: turn delay %gs", ErrBadMatchRules, c.TurnDelaySeconds)
	}
	if c.SpawnJitter < 0 {
		return fmt.Errorf("%w: spawn jitter %d", ErrBadMatchRules, c.SpawnJitter)
	}
	return nil
}

// Field derives the static parameters gunner policies may consult.
func (c Config) Field() policy.Field {
	return policy.Field{
		Width:       c.Width,
		Height:      c.Height,
		MaxPower:    c.MaxPower,
		BulletSpeed: c.BulletSpeed,
		Quadrant:    c.Quadrant,
	}
}

// TurnDelayTicks is the cooldown between shots of one cannon, in ticks.
func (c Config) TurnDelayTicks() int {
	return int(c.TurnDelaySeconds * float64(c.TickRate))
}

// MatchTicks is the full match clock, in ticks.
func (c Config) MatchTicks() int {
	return c.MatchSeconds * c.TickRate
}

// CannonPos returns the fixed mount point for a side.
func (c Config) CannonPos(s Side) geom.Vec {
	if s == SideLeft {
		return geom.Vec{X: c.CannonInset, Y: c.Height / 2}
	}
	return geom.Vec{X: c.Width - c.CannonInset, Y: c.Height / 2}
}

// spawnPresets lists the ball drop points cycled between rounds.
func (c Config) spawnPresets() []geom.Vec {
	cx, cy := c.Width/2, c.Height/2
	return []geom.Vec{
		{X: cx, Y: cy},
		{X: cx, Y: cy + 50},
		{X: cx, Y: cy - 50},
		{X: cx, Y: cy + 100},
		{X: cx - 50, Y: cy - 100},
	}
}
