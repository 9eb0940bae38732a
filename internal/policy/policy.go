// Package policy contains the scripted gunners that drive the cannons.
//
// A gunner sees only its own cannon position, the ball state and its
// remaining ammo, and answers with a shot or a pass. All randomness comes
// from the rand.Rand a gunner is built with, so a seeded match replays
// the same decisions tick for tick.
package policy

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"cannonade/internal/geom"
)

// BulletKind selects which ammo pool a shot draws from.
type BulletKind string

const (
	// KindPower bullets hit harder but pick up angle jitter in flight.
	KindPower BulletKind = "power"
	// KindPrecision bullets fly exactly where aimed.
	KindPrecision BulletKind = "precision"
)

// Observation is everything a gunner may see when deciding a turn.
type Observation struct {
	CannonPos     geom.Vec
	BallPos       geom.Vec
	BallVel       geom.Vec
	PowerLeft     int
	PrecisionLeft int
}

// Shot is one firing order: aim angle in degrees (geom convention),
// integer charge power and the ammo kind to spend.
type Shot struct {
	Angle float64
	Power int
	Kind  BulletKind
}

// Field carries the static table parameters a gunner may consult.
type Field struct {
	Width       float64
	Height      float64
	MaxPower    int
	BulletSpeed float64
	Quadrant    QuadrantConfig
}

// Policy decides whether and how a cannon fires. Decide reports false to
// hold fire for the turn; the engine owns ammo bookkeeping and clamps
// accepted power into [1, MaxPower].
type Policy interface {
	Decide(obs Observation) (Shot, bool)
}

// Factory builds a policy for one cannon.
type Factory func(f Field, rng *rand.Rand) Policy

// ErrUnknownPolicy is returned by New for an unregistered name.
var ErrUnknownPolicy = errors.New("unknown policy")

var registry = map[string]Factory{}

// Register makes a policy constructor available by name. Built-in
// policies register themselves in init.
func Register(name string, fn Factory) {
	registry[name] = fn
}

// New builds the named policy.
func New(name string, f Field, rng *rand.Rand) (Policy, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return fn(f, rng), nil
}

// Names lists the registered policies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// pickAvailable resolves a kind preference against the ammo pools,
// falling back to the other kind when the preferred one is empty. The
// caller must ensure at least one pool holds ammo.
func pickAvailable(prefer BulletKind, powerLeft, precisionLeft int) BulletKind {
	if prefer == KindPower && powerLeft > 0 {
		return KindPower
	}
	if prefer == KindPrecision && precisionLeft > 0 {
		return KindPrecision
	}
	if powerLeft > 0 {
		return KindPower
	}
	return KindPrecision
}
