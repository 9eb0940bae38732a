// Package geom holds the small amount of vector and angle math the game
// shares between the engine and the gunner policies.
//
// Field coordinates follow the screen convention: x grows right, y grows
// down. Aim angles are in degrees with 0 pointing along +x and positive
// angles turning counter-clockwise on screen, so "up" is +90.
package geom

import "math"

// Vec is a 2D point or velocity in field coordinates.
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v scaled by s.
func (v Vec) Scale(s float64) Vec {
	return Vec{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of v and o.
func (v Vec) Dot(o Vec) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Len returns the length of v.
func (v Vec) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the distance between a and b.
func Dist(a, b Vec) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// AimDegrees returns the aim angle from one point toward another.
func AimDegrees(from, to Vec) float64 {
	return -math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
}

// Heading returns the unit vector for an aim angle in degrees. It is the
// inverse of AimDegrees: Heading(AimDegrees(a, b)) points from a toward b.
func Heading(deg float64) Vec {
	rad := deg * math.Pi / 180
	return Vec{X: math.Cos(rad), Y: -math.Sin(rad)}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
