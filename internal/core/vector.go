// Package core provides fundamental math types and utilities for the
// arena platform. It contains no external dependencies to keep the
// simulation logic pure and testable.
package core

import "math"

// Vector2 represents a 2D point or velocity.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is shorthand for constructing a Vector2.
func Vec(x, y float64) Vector2 {
	return Vector2{X: x, Y: y}
}

// Add returns v + o.
func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v multiplied by a scalar.
func (v Vector2) Scale(s float64) Vector2 {
	return Vector2{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of v and o.
func (v Vector2) Dot(o Vector2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Length returns the magnitude of v.
func (v Vector2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// IsZero reports whether both components are exactly zero.
func (v Vector2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Normalized returns v scaled to unit length.
// The zero vector is returned unchanged.
func (v Vector2) Normalized() Vector2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// WithLength returns v rescaled to the given magnitude, preserving
// direction. The zero vector is returned unchanged.
func (v Vector2) WithLength(l float64) Vector2 {
	return v.Normalized().Scale(l)
}

// Reflect returns v mirrored about the plane whose normal is n.
// n must be unit length.
func (v Vector2) Reflect(n Vector2) Vector2 {
	return v.Sub(n.Scale(2 * v.Dot(n)))
}

// ClampF restricts a float64 value to be within [min, max].
func ClampF(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampLength rescales v so its magnitude lies within [min, max].
// A zero vector is returned unchanged since it has no direction.
func ClampLength(v Vector2, min, max float64) Vector2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	if l < min {
		return v.Scale(min / l)
	}
	if l > max {
		return v.Scale(max / l)
	}
	return v
}

// EaseInOutCos maps linear progress t in [0,1] onto a smooth cosine
// ease-in-out curve. Values outside [0,1] are clamped.
func EaseInOutCos(t float64) float64 {
	t = ClampF(t, 0, 1)
	return 0.5 - 0.5*math.Cos(math.Pi*t)
}
