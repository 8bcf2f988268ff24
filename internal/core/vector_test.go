package core

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVectorArithmetic(t *testing.T) {
	a := Vec(1, 2)
	b := Vec(3, -4)

	sum := a.Add(b)
	if sum.X != 4 || sum.Y != -2 {
		t.Errorf("Add: got %+v", sum)
	}

	diff := a.Sub(b)
	if diff.X != -2 || diff.Y != 6 {
		t.Errorf("Sub: got %+v", diff)
	}

	scaled := a.Scale(2.5)
	if scaled.X != 2.5 || scaled.Y != 5 {
		t.Errorf("Scale: got %+v", scaled)
	}

	if dot := a.Dot(b); dot != -5 {
		t.Errorf("Dot: expected -5, got %v", dot)
	}
}

func TestVectorLength(t *testing.T) {
	v := Vec(3, 4)
	if !almostEqual(v.Length(), 5) {
		t.Errorf("Length: expected 5, got %v", v.Length())
	}

	n := v.Normalized()
	if !almostEqual(n.Length(), 1) {
		t.Errorf("Normalized length: got %v", n.Length())
	}

	w := v.WithLength(10)
	if !almostEqual(w.Length(), 10) {
		t.Errorf("WithLength: got length %v", w.Length())
	}
	if !almostEqual(w.X, 6) || !almostEqual(w.Y, 8) {
		t.Errorf("WithLength changed direction: %+v", w)
	}

	// The zero vector has no direction and must stay zero.
	z := Vec(0, 0).WithLength(5)
	if !z.IsZero() {
		t.Errorf("WithLength on zero vector: got %+v", z)
	}
}

func TestReflect(t *testing.T) {
	// Velocity heading down-right reflected off a horizontal floor
	// (normal pointing up) keeps X and inverts Y.
	v := Vec(2, -3)
	r := v.Reflect(Vec(0, 1))
	if !almostEqual(r.X, 2) || !almostEqual(r.Y, 3) {
		t.Errorf("Reflect off floor: got %+v", r)
	}

	// Reflecting off a vertical wall inverts X.
	r = v.Reflect(Vec(1, 0))
	if !almostEqual(r.X, -2) || !almostEqual(r.Y, -3) {
		t.Errorf("Reflect off wall: got %+v", r)
	}
}

func TestClampF(t *testing.T) {
	if got := ClampF(5, 0, 3); got != 3 {
		t.Errorf("ClampF above max: got %v", got)
	}
	if got := ClampF(-1, 0, 3); got != 0 {
		t.Errorf("ClampF below min: got %v", got)
	}
	if got := ClampF(2, 0, 3); got != 2 {
		t.Errorf("ClampF in range: got %v", got)
	}
}

func TestClampLength(t *testing.T) {
	slow := Vec(0.03, 0.04) // length 0.05
	c := ClampLength(slow, 0.1, 3)
	if !almostEqual(c.Length(), 0.1) {
		t.Errorf("ClampLength below min: got length %v", c.Length())
	}

	fast := Vec(30, 40) // length 50
	c = ClampLength(fast, 0.1, 3)
	if !almostEqual(c.Length(), 3) {
		t.Errorf("ClampLength above max: got length %v", c.Length())
	}

	ok := Vec(1, 1)
	c = ClampLength(ok, 0.1, 3)
	if c != ok {
		t.Errorf("ClampLength in range changed vector: %+v", c)
	}

	z := ClampLength(Vec(0, 0), 0.1, 3)
	if !z.IsZero() {
		t.Errorf("ClampLength on zero vector: got %+v", z)
	}
}

func TestEaseInOutCos(t *testing.T) {
	if !almostEqual(EaseInOutCos(0), 0) {
		t.Errorf("ease at 0: got %v", EaseInOutCos(0))
	}
	if !almostEqual(EaseInOutCos(1), 1) {
		t.Errorf("ease at 1: got %v", EaseInOutCos(1))
	}
	if !almostEqual(EaseInOutCos(0.5), 0.5) {
		t.Errorf("ease at 0.5: got %v", EaseInOutCos(0.5))
	}
	// Monotonically increasing.
	prev := -1.0
	for i := 0; i <= 20; i++ {
		v := EaseInOutCos(float64(i) / 20)
		if v < prev {
			t.Fatalf("ease not monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
	// Clamped outside the unit interval.
	if EaseInOutCos(-2) != 0 || EaseInOutCos(2) != 1 {
		t.Error("ease should clamp outside [0,1]")
	}
}
