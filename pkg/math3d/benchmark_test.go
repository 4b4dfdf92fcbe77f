package math3d

import (
	"math"
	"testing"
)

// tileTransform is the chain applied to every primitive instance.
func tileTransform() Mat4 {
	local := RotateX(math.Pi / 2).Mul(TRS(V3(1, 2, 3), [4]float64{0, 0, math.Sin(0.3), math.Cos(0.3)}, V3(1, 1, 1)))
	return RotateX(-math.Pi / 2).Mul(Translate(V3(6378137, 0, 0))).Mul(local)
}

func BenchmarkMat4Mul(b *testing.B) {
	m1 := RotateX(-math.Pi / 2)
	m2 := tileTransform()

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4InverseAffine(b *testing.B) {
	m := tileTransform()

	for b.Loop() {
		_ = m.Inverse()
	}
}

func BenchmarkMat4InverseProjective(b *testing.B) {
	m := Perspective(math.Pi/3, 1.5, 0.1, 1000).Mul(tileTransform())

	for b.Loop() {
		_ = m.Inverse()
	}
}

func BenchmarkMat4MulVec3(b *testing.B) {
	m := tileTransform()
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = m.MulVec3(v)
	}
}

func BenchmarkTRS(b *testing.B) {
	q := [4]float64{0, math.Sin(0.2), 0, math.Cos(0.2)}

	for b.Loop() {
		_ = TRS(V3(1, 2, 3), q, V3(2, 2, 2))
	}
}
