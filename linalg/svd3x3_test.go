package linalg

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestSVD3x3ReconstructsInput(t *testing.T) {
	a := Mat3{{2, 1, 0}, {0, 3, 1}, {1, 0, 2}}
	u, sigma, v := SVD3x3(a)

	var sigmaMat Mat3
	sigmaMat[0][0], sigmaMat[1][1], sigmaMat[2][2] = sigma[0], sigma[1], sigma[2]

	reconstructed := Mul3x3(Mul3x3(u, sigmaMat), Transpose3x3(v))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, math.Abs(reconstructed[i][j]-a[i][j]), test.ShouldBeLessThan, 1e-6)
		}
	}
}

func TestSVD3x3SingularValuesDescending(t *testing.T) {
	a := Mat3{{2, 1, 0}, {0, 3, 1}, {1, 0, 2}}
	_, sigma, _ := SVD3x3(a)
	test.That(t, sigma[0] >= sigma[1], test.ShouldBeTrue)
	test.That(t, sigma[1] >= sigma[2], test.ShouldBeTrue)
}

func TestOrthogonaliseRotationProducesSO3(t *testing.T) {
	// A slightly drifted rotation matrix (not quite orthonormal).
	m := Mat3{{1.01, 0, 0}, {0, 0.99, 0.02}, {0, -0.02, 1.0}}
	r := OrthogonaliseRotation(m)

	rt := Transpose3x3(r)
	product := Mul3x3(r, rt)
	identity := Identity3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, math.Abs(product[i][j]-identity[i][j]), test.ShouldBeLessThan, 1e-6)
		}
	}
	test.That(t, Det3x3(r), test.ShouldBeGreaterThan, 0.0)
}
