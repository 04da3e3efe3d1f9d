package linalg

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestCholeskyDenseSolvesKnownSystem(t *testing.T) {
	// H = [[4,1],[1,3]], b = [1,2] -> x = [1/11, 7/11]
	h := [][]float64{{4, 1}, {1, 3}}
	b := []float64{1, 2}
	x, err := CholeskyDense(h, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(x[0]-1.0/11.0), test.ShouldBeLessThan, 1e-9)
	test.That(t, math.Abs(x[1]-7.0/11.0), test.ShouldBeLessThan, 1e-9)
}

func TestCholeskyDenseRejectsSingular(t *testing.T) {
	h := [][]float64{{1, 2}, {2, 4}}
	_, err := CholeskyDense(h, []float64{1, 1})
	test.That(t, err, test.ShouldNotBeNil)
}
