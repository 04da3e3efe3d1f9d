package polynomial

import (
	"math"
	"sort"
	"testing"

	"go.viam.com/test"
)

func assertRootsClose(t *testing.T, got, want []float64) {
	t.Helper()
	test.That(t, len(got), test.ShouldEqual, len(want))
	sort.Float64s(got)
	sort.Float64s(want)
	for i := range want {
		test.That(t, math.Abs(got[i]-want[i]), test.ShouldBeLessThan, 1e-6)
	}
}

func TestQuadraticTwoRoots(t *testing.T) {
	// x² - 5x + 6 = 0 -> {2, 3}
	assertRootsClose(t, Quadratic(1, -5, 6), []float64{2, 3})
}

func TestQuadraticNoRealRoots(t *testing.T) {
	roots := Quadratic(1, 0, 1) // x² + 1 = 0
	test.That(t, len(roots), test.ShouldEqual, 0)
}

func TestCubicThreeRealRoots(t *testing.T) {
	// (x-1)(x-2)(x-3) = x³ - 6x² + 11x - 6
	assertRootsClose(t, Cubic(1, -6, 11, -6), []float64{1, 2, 3})
}

func TestCubicOneRealRoot(t *testing.T) {
	// x³ - 1 = (x-1)(x²+x+1) -> one real root at x=1
	roots := Cubic(1, 0, 0, -1)
	assertRootsClose(t, roots, []float64{1})
}

func TestQuarticFourRealRoots(t *testing.T) {
	// (x-1)(x-2)(x-3)(x-4) = x⁴ - 10x³ + 35x² - 50x + 24
	assertRootsClose(t, Quartic(1, -10, 35, -50, 24), []float64{1, 2, 3, 4})
}

func TestQuarticBiquadratic(t *testing.T) {
	// x⁴ - 5x² + 4 = (x²-1)(x²-4) -> {-2,-1,1,2}
	assertRootsClose(t, Quartic(1, 0, -5, 0, 4), []float64{-2, -1, 1, 2})
}
