package projection

import "github.com/mfagerlund/rotera-core/autodiff"

// IntrinsicsDual mirrors Intrinsics but carries every field as an
// autodiff.Dual so the reprojection+intrinsics residual family can
// expose the focal length (or any other selected intrinsic) as a free
// variable to the global Jacobian.
type IntrinsicsDual struct {
	FocalLength autodiff.Dual
	AspectRatio autodiff.Dual
	Cx, Cy      autodiff.Dual
	Skew        autodiff.Dual
	K1, K2, K3  autodiff.Dual
	P1, P2      autodiff.Dual
}

// ConstIntrinsicsDual lifts a plain Intrinsics into IntrinsicsDual with
// zero gradient everywhere (n variables in the surrounding Jacobian).
func ConstIntrinsicsDual(in Intrinsics, n int) IntrinsicsDual {
	c := func(v float64) autodiff.Dual { return autodiff.Constant(v, n) }
	return IntrinsicsDual{
		FocalLength: c(in.FocalLength),
		AspectRatio: c(in.AspectRatio),
		Cx:          c(in.Cx),
		Cy:          c(in.Cy),
		Skew:        c(in.Skew),
		K1:          c(in.K1),
		K2:          c(in.K2),
		K3:          c(in.K3),
		P1:          c(in.P1),
		P2:          c(in.P2),
	}
}

// ProjectAutodiff is the Dual-valued twin of ProjectPlain: same formula,
// same near-plane guard, carried through forward-mode AD so the caller
// gets both the projected pixel and its gradient w.r.t. whichever
// variables seeded camPoint/intr's Duals.
func ProjectAutodiff(camPoint [3]autodiff.Dual, intr IntrinsicsDual) (u, v autodiff.Dual, inFront bool) {
	n := len(camPoint[2].Grad)
	if camPoint[2].Val < NearPlane {
		return autodiff.Constant(0, n), autodiff.Constant(0, n), false
	}
	x := camPoint[0].Div(camPoint[2])
	y := camPoint[1].Div(camPoint[2])

	r2 := x.Square().Add(y.Square())
	r4 := r2.Square()
	r6 := r4.Mul(r2)
	radial := autodiff.Constant(1, n).Add(intr.K1.Mul(r2)).Add(intr.K2.Mul(r4)).Add(intr.K3.Mul(r6))

	xd := x.Mul(radial).
		Add(intr.P1.Scale(2).Mul(x).Mul(y)).
		Add(intr.P2.Mul(r2.Add(x.Square().Scale(2))))
	yd := y.Mul(radial).
		Add(intr.P1.Mul(r2.Add(y.Square().Scale(2)))).
		Add(intr.P2.Scale(2).Mul(x).Mul(y))

	fy := intr.FocalLength.Mul(intr.AspectRatio)
	u = intr.FocalLength.Mul(xd).Add(intr.Skew.Mul(yd)).Add(intr.Cx)
	v = fy.Mul(yd).Add(intr.Cy)
	return u, v, true
}
