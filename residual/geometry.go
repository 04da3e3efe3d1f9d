package residual

import "github.com/mfagerlund/rotera-core/autodiff"

// vec3 is a 3-component dual vector, the residual package's own small
// algebra layer, kept separate from spatial.Pose/mgl64.Quat because those
// operate on plain float64 only and every residual family here needs
// gradients.
type vec3 [3]autodiff.Dual

func sub3(a, b vec3) vec3 {
	return vec3{a[0].Sub(b[0]), a[1].Sub(b[1]), a[2].Sub(b[2])}
}

func dot3(a, b vec3) autodiff.Dual {
	return a[0].Mul(b[0]).Add(a[1].Mul(b[1])).Add(a[2].Mul(b[2]))
}

func cross3(a, b vec3) vec3 {
	return vec3{
		a[1].Mul(b[2]).Sub(a[2].Mul(b[1])),
		a[2].Mul(b[0]).Sub(a[0].Mul(b[2])),
		a[0].Mul(b[1]).Sub(a[1].Mul(b[0])),
	}
}

func norm3(a vec3) autodiff.Dual {
	return autodiff.Sqrt(dot3(a, a))
}

func normalize3(a vec3) vec3 {
	n := norm3(a)
	return vec3{a[0].Div(n), a[1].Div(n), a[2].Div(n)}
}

func neg3(a vec3) vec3 {
	return vec3{a[0].Neg(), a[1].Neg(), a[2].Neg()}
}

// rotateByQuaternion applies the rotation matrix built from unit
// quaternion (w,x,y,z) to v, the standard quaternion-to-matrix expansion,
// written directly over Duals since mgl64.Quat only operates on float64
// (p_c = q·(p_w−C)·q*).
func rotateByQuaternion(w, x, y, z autodiff.Dual, v vec3) vec3 {
	two := func(d autodiff.Dual) autodiff.Dual { return d.Scale(2) }

	xx := x.Mul(x)
	yy := y.Mul(y)
	zz := z.Mul(z)
	xy := x.Mul(y)
	xz := x.Mul(z)
	yz := y.Mul(z)
	wx := w.Mul(x)
	wy := w.Mul(y)
	wz := w.Mul(z)

	one := autodiff.Constant(1, len(w.Grad))

	r00 := one.Sub(two(yy.Add(zz)))
	r01 := two(xy.Sub(wz))
	r02 := two(xz.Add(wy))
	r10 := two(xy.Add(wz))
	r11 := one.Sub(two(xx.Add(zz)))
	r12 := two(yz.Sub(wx))
	r20 := two(xz.Sub(wy))
	r21 := two(yz.Add(wx))
	r22 := one.Sub(two(xx.Add(yy)))

	return vec3{
		r00.Mul(v[0]).Add(r01.Mul(v[1])).Add(r02.Mul(v[2])),
		r10.Mul(v[0]).Add(r11.Mul(v[1])).Add(r12.Mul(v[2])),
		r20.Mul(v[0]).Add(r21.Mul(v[1])).Add(r22.Mul(v[2])),
	}
}
