package residual

import "github.com/mfagerlund/rotera-core/autodiff"

// NewParallelLines forces line A-B parallel to line C-D. Refs =
// [Ax,Ay,Az,Bx,By,Bz,Cx,Cy,Cz,Dx,Dy,Dz].
func NewParallelLines(name string, refs [12]ParamRef) Provider {
	return Provider{Kind: KindParallelLines, Name: name, Refs: refs[:], N: 3}
}

func (p Provider) evalParallelLines(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	dirAB := normalize3(sub3(point3(ds, 3), point3(ds, 0)))
	dirCD := normalize3(sub3(point3(ds, 9), point3(ds, 6)))
	cr := cross3(dirAB, dirCD)
	return []autodiff.Dual{cr[0], cr[1], cr[2]}
}

// NewPerpendicularLines forces line A-B perpendicular to line C-D. Refs =
// [Ax,Ay,Az,Bx,By,Bz,Cx,Cy,Cz,Dx,Dy,Dz].
func NewPerpendicularLines(name string, refs [12]ParamRef) Provider {
	return Provider{Kind: KindPerpendicularLines, Name: name, Refs: refs[:], N: 1}
}

func (p Provider) evalPerpendicularLines(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	dirAB := normalize3(sub3(point3(ds, 3), point3(ds, 0)))
	dirCD := normalize3(sub3(point3(ds, 9), point3(ds, 6)))
	return []autodiff.Dual{dot3(dirAB, dirCD)}
}

// NewAngleLineLine constrains the angle between line A-B and line C-D to
// target radians. Refs = [Ax,Ay,Az,Bx,By,Bz,Cx,Cy,Cz,Dx,Dy,Dz].
func NewAngleLineLine(name string, refs [12]ParamRef, targetRadians float64) Provider {
	return Provider{Kind: KindAngleLineLine, Name: name, Refs: refs[:], N: 1, Target: targetRadians}
}

func (p Provider) evalAngleLineLine(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	dirAB := sub3(point3(ds, 3), point3(ds, 0))
	dirCD := sub3(point3(ds, 9), point3(ds, 6))
	return []autodiff.Dual{angleBetween(dirAB, dirCD).AddConst(-p.Target)}
}

// NewAnglePointPointPoint constrains the angle at B between rays B->A and
// B->C to target radians. Refs = [Ax,Ay,Az,Bx,By,Bz,Cx,Cy,Cz].
func NewAnglePointPointPoint(name string, refs [9]ParamRef, targetRadians float64) Provider {
	return Provider{Kind: KindAnglePointPointPoint, Name: name, Refs: refs[:], N: 1, Target: targetRadians}
}

func (p Provider) evalAnglePointPointPoint(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	a, b, c := point3(ds, 0), point3(ds, 3), point3(ds, 6)
	return []autodiff.Dual{angleBetween(sub3(a, b), sub3(c, b)).AddConst(-p.Target)}
}
