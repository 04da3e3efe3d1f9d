package residual

import "github.com/mfagerlund/rotera-core/autodiff"

func point3(ds []autodiff.Dual, offset int) vec3 {
	return vec3{ds[offset], ds[offset+1], ds[offset+2]}
}

// NewFixedPoint pins a point to a literal (x0,y0,z0). Refs = [x,y,z].
func NewFixedPoint(name string, refs [3]ParamRef, target [3]float64) Provider {
	return Provider{Kind: KindFixedPoint, Name: name, Refs: refs[:], N: 3, Target3: target}
}

func (p Provider) evalFixedPoint(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	weight := p.Weight
	if weight == 0 {
		weight = 1
	}
	return []autodiff.Dual{
		ds[0].AddConst(-p.Target3[0]).Scale(weight),
		ds[1].AddConst(-p.Target3[1]).Scale(weight),
		ds[2].AddConst(-p.Target3[2]).Scale(weight),
	}
}

// NewDistancePointPoint constrains ‖B−A‖ to target d. Refs = [Ax,Ay,Az,Bx,By,Bz].
func NewDistancePointPoint(name string, refs [6]ParamRef, target float64) Provider {
	return Provider{Kind: KindDistancePointPoint, Name: name, Refs: refs[:], N: 1, Target: target}
}

func (p Provider) evalDistancePointPoint(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	dist := norm3(sub3(point3(ds, 3), point3(ds, 0)))
	return []autodiff.Dual{dist.AddConst(-p.Target).Scale(1 / p.Target)}
}

// NewLineLength constrains ‖B−A‖ to target length L. Refs = [Ax,Ay,Az,Bx,By,Bz].
func NewLineLength(name string, refs [6]ParamRef, target float64) Provider {
	return Provider{Kind: KindLineLength, Name: name, Refs: refs[:], N: 1, Target: target}
}

func (p Provider) evalLineLength(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	dist := norm3(sub3(point3(ds, 3), point3(ds, 0)))
	return []autodiff.Dual{dist.AddConst(-p.Target).Scale(100 / p.Target)}
}

// NewCoincident forces P onto the line A-B. Refs = [Ax,Ay,Az,Bx,By,Bz,Px,Py,Pz].
func NewCoincident(name string, refs [9]ParamRef) Provider {
	return Provider{Kind: KindCoincident, Name: name, Refs: refs[:], N: 3}
}

func (p Provider) evalCoincident(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	a, b, pt := point3(ds, 0), point3(ds, 3), point3(ds, 6)
	cr := cross3(sub3(pt, a), sub3(b, a))
	return []autodiff.Dual{cr[0].Scale(10), cr[1].Scale(10), cr[2].Scale(10)}
}

// NewLineDirection forces the listed components (0=x,1=y,2=z) of B−A to
// zero. Refs = [Ax,Ay,Az,Bx,By,Bz].
func NewLineDirection(name string, refs [6]ParamRef, forcedZero []int) Provider {
	return Provider{Kind: KindLineDirection, Name: name, Refs: refs[:], N: len(forcedZero), ForcedZero: forcedZero}
}

func (p Provider) evalLineDirection(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	delta := sub3(point3(ds, 3), point3(ds, 0))
	out := make([]autodiff.Dual, len(p.ForcedZero))
	for i, c := range p.ForcedZero {
		out[i] = delta[c].Scale(100)
	}
	return out
}

// NewDistancePointPlane constrains the distance from P to the plane
// through A, B, C to target. Refs = [Px,Py,Pz,Ax,Ay,Az,Bx,By,Bz,Cx,Cy,Cz].
func NewDistancePointPlane(name string, refs [12]ParamRef, target float64) Provider {
	return Provider{Kind: KindDistancePointPlane, Name: name, Refs: refs[:], N: 1, Target: target}
}

func (p Provider) evalDistancePointPlane(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	pt, a, b, c := point3(ds, 0), point3(ds, 3), point3(ds, 6), point3(ds, 9)
	normal := normalize3(cross3(sub3(b, a), sub3(c, a)))
	dist := dot3(sub3(pt, a), normal)
	scale := p.Target
	if scale == 0 {
		scale = 1
	}
	return []autodiff.Dual{dist.AddConst(-p.Target).Scale(1 / scale)}
}

// NewCollinearPoints forces every point after the first two onto the line
// through them. Refs = [Ax,Ay,Az,Bx,By,Bz, P3..Pn] (3 scalars per extra
// point); residual dimension is 3*(len(points)-2), the same
// cross-product tie-break used by Coincident-shaped families.
func NewCollinearPoints(name string, refs []ParamRef) Provider {
	extra := (len(refs) - 6) / 3
	return Provider{Kind: KindCollinearPoints, Name: name, Refs: refs, N: 3 * extra}
}

func (p Provider) evalCollinearPoints(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	a, b := point3(ds, 0), point3(ds, 3)
	n := (len(ds) - 6) / 3
	out := make([]autodiff.Dual, 0, 3*n)
	for i := 0; i < n; i++ {
		pt := point3(ds, 6+3*i)
		cr := cross3(sub3(pt, a), sub3(b, a))
		out = append(out, cr[0].Scale(10), cr[1].Scale(10), cr[2].Scale(10))
	}
	return out
}

// NewCoplanarPoints forces every point after the first three onto the
// plane they define. Refs = [P0..P2 (reference triple), P3..Pn]; residual
// dimension n-3, one signed-volume term per extra point.
func NewCoplanarPoints(name string, refs []ParamRef) Provider {
	extra := len(refs)/3 - 3
	return Provider{Kind: KindCoplanarPoints, Name: name, Refs: refs, N: extra}
}

func (p Provider) evalCoplanarPoints(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	p0, p1, p2 := point3(ds, 0), point3(ds, 3), point3(ds, 6)
	edge1, edge2 := sub3(p1, p0), sub3(p2, p0)
	n := len(ds)/3 - 3
	out := make([]autodiff.Dual, n)
	for i := 0; i < n; i++ {
		pt := point3(ds, 9+3*i)
		out[i] = dot3(cross3(edge1, edge2), sub3(pt, p0)).Scale(1.0 / 6.0)
	}
	return out
}
