package residual

import (
	"github.com/mfagerlund/rotera-core/autodiff"
	"github.com/mfagerlund/rotera-core/projection"
)

// NewQuaternionNorm penalises drift of a pose quaternion away from unit
// length. Refs = [qw,qx,qy,qz].
func NewQuaternionNorm(name string, refs [4]ParamRef) Provider {
	return Provider{Kind: KindQuaternionNorm, Name: name, Refs: refs[:], N: 1}
}

func (p Provider) evalQuaternionNorm(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	w, qx, qy, qz := ds[0], ds[1], ds[2], ds[3]
	sq := w.Square().Add(qx.Square()).Add(qy.Square()).Add(qz.Square())
	return []autodiff.Dual{sq.AddConst(-1)}
}

// NewReprojection builds a reprojection residual with fixed intrinsics.
// Refs = [Px,Py,Pz, Cx,Cy,Cz, qw,qx,qy,qz] (point then camera pose).
func NewReprojection(name string, refs [10]ParamRef, observedU, observedV float64, intr projection.Intrinsics, zReflected bool) Provider {
	return Provider{
		Kind: KindReprojection, Name: name, Refs: refs[:], N: 2,
		ObservedU: observedU, ObservedV: observedV, Intrinsics: intr, ZReflected: zReflected,
	}
}

// NewReprojectionIntrinsics is NewReprojection with the focal length
// promoted to a free variable. Refs = [Px,Py,Pz, Cx,Cy,Cz, qw,qx,qy,qz, f].
// The remaining intrinsics (aspect ratio, principal point, skew,
// distortion) still come from intr as constants.
func NewReprojectionIntrinsics(name string, refs [11]ParamRef, observedU, observedV float64, intr projection.Intrinsics, zReflected bool) Provider {
	return Provider{
		Kind: KindReprojectionIntrinsics, Name: name, Refs: refs[:], N: 2,
		ObservedU: observedU, ObservedV: observedV, Intrinsics: intr, ZReflected: zReflected,
	}
}

// NewReprojectionDistortion is NewReprojectionIntrinsics with the
// Brown-Conrady coefficients promoted as well (optimize_distortion).
// Refs = [Px,Py,Pz, Cx,Cy,Cz, qw,qx,qy,qz, f, k1,k2,k3,p1,p2].
func NewReprojectionDistortion(name string, refs [16]ParamRef, observedU, observedV float64, intr projection.Intrinsics, zReflected bool) Provider {
	return Provider{
		Kind: KindReprojectionIntrinsics, Name: name, Refs: refs[:], N: 2,
		ObservedU: observedU, ObservedV: observedV, Intrinsics: intr, ZReflected: zReflected,
	}
}

func (p Provider) evalReprojection(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	n := numFree(p.Refs)

	world := point3(ds, 0)
	center := point3(ds, 3)
	w, qx, qy, qz := ds[6], ds[7], ds[8], ds[9]

	camPoint := rotateByQuaternion(w, qx, qy, qz, sub3(world, center))
	if p.ZReflected {
		camPoint = neg3(camPoint)
	}

	focal := autodiff.Constant(p.Intrinsics.FocalLength, n)
	if p.Kind == KindReprojectionIntrinsics {
		focal = ds[10]
	}
	intr := projection.IntrinsicsDual{
		FocalLength: focal,
		AspectRatio: autodiff.Constant(p.Intrinsics.AspectRatio, n),
		Cx:          autodiff.Constant(p.Intrinsics.Cx, n),
		Cy:          autodiff.Constant(p.Intrinsics.Cy, n),
		Skew:        autodiff.Constant(p.Intrinsics.Skew, n),
		K1:          autodiff.Constant(p.Intrinsics.K1, n),
		K2:          autodiff.Constant(p.Intrinsics.K2, n),
		K3:          autodiff.Constant(p.Intrinsics.K3, n),
		P1:          autodiff.Constant(p.Intrinsics.P1, n),
		P2:          autodiff.Constant(p.Intrinsics.P2, n),
	}
	if len(ds) >= 16 {
		intr.K1, intr.K2, intr.K3 = ds[11], ds[12], ds[13]
		intr.P1, intr.P2 = ds[14], ds[15]
	}

	u, v, inFront := projection.ProjectAutodiff([3]autodiff.Dual{camPoint[0], camPoint[1], camPoint[2]}, intr)
	if !inFront {
		return []autodiff.Dual{autodiff.Constant(1000, n), autodiff.Constant(1000, n)}
	}
	return []autodiff.Dual{u.AddConst(-p.ObservedU), v.AddConst(-p.ObservedV)}
}

// NewVanishingLine constrains pose quaternion so world axis `axis`
// (0=x,1=y,2=z) rotates to back-projected direction vpDirection (already a
// unit vector in camera space). Refs = [qw,qx,qy,qz].
func NewVanishingLine(name string, refs [4]ParamRef, axis int, vpDirection [3]float64, weight float64) Provider {
	return Provider{
		Kind: KindVanishingLine, Name: name, Refs: refs[:], N: 1,
		Axis: axis, VPDirection: vpDirection, Weight: weight,
	}
}

func (p Provider) evalVanishingLine(x []float64) []autodiff.Dual {
	ds := toDuals(p.Refs, x)
	n := numFree(p.Refs)
	w, qx, qy, qz := ds[0], ds[1], ds[2], ds[3]

	var axisVec vec3
	for i := 0; i < 3; i++ {
		val := 0.0
		if i == p.Axis {
			val = 1
		}
		axisVec[i] = autodiff.Constant(val, n)
	}

	rotated := rotateByQuaternion(w, qx, qy, qz, axisVec)
	target := vec3{
		autodiff.Constant(p.VPDirection[0], n),
		autodiff.Constant(p.VPDirection[1], n),
		autodiff.Constant(p.VPDirection[2], n),
	}
	weight := p.Weight
	if weight == 0 {
		weight = 1
	}
	residual := autodiff.Constant(1, n).Sub(dot3(rotated, target)).Scale(weight)
	return []autodiff.Dual{residual}
}
