package residual

import "github.com/mfagerlund/rotera-core/autodiff"

// NewEqualDistances constrains every pair's length to match the first
// pair's. Refs holds k pairs of points, 6 scalars each
// ([A1x..B1z, A2x..B2z, ...]); N = k-1. Fewer than 2 pairs
// produces a zero-residual provider per the tie-break rule.
func NewEqualDistances(name string, refs []ParamRef) Provider {
	pairs := len(refs) / 6
	n := pairs - 1
	if n < 0 {
		n = 0
	}
	return Provider{Kind: KindEqualDistances, Name: name, Refs: refs, N: n}
}

func (p Provider) evalEqualDistances(x []float64) []autodiff.Dual {
	if p.N == 0 {
		return nil
	}
	ds := toDuals(p.Refs, x)
	first := norm3(sub3(point3(ds, 3), point3(ds, 0)))
	out := make([]autodiff.Dual, p.N)
	for i := 0; i < p.N; i++ {
		offset := 6 * (i + 1)
		d := norm3(sub3(point3(ds, offset+3), point3(ds, offset)))
		out[i] = d.Sub(first)
	}
	return out
}

// NewEqualAngles constrains every triple's included angle (at its middle
// point) to match the first triple's. Refs holds k triples, 9 scalars each
// ([P0x..P2z, ...]); N = k-1.
func NewEqualAngles(name string, refs []ParamRef) Provider {
	triples := len(refs) / 9
	n := triples - 1
	if n < 0 {
		n = 0
	}
	return Provider{Kind: KindEqualAngles, Name: name, Refs: refs, N: n}
}

func (p Provider) evalEqualAngles(x []float64) []autodiff.Dual {
	if p.N == 0 {
		return nil
	}
	ds := toDuals(p.Refs, x)
	tripleAngle := func(offset int) autodiff.Dual {
		p0, p1, p2 := point3(ds, offset), point3(ds, offset+3), point3(ds, offset+6)
		return angleBetween(sub3(p0, p1), sub3(p2, p1))
	}
	first := tripleAngle(0)
	out := make([]autodiff.Dual, p.N)
	for i := 0; i < p.N; i++ {
		out[i] = tripleAngle(9 * (i + 1)).Sub(first)
	}
	return out
}
