// Package autodiff implements forward-mode automatic differentiation over
// a small dense-gradient Dual scalar. It is the single source of truth
// behind the projection kernel's autodiff variant: rather than carrying
// two hand-derived chain rules, the pinhole
// + Brown–Conrady projection is written once against Dual and once against
// plain float64, and the two are property-tested against each other.
package autodiff

// Dual carries a value and its gradient with respect to a fixed-size
// variable vector. Operations propagate the gradient via the chain rule.
type Dual struct {
	Val  float64
	Grad []float64
}

// Constant returns a Dual with zero gradient over n variables.
func Constant(v float64, n int) Dual {
	return Dual{Val: v, Grad: make([]float64, n)}
}

// Variable returns a Dual seeded as the index'th of n free variables:
// value v, gradient = the index'th standard basis vector.
func Variable(v float64, index, n int) Dual {
	d := Constant(v, n)
	d.Grad[index] = 1
	return d
}

func (d Dual) n() int { return len(d.Grad) }

func (d Dual) Add(o Dual) Dual {
	out := Constant(d.Val+o.Val, d.n())
	for i := range out.Grad {
		out.Grad[i] = d.Grad[i] + o.Grad[i]
	}
	return out
}

func (d Dual) Sub(o Dual) Dual {
	out := Constant(d.Val-o.Val, d.n())
	for i := range out.Grad {
		out.Grad[i] = d.Grad[i] - o.Grad[i]
	}
	return out
}

func (d Dual) Neg() Dual {
	out := Constant(-d.Val, d.n())
	for i := range out.Grad {
		out.Grad[i] = -d.Grad[i]
	}
	return out
}

func (d Dual) Mul(o Dual) Dual {
	out := Constant(d.Val*o.Val, d.n())
	for i := range out.Grad {
		out.Grad[i] = d.Grad[i]*o.Val + d.Val*o.Grad[i]
	}
	return out
}

// Scale multiplies by a plain constant, shorthand for Mul(Constant(c, n)).
func (d Dual) Scale(c float64) Dual {
	out := Constant(d.Val*c, d.n())
	for i := range out.Grad {
		out.Grad[i] = d.Grad[i] * c
	}
	return out
}

// AddConst adds a plain constant to the value, leaving the gradient alone.
func (d Dual) AddConst(c float64) Dual {
	out := Constant(d.Val+c, d.n())
	copy(out.Grad, d.Grad)
	return out
}

func (d Dual) Div(o Dual) Dual {
	out := Constant(d.Val/o.Val, d.n())
	inv := 1 / (o.Val * o.Val)
	for i := range out.Grad {
		out.Grad[i] = (d.Grad[i]*o.Val - d.Val*o.Grad[i]) * inv
	}
	return out
}

func (d Dual) Square() Dual {
	return d.Mul(d)
}
