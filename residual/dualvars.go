package residual

import "github.com/mfagerlund/rotera-core/autodiff"

// freeSlots returns, for each ref, its position among the provider's own
// free (non-constant) slots, or -1 if the ref is constant, along with the
// total free count: the provider's own Jacobian column count, assembled
// as a dense block over this provider's columns.
func freeSlots(refs []ParamRef) ([]int, int) {
	local := make([]int, len(refs))
	n := 0
	for i, r := range refs {
		if r.IsConstant {
			local[i] = -1
			continue
		}
		local[i] = n
		n++
	}
	return local, n
}

// toDuals lifts refs into autodiff.Duals seeded against this provider's
// own local variable space (not the global parameter vector), so the
// Jacobian returned by ComputeJacobian is already the dense k-column block
// the global CSR assembly expects.
func toDuals(refs []ParamRef, x []float64) []autodiff.Dual {
	local, n := freeSlots(refs)
	out := make([]autodiff.Dual, len(refs))
	for i, r := range refs {
		v := r.value(x)
		if local[i] < 0 {
			out[i] = autodiff.Constant(v, n)
		} else {
			out[i] = autodiff.Variable(v, local[i], n)
		}
	}
	return out
}

// numFree counts refs' non-constant slots.
func numFree(refs []ParamRef) int {
	_, n := freeSlots(refs)
	return n
}

// variableIndices returns the global parameter-vector indices of refs'
// free slots, in the order their Jacobian columns appear.
func variableIndices(refs []ParamRef) []int {
	var out []int
	for _, r := range refs {
		if !r.IsConstant {
			out = append(out, r.Index)
		}
	}
	return out
}
