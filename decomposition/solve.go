package decomposition

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/wpca/pkg/errors"
)

// SolveWeighted returns the coefficient vector c (length k) minimizing
//
//	Σ_j w_j² (x_j − Σ_i c_i B_{i,j})²
//
// where the rows of basis form the design matrix B (k×d). The rows are used
// as regressors and are not required to be orthonormal. A nil w is treated
// as uniform unit weights.
//
// The solve goes through the weighted normal equations: the k×k Gram matrix
// G = B diag(w²) Bᵀ is factorized with Cholesky, which requires G to be
// symmetric positive definite. If the factorization fails — for example
// when every weight is zero, or when too few nonzero-weight entries remain
// to determine k coefficients — a SingularSystemError is returned and no
// coefficient vector is produced. Callers that want a substitute value for
// degenerate samples must apply their own policy (the EM engine substitutes
// zeros and raises a DegenerateSampleWarning).
func SolveWeighted(basis *mat.Dense, x, w *mat.VecDense) (*mat.VecDense, error) {
	k, d := basis.Dims()
	if x.Len() != d {
		return nil, errors.NewDimensionError("SolveWeighted", d, x.Len(), 1)
	}
	if w != nil && w.Len() != d {
		return nil, errors.NewDimensionError("SolveWeighted", d, w.Len(), 1)
	}

	// G = B diag(w²) Bᵀ and b = B diag(w²) x, accumulated feature by
	// feature so zero-weight entries contribute nothing regardless of the
	// value stored in x (NaN placeholders included).
	gram := mat.NewSymDense(k, nil)
	rhs := mat.NewVecDense(k, nil)
	for a := 0; a < k; a++ {
		ra := basis.RawRowView(a)
		for b := a; b < k; b++ {
			rb := basis.RawRowView(b)
			var s float64
			if w == nil {
				for j := 0; j < d; j++ {
					s += ra[j] * rb[j]
				}
			} else {
				for j := 0; j < d; j++ {
					wj := w.AtVec(j)
					if wj == 0 {
						continue
					}
					s += wj * wj * ra[j] * rb[j]
				}
			}
			gram.SetSym(a, b, s)
		}

		var s float64
		if w == nil {
			for j := 0; j < d; j++ {
				s += ra[j] * x.AtVec(j)
			}
		} else {
			for j := 0; j < d; j++ {
				wj := w.AtVec(j)
				if wj == 0 {
					continue
				}
				s += wj * wj * ra[j] * x.AtVec(j)
			}
		}
		rhs.SetVec(a, s)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, errors.NewSingularSystemError("SolveWeighted", -1, k)
	}

	coeff := mat.NewVecDense(k, nil)
	if err := chol.SolveVecTo(coeff, rhs); err != nil {
		return nil, errors.NewSingularSystemError("SolveWeighted", -1, k)
	}
	return coeff, nil
}
