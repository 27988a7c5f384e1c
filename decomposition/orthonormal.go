package decomposition

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/wpca/pkg/errors"
)

// rankTol is the residual-norm threshold below which a row is treated as
// linearly dependent on the rows before it.
const rankTol = 1e-12

// Orthonormalize makes the rows of m mutually orthonormal in place using
// modified Gram-Schmidt, processing rows in order: row i is made orthogonal
// to rows 0..i-1 and then normalized to unit length. The span of the first
// i rows is preserved for every i.
//
// Requires rows <= cols. If a row's residual norm after removing the
// projections onto earlier rows falls below 1e-12, the rows are linearly
// dependent and a RankDeficiencyError is returned; no arbitrary completion
// vector is substituted. Rows before the offending one are left orthonormal.
func Orthonormalize(m *mat.Dense) error {
	r, c := m.Dims()
	if r > c {
		return errors.NewDimensionError("Orthonormalize", c, r, 0)
	}
	return orthonormalizePrefix(m, r)
}

// orthonormalizePrefix applies modified Gram-Schmidt to the first n rows of
// m, leaving the remaining rows untouched. The M-step calls this after every
// single row update so that the deflation for row i+1 sees an orthonormal
// prefix 0..i.
func orthonormalizePrefix(m *mat.Dense, n int) error {
	for i := 0; i < n; i++ {
		ri := m.RawRowView(i)
		for j := 0; j < i; j++ {
			rj := m.RawRowView(j)
			floats.AddScaled(ri, -floats.Dot(rj, ri), rj)
		}
		norm := floats.Norm(ri, 2)
		if norm < rankTol {
			return errors.NewRankDeficiencyError("Orthonormalize", i, norm)
		}
		floats.Scale(1/norm, ri)
	}
	return nil
}

// RandomOrthonormal returns a k×d matrix whose rows are mutually orthonormal
// unit vectors, obtained by orthonormalizing a standard-normal draw from rng.
// The result is reproducible for a fixed generator; a nil rng is replaced by
// a time-seeded one.
//
// k must satisfy 1 <= k <= d: no orthonormal set of more than d vectors
// exists in d dimensions, so k > d returns a DimensionError.
func RandomOrthonormal(k, d int, rng *rand.Rand) (*mat.Dense, error) {
	if k < 1 {
		return nil, errors.NewValidationError("k", "must be a positive integer", k)
	}
	if d < 1 {
		return nil, errors.NewValidationError("d", "must be a positive integer", d)
	}
	if k > d {
		return nil, errors.NewDimensionError("RandomOrthonormal", d, k, 1)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m := mat.NewDense(k, d, nil)
	for i := 0; i < k; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
	}

	// Gaussian rows with k <= d are almost surely independent, but the
	// rank check still guards against a pathological draw.
	if err := Orthonormalize(m); err != nil {
		return nil, err
	}
	return m, nil
}
