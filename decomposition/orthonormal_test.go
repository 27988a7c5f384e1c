package decomposition

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/wpca/pkg/errors"
)

// TestOrthonormalize_GramIdentity checks that the Gram matrix of the
// orthonormalized rows equals the identity to numerical tolerance.
func TestOrthonormalize_GramIdentity(t *testing.T) {
	m := mat.NewDense(4, 6, []float64{
		1.0, 2.0, -0.5, 3.0, 0.1, 1.1,
		0.3, -1.2, 2.5, 0.7, 1.9, -0.4,
		-2.1, 0.8, 0.6, -1.5, 2.2, 0.9,
		0.5, 0.5, -1.7, 2.4, -0.3, 1.6,
	})

	if err := Orthonormalize(m); err != nil {
		t.Fatalf("Orthonormalize failed: %v", err)
	}

	var gram mat.Dense
	gram.Mul(m, m.T())
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(gram.At(i, j)-want) > 1e-10 {
				t.Errorf("gram[%d,%d] = %v, want %v", i, j, gram.At(i, j), want)
			}
		}
	}
}

// TestOrthonormalize_PreservesSubspaceChain checks that for every i the
// span of the first i output rows contains the first i input rows.
func TestOrthonormalize_PreservesSubspaceChain(t *testing.T) {
	orig := mat.NewDense(3, 5, []float64{
		2.0, 1.0, 0.0, -1.0, 0.5,
		1.0, -1.0, 2.0, 0.3, -0.7,
		0.2, 2.2, -1.1, 1.4, 0.9,
	})
	m := mat.DenseCopyOf(orig)

	if err := Orthonormalize(m); err != nil {
		t.Fatalf("Orthonormalize failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		// Project original row i onto output rows 0..i and check the
		// residual vanishes.
		resid := make([]float64, 5)
		for j := 0; j < 5; j++ {
			resid[j] = orig.At(i, j)
		}
		for p := 0; p <= i; p++ {
			var dot float64
			for j := 0; j < 5; j++ {
				dot += m.At(p, j) * orig.At(i, j)
			}
			for j := 0; j < 5; j++ {
				resid[j] -= dot * m.At(p, j)
			}
		}
		var norm float64
		for j := 0; j < 5; j++ {
			norm += resid[j] * resid[j]
		}
		if math.Sqrt(norm) > 1e-10 {
			t.Errorf("input row %d not in span of first %d output rows (residual %v)", i, i+1, math.Sqrt(norm))
		}
	}
}

// TestOrthonormalize_RankDeficient checks that a linearly dependent row is
// rejected with a RankDeficiencyError naming the offending row.
func TestOrthonormalize_RankDeficient(t *testing.T) {
	m := mat.NewDense(3, 4, []float64{
		1.0, 2.0, 3.0, 4.0,
		0.5, -1.0, 0.2, 0.8,
		2.0, 4.0, 6.0, 8.0, // 2x row 0
	})

	err := Orthonormalize(m)
	if err == nil {
		t.Fatal("expected RankDeficiencyError, got nil")
	}
	var rankErr *errors.RankDeficiencyError
	if !errors.As(err, &rankErr) {
		t.Fatalf("expected RankDeficiencyError, got %T: %v", err, err)
	}
	if rankErr.Row != 2 {
		t.Errorf("expected offending row 2, got %d", rankErr.Row)
	}
}

// TestOrthonormalize_MoreRowsThanCols checks the hard precondition m <= d.
func TestOrthonormalize_MoreRowsThanCols(t *testing.T) {
	m := mat.NewDense(4, 3, nil)
	err := Orthonormalize(m)
	if err == nil {
		t.Fatal("expected DimensionError, got nil")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %T: %v", err, err)
	}
}

// TestRandomOrthonormal_Reproducible checks that a fixed seed yields a fixed
// basis and that the basis is orthonormal.
func TestRandomOrthonormal_Reproducible(t *testing.T) {
	a, err := RandomOrthonormal(3, 7, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("RandomOrthonormal failed: %v", err)
	}
	b, err := RandomOrthonormal(3, 7, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("RandomOrthonormal failed: %v", err)
	}

	if !mat.Equal(a, b) {
		t.Error("same seed produced different bases")
	}

	var gram mat.Dense
	gram.Mul(a, a.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(gram.At(i, j)-want) > 1e-10 {
				t.Errorf("gram[%d,%d] = %v, want %v", i, j, gram.At(i, j), want)
			}
		}
	}

	c, err := RandomOrthonormal(3, 7, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("RandomOrthonormal failed: %v", err)
	}
	if mat.Equal(a, c) {
		t.Error("different seeds produced identical bases")
	}
}

// TestRandomOrthonormal_InvalidDims checks the k > d precondition and
// non-positive sizes.
func TestRandomOrthonormal_InvalidDims(t *testing.T) {
	if _, err := RandomOrthonormal(5, 3, rand.New(rand.NewSource(1))); err == nil {
		t.Error("expected error for k > d")
	} else {
		var dimErr *errors.DimensionError
		if !errors.As(err, &dimErr) {
			t.Errorf("expected DimensionError for k > d, got %T", err)
		}
	}

	if _, err := RandomOrthonormal(0, 3, nil); err == nil {
		t.Error("expected error for k = 0")
	}
	if _, err := RandomOrthonormal(2, 0, nil); err == nil {
		t.Error("expected error for d = 0")
	}
}
