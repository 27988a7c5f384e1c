package decomposition

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/wpca/pkg/errors"
)

// TestPCA_RecoversKnownDirection checks that the first component of strongly
// correlated 2D data points along the known dominant direction.
func TestPCA_RecoversKnownDirection(t *testing.T) {
	// Points spread along the diagonal (1,1)/√2 with tiny off-axis noise.
	X := mat.NewDense(6, 2, []float64{
		-3.0, -3.01,
		-2.0, -1.99,
		-1.0, -1.02,
		1.0, 1.01,
		2.0, 1.98,
		3.0, 3.03,
	})

	pca := NewPCA(1)
	if err := pca.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	c0 := pca.Components.At(0, 0)
	c1 := pca.Components.At(0, 1)
	want := 1.0 / math.Sqrt2
	if math.Abs(math.Abs(c0)-want) > 1e-2 || math.Abs(math.Abs(c1)-want) > 1e-2 {
		t.Errorf("first component (%v, %v), want ±(%v, %v)", c0, c1, want, want)
	}
	// Nearly all variance lives on the first component.
	if pca.ExplainedVarianceRatio[0] < 0.999 {
		t.Errorf("explained variance ratio %v, want > 0.999", pca.ExplainedVarianceRatio[0])
	}
}

// TestPCA_ReconstructFullRank checks lossless reconstruction when all
// components are kept.
func TestPCA_ReconstructFullRank(t *testing.T) {
	X := randomData(9, 4, 19, []float64{3, 2, 1, 0.5})

	pca := NewPCA(4)
	if err := pca.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	recon, err := pca.Reconstruct(X)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	for i := 0; i < 9; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(X.At(i, j)-recon.At(i, j)) > 1e-10 {
				t.Errorf("recon[%d,%d] = %v, want %v", i, j, recon.At(i, j), X.At(i, j))
			}
		}
	}
}

// TestPCA_ExplainedVarianceRatioSumsToOne checks the ratio normalization at
// full rank.
func TestPCA_ExplainedVarianceRatioSumsToOne(t *testing.T) {
	X := randomData(12, 3, 29, []float64{2, 1, 0.5})

	pca := NewPCA(3)
	if err := pca.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var sum float64
	for _, r := range pca.ExplainedVarianceRatio {
		sum += r
	}
	if math.Abs(sum-1.0) > 1e-10 {
		t.Errorf("ratio sum = %v, want 1.0", sum)
	}
}

// TestPCA_FitTransformMatchesTransform checks estimator-level consistency.
func TestPCA_FitTransformMatchesTransform(t *testing.T) {
	X := randomData(14, 5, 37, []float64{4, 2, 1, 0.5, 0.25})

	pca := NewPCA(2)
	ft, err := pca.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	tr, err := pca.Transform(X)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if !mat.EqualApprox(ft, tr, 1e-12) {
		t.Error("FitTransform and Transform disagree on the training data")
	}
}

// TestPCA_Errors covers validation and lifecycle error paths.
func TestPCA_Errors(t *testing.T) {
	X := randomData(5, 3, 43, []float64{2, 1, 0.5})

	if err := NewPCA(4).Fit(X); err == nil {
		t.Error("expected error for n_components > min(n, d)")
	} else {
		var de *errors.DimensionError
		if !errors.As(err, &de) {
			t.Errorf("expected DimensionError, got %T", err)
		}
	}

	if err := NewPCA(0).Fit(X); err == nil {
		t.Error("expected error for n_components = 0")
	}

	if _, err := NewPCA(2).Transform(X); err == nil {
		t.Error("expected NotFittedError for Transform before Fit")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFittedError, got %T", err)
		}
	}
}
