// Package wpca provides weighted principal component analysis for Go,
// designed for datasets where individual measurements carry their own
// error bars or may be missing entirely.
//
// Standard PCA assumes every entry of the data matrix is equally reliable.
// WPCA instead solves a weighted low-rank approximation problem with an
// Expectation-Maximization iteration, so noisy measurements can be
// down-weighted and missing ones ignored by giving them zero weight.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/wpca/decomposition"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 3, []float64{
//	        1.0, 2.0, 3.0,
//	        2.1, 3.9, 6.2,
//	        2.9, 6.1, 8.8,
//	        4.2, 7.8, 12.1,
//	    })
//	    // Down-weight one unreliable measurement.
//	    W := mat.NewDense(4, 3, []float64{
//	        1, 1, 1,
//	        1, 0.1, 1,
//	        1, 1, 1,
//	        1, 1, 1,
//	    })
//
//	    pca := decomposition.NewEMPCA(2, decomposition.WithRandomState(42))
//	    coeff, err := pca.FitTransform(X, W)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("coefficients:", mat.Formatted(coeff))
//	    fmt.Println("explained variance ratio:", pca.ExplainedVarianceRatio)
//	}
//
// # Packages
//
//   - decomposition: PCA and EMPCA estimators plus the orthonormalization
//     and weighted least-squares primitives they are built on
//   - core/model: estimator state tracking and transformer interfaces
//   - core/parallel: CPU-parallel helpers used by the weighted E-step
//   - pkg/errors: structured errors and warnings
//   - pkg/log: zerolog-based structured logging
package wpca
