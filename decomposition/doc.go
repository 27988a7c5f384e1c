// Package decomposition provides principal component analysis estimators
// for tabular numeric data, including a weighted variant that handles
// per-measurement reliability and missing values.
//
// Two estimators are provided:
//
//   - PCA: standard principal component analysis via singular value
//     decomposition. Assumes every measurement is equally reliable.
//
//   - EMPCA: Expectation-Maximization PCA following Bailey (2012, PASP,
//     arXiv:1208.4122). Accepts a non-negative weight matrix of the same
//     shape as the data; each weight encodes the reliability of a single
//     measurement (the inverse of its Gaussian error bar), and a weight of
//     zero marks the measurement as missing. The value stored in a
//     zero-weight cell is never read, so NaN placeholders are safe.
//
// With uniform weights EMPCA converges to the same subspace as PCA, up to
// per-component sign. The EM iteration runs for a fixed number of cycles by
// default, exactly like the reference algorithm; an optional tolerance turns
// on early stopping as a strict superset of that behavior.
//
// The lower-level building blocks — Orthonormalize, RandomOrthonormal and
// SolveWeighted — are exported for callers assembling their own iterative
// factorizations.
package decomposition
