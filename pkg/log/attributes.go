// Package log defines standard attribute keys for decomposition operations.
//
// Using these keys consistently enables structured analysis and filtering of
// logs emitted during fitting and transformation. The keys follow a
// hierarchical naming convention (e.g. "model.name", "data.samples").
package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "EMPCA", "PCA"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "transform", "fit_transform", "inverse_transform"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "decomposition"
	ComponentKey = "ml.component"
)

// Data shape and characteristics.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ComponentsKey indicates the number of principal components requested.
	ComponentsKey = "model.n_components"

	// WeightedKey indicates whether a weight matrix was supplied.
	WeightedKey = "data.weighted"
)

// Iteration and performance.
const (
	// IterationKey records the current iteration of the EM loop.
	IterationKey = "training.iteration"

	// MaxIterKey records the configured iteration budget.
	MaxIterKey = "training.max_iter"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// ResidualKey records the weighted reconstruction residual.
	ResidualKey = "training.residual"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit              = "fit"
	OperationTransform        = "transform"
	OperationFitTransform     = "fit_transform"
	OperationInverseTransform = "inverse_transform"
	OperationReconstruct      = "reconstruct"
)
