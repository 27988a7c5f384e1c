package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// WeightedTransformer は測定値ごとの信頼度重みを受け取るデータ変換のインターフェース。
// weightsはXと同形状の非負行列で、nilの場合は一様な単位重みとして扱われる。
// 重みゼロの要素は「欠損した測定値」を意味し、値は一切参照されない。
type WeightedTransformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X, weights mat.Matrix) error

	// Transform はデータを変換する
	Transform(X, weights mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X, weights mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は変換を元の空間へ逆写像できる変換のインターフェース
type InverseTransformer interface {
	// InverseTransform は変換後のデータを元の空間に戻す
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}
