package decomposition

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/wpca/core/model"
	"github.com/YuminosukeSato/wpca/pkg/errors"
)

// PCA は特異値分解による通常の（重みなし）主成分分析。
//
// 一様な信頼度のデータに対する標準のPCAで、EMPCAの重みなしケースと同じ
// 分解を閉形式で計算する。分散の規約はEMPCAと揃えており、説明分散は
// 標本数nで割った母分散ベースで計算する。
type PCA struct {
	model.BaseEstimator

	nComponents int

	// Components は正規直交な行ベクトルからなる k × n_features の基底行列
	Components *mat.Dense
	// Mean は各特徴量の平均
	Mean *mat.VecDense
	// SingularValues は保持した各成分に対応する特異値
	SingularValues []float64
	// ExplainedVariance は各成分の説明分散 s²/n_samples
	ExplainedVariance []float64
	// ExplainedVarianceRatio は全分散に対する各成分の割合
	ExplainedVarianceRatio []float64

	nFeatures int
}

// NewPCA は新しいPCAを作成する
//
// パラメータ:
//   - nComponents: 抽出する主成分数（1以上、min(n_samples, n_features)以下）
func NewPCA(nComponents int) *PCA {
	return &PCA{nComponents: nComponents}
}

// Fit は中心化したデータの特異値分解で主成分を学習する
func (p *PCA) Fit(X mat.Matrix) error {
	_, err := p.FitTransform(X)
	return err
}

// FitTransform は主成分を学習し、Xを主成分空間の係数に変換して返す
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError("PCA.FitTransform", "empty data", errors.ErrEmptyData)
	}
	if p.nComponents < 1 {
		return nil, errors.NewValidationError("n_components", "must be a positive integer", p.nComponents)
	}
	maxRank := n
	if d < n {
		maxRank = d
	}
	if p.nComponents > maxRank {
		return nil, errors.NewDimensionError("PCA.FitTransform", maxRank, p.nComponents, 1)
	}

	p.nFeatures = d
	p.Mean = weightedMean(X, nil)
	Xc := centerData(X, nil, p.Mean)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return nil, errors.NewValueError("PCA.FitTransform", "SVD factorization failed")
	}

	var v mat.Dense
	svd.VTo(&v)
	sv := svd.Values(nil)

	// vの列が右特異ベクトル。上位k本を行として保持する。
	k := p.nComponents
	p.Components = mat.NewDense(k, d, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < d; j++ {
			p.Components.Set(i, j, v.At(j, i))
		}
	}

	p.SingularValues = make([]float64, k)
	p.ExplainedVariance = make([]float64, k)
	p.ExplainedVarianceRatio = make([]float64, k)

	var totalVar float64
	for _, s := range sv {
		totalVar += s * s / float64(n)
	}
	for i := 0; i < k; i++ {
		p.SingularValues[i] = sv[i]
		p.ExplainedVariance[i] = sv[i] * sv[i] / float64(n)
		if totalVar > 0 {
			p.ExplainedVarianceRatio[i] = p.ExplainedVariance[i] / totalVar
		}
	}

	p.SetFitted()

	coeff := mat.NewDense(n, k, nil)
	coeff.Mul(Xc, p.Components.T())
	return coeff, nil
}

// Transform は学習済みの基底への射影でXを係数に変換する
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "Transform")
	}

	n, d := X.Dims()
	if d != p.nFeatures {
		return nil, errors.NewDimensionError("PCA.Transform", p.nFeatures, d, 1)
	}

	Xc := centerData(X, nil, p.Mean)
	coeff := mat.NewDense(n, p.nComponents, nil)
	coeff.Mul(Xc, p.Components.T())
	return coeff, nil
}

// InverseTransform は係数を元の特徴空間に戻す: X = C·Components + Mean
func (p *PCA) InverseTransform(C mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "InverseTransform")
	}

	n, k := C.Dims()
	if k != p.nComponents {
		return nil, errors.NewDimensionError("PCA.InverseTransform", p.nComponents, k, 1)
	}

	result := mat.NewDense(n, p.nFeatures, nil)
	result.Mul(C, p.Components)
	for i := 0; i < n; i++ {
		for j := 0; j < p.nFeatures; j++ {
			result.Set(i, j, result.At(i, j)+p.Mean.AtVec(j))
		}
	}
	return result, nil
}

// Reconstruct はTransformとInverseTransformを続けて実行する
func (p *PCA) Reconstruct(X mat.Matrix) (mat.Matrix, error) {
	coeff, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.InverseTransform(coeff)
}

// GetParams はモデルのパラメータを取得する
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components": p.nComponents,
	}
}

// String はモデルの文字列表現を返す
func (p *PCA) String() string {
	if !p.IsFitted() {
		return fmt.Sprintf("PCA(n_components=%d)", p.nComponents)
	}
	return fmt.Sprintf("PCA(n_components=%d, n_features=%d)", p.nComponents, p.nFeatures)
}
