package decomposition

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/wpca/core/model"
	"github.com/YuminosukeSato/wpca/core/parallel"
	"github.com/YuminosukeSato/wpca/pkg/errors"
	"github.com/YuminosukeSato/wpca/pkg/log"
)

// mstepDenomTol はM-stepの行更新で特徴ごとの分母をゼロとみなす閾値。
// 分母がこの値を下回る特徴は更新値を0にする（NaNを基底に伝播させない）。
const mstepDenomTol = 1e-15

// eStepParallelThreshold はE-stepをサンプル並列で実行する最小サンプル数
const eStepParallelThreshold = 32

// EMPCA はExpectation-Maximization法による重み付き主成分分析。
//
// 各測定値に信頼度重み（誤差バーの逆数に相当）を与えた低ランク近似問題を、
// E-step（基底を固定して係数を更新）とM-step（係数を固定して基底を1行ずつ
// 更新・直交化）の交互反復で解く。重みゼロの要素は欠損値として完全に無視され、
// そのセルにどんな値（NaNを含む）が入っていても結果は変わらない。
// 重みがnil（一様）の場合は通常のPCAに帰着する。
//
// アルゴリズムはBailey (2012, PASP) によるもので、反復回数は固定
// （収束判定なし）がデフォルト。WithTolを指定した場合のみ、重み付き再構成
// 残差の相対変化による早期終了が追加される。
type EMPCA struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nComponents int     // 主成分数 k
	maxIter     int     // EM反復回数の上限
	randomState int64   // 乱数シード（負の場合は時刻でシード）
	tol         float64 // 収束判定の許容誤差（0なら固定回数で反復）

	// 学習済み属性
	// Components は正規直交な行ベクトルからなる k × n_features の基底行列
	Components *mat.Dense
	// Mean は各特徴量の（重み付き）平均
	Mean *mat.VecDense
	// ExplainedVariance は各成分の説明分散 diag(coeffᵀ coeff)/n_samples
	ExplainedVariance []float64
	// ExplainedVarianceRatio は中心化済みデータの全分散に対する各成分の割合
	ExplainedVarianceRatio []float64
	// NIter は実際に実行されたEM反復回数
	NIter int

	nFeatures int
}

// EMPCAOption はEMPCAの設定オプション
type EMPCAOption func(*EMPCA)

// WithMaxIter はEM反復回数の上限を設定（デフォルト: 100）
func WithMaxIter(n int) EMPCAOption {
	return func(e *EMPCA) {
		e.maxIter = n
	}
}

// WithRandomState は基底の初期化に使う乱数シードを設定。
// 同じシードで同じデータをFitすれば同じ結果が得られる。
func WithRandomState(seed int64) EMPCAOption {
	return func(e *EMPCA) {
		e.randomState = seed
	}
}

// WithTol は重み付き再構成残差の相対変化による早期終了を有効にする。
// 指定しない場合は収束判定なしで固定回数反復する。
// tolを指定して上限回数まで収束しなかった場合はConvergenceWarningを発生させる。
func WithTol(tol float64) EMPCAOption {
	return func(e *EMPCA) {
		e.tol = tol
	}
}

// NewEMPCA は新しいEMPCAを作成する
//
// パラメータ:
//   - nComponents: 抽出する主成分数（1以上、特徴量数以下）
//   - opts: WithMaxIter, WithRandomState, WithTol
func NewEMPCA(nComponents int, opts ...EMPCAOption) *EMPCA {
	e := &EMPCA{
		nComponents: nComponents,
		maxIter:     100,
		randomState: -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit はEM反復で主成分を学習する。weightsはXと同形状の非負行列（nil可）。
func (e *EMPCA) Fit(X, weights mat.Matrix) error {
	_, err := e.FitTransform(X, weights)
	return err
}

// FitTransform は主成分を学習し、Xを主成分空間の係数に変換して返す。
//
// 戻り値は n_samples × n_components の係数行列。重みがすべてゼロの
// サンプルは係数ゼロとなり、DegenerateSampleWarningが発生する。
func (e *EMPCA) FitTransform(X, weights mat.Matrix) (mat.Matrix, error) {
	start := time.Now()

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError("EMPCA.FitTransform", "empty data", errors.ErrEmptyData)
	}
	if weights != nil {
		wr, wc := weights.Dims()
		if wr != n || wc != d {
			return nil, errors.NewValidationError("weights",
				"must have the same shape as X",
				fmt.Sprintf("%dx%d (X is %dx%d)", wr, wc, n, d))
		}
	}
	if e.nComponents < 1 {
		return nil, errors.NewValidationError("n_components", "must be a positive integer", e.nComponents)
	}
	if e.nComponents > d {
		return nil, errors.NewDimensionError("EMPCA.FitTransform", d, e.nComponents, 1)
	}

	logger := log.GetLogger().With().
		Str(log.ModelNameKey, "EMPCA").
		Str(log.ComponentKey, "decomposition").
		Logger()
	logger.Debug().
		Str(log.OperationKey, log.OperationFitTransform).
		Int(log.SamplesKey, n).
		Int(log.FeaturesKey, d).
		Int(log.ComponentsKey, e.nComponents).
		Int(log.MaxIterKey, e.maxIter).
		Bool(log.WeightedKey, weights != nil).
		Int64(log.RandomSeedKey, e.randomState).
		Msg("EM-PCA fit started")

	e.nFeatures = d
	e.Mean = weightedMean(X, weights)

	// 中心化。重みゼロのセルは値を一切参照してはならないので0に置き換える
	// （NaNなどのプレースホルダがM-stepの残差計算に漏れないようにする）。
	Xc := centerData(X, weights, e.Mean)
	w2 := squaredWeights(weights)

	var rng *rand.Rand
	if e.randomState >= 0 {
		rng = rand.New(rand.NewSource(e.randomState))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	eigvec, err := RandomOrthonormal(e.nComponents, d, rng)
	if err != nil {
		return nil, err
	}

	var (
		coeff     *mat.Dense
		warned    = make([]bool, n)
		prevResid = math.Inf(1)
		converged = false
	)

	iter := 0
	for ; iter < e.maxIter; iter++ {
		coeff, err = e.eStep(Xc, weights, eigvec, warned)
		if err != nil {
			return nil, err
		}
		if err = e.mStep(Xc, w2, eigvec, coeff); err != nil {
			return nil, err
		}

		if e.tol > 0 {
			resid := weightedResidual(Xc, w2, eigvec, coeff)
			if prevResid < math.Inf(1) && math.Abs(prevResid-resid) <= e.tol*prevResid {
				converged = true
				iter++
				break
			}
			prevResid = resid
		}
	}
	e.NIter = iter

	if e.tol > 0 && !converged {
		errors.Warn(errors.NewConvergenceWarning("EMPCA", e.maxIter,
			"weighted reconstruction residual did not stabilize"))
	}

	// 最終的な基底に対して係数を整合させるためのE-step
	coeff, err = e.eStep(Xc, weights, eigvec, warned)
	if err != nil {
		return nil, err
	}

	if err := errors.CheckMatrix("EMPCA.FitTransform", eigvec, e.nComponents, d, e.NIter); err != nil {
		return nil, err
	}

	e.Components = eigvec
	e.ExplainedVariance, e.ExplainedVarianceRatio = varianceStats(Xc, coeff)
	e.SetFitted()

	logger.Debug().
		Str(log.OperationKey, log.OperationFitTransform).
		Int(log.IterationKey, e.NIter).
		Float64(log.DurationMsKey, float64(time.Since(start).Microseconds())/1000.0).
		Msg("EM-PCA fit finished")

	return coeff, nil
}

// Transform は凍結済みの基底に対する1回のE-stepでXを係数に変換する。
// weightsはXと同形状（nil可）。重みがすべてゼロのサンプルは係数ゼロになる。
func (e *EMPCA) Transform(X, weights mat.Matrix) (mat.Matrix, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("EMPCA", "Transform")
	}

	n, d := X.Dims()
	if d != e.nFeatures {
		return nil, errors.NewDimensionError("EMPCA.Transform", e.nFeatures, d, 1)
	}
	if weights != nil {
		wr, wc := weights.Dims()
		if wr != n || wc != d {
			return nil, errors.NewValidationError("weights",
				"must have the same shape as X",
				fmt.Sprintf("%dx%d (X is %dx%d)", wr, wc, n, d))
		}
	}

	Xc := centerData(X, weights, e.Mean)
	return e.eStep(Xc, weights, e.Components, make([]bool, n))
}

// InverseTransform は係数を元の特徴空間に戻す: X = C·Components + Mean
func (e *EMPCA) InverseTransform(C mat.Matrix) (mat.Matrix, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("EMPCA", "InverseTransform")
	}

	n, k := C.Dims()
	if k != e.nComponents {
		return nil, errors.NewDimensionError("EMPCA.InverseTransform", e.nComponents, k, 1)
	}

	result := mat.NewDense(n, e.nFeatures, nil)
	result.Mul(C, e.Components)
	for i := 0; i < n; i++ {
		for j := 0; j < e.nFeatures; j++ {
			result.Set(i, j, result.At(i, j)+e.Mean.AtVec(j))
		}
	}
	return result, nil
}

// Reconstruct はTransformとInverseTransformを続けて実行し、
// 学習済みモデルによるXの再構成を返す。
func (e *EMPCA) Reconstruct(X, weights mat.Matrix) (mat.Matrix, error) {
	coeff, err := e.Transform(X, weights)
	if err != nil {
		return nil, err
	}
	return e.InverseTransform(coeff)
}

// FitReconstruct はFitTransformとInverseTransformを続けて実行する。
func (e *EMPCA) FitReconstruct(X, weights mat.Matrix) (mat.Matrix, error) {
	coeff, err := e.FitTransform(X, weights)
	if err != nil {
		return nil, err
	}
	return e.InverseTransform(coeff)
}

// GetParams はモデルのパラメータを取得する
func (e *EMPCA) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components": e.nComponents,
		"max_iter":     e.maxIter,
		"random_state": e.randomState,
		"tol":          e.tol,
	}
}

// String はモデルの文字列表現を返す
func (e *EMPCA) String() string {
	if !e.IsFitted() {
		return fmt.Sprintf("EMPCA(n_components=%d, max_iter=%d)", e.nComponents, e.maxIter)
	}
	return fmt.Sprintf("EMPCA(n_components=%d, max_iter=%d, n_features=%d)",
		e.nComponents, e.maxIter, e.nFeatures)
}

// eStep は現在の基底に対する係数行列を計算する。基底は変更しない。
//
// 一様重み（weights == nil）の場合、基底は正規直交なので係数は
// 単純な射影 coeff = Xc·eigvecᵀ に帰着する（明示的な高速パス）。
// 重み付きの場合はサンプルごとに独立な重み付き最小二乗問題を解く。
// 特異なサンプル（重みがすべてゼロ等）は係数ゼロに置き換え、
// 1回のfit内で最初に検出したときだけDegenerateSampleWarningを発生させる。
func (e *EMPCA) eStep(Xc *mat.Dense, weights mat.Matrix, eigvec *mat.Dense, warned []bool) (*mat.Dense, error) {
	n, _ := Xc.Dims()
	k, _ := eigvec.Dims()

	coeff := mat.NewDense(n, k, nil)
	if weights == nil {
		coeff.Mul(Xc, eigvec.T())
		return coeff, nil
	}

	_, d := Xc.Dims()
	degenerate := make([]bool, n)
	sampleErrs := make([]error, n)

	parallel.ParallelizeWithThreshold(n, eStepParallelThreshold, func(start, end int) {
		x := mat.NewVecDense(d, nil)
		w := mat.NewVecDense(d, nil)
		for i := start; i < end; i++ {
			for j := 0; j < d; j++ {
				x.SetVec(j, Xc.At(i, j))
				w.SetVec(j, weights.At(i, j))
			}
			c, err := SolveWeighted(eigvec, x, w)
			if err != nil {
				var singular *errors.SingularSystemError
				if errors.As(err, &singular) {
					// 係数ゼロで継続。fit全体は中断しない。
					degenerate[i] = true
					continue
				}
				sampleErrs[i] = err
				continue
			}
			for p := 0; p < k; p++ {
				coeff.Set(i, p, c.AtVec(p))
			}
		}
	})

	for i := 0; i < n; i++ {
		if sampleErrs[i] != nil {
			return nil, sampleErrs[i]
		}
		if degenerate[i] && !warned[i] {
			warned[i] = true
			errors.Warn(errors.NewDegenerateSampleWarning("EMPCA", i, "weighted normal equations are singular"))
		}
	}
	return coeff, nil
}

// mStep は係数を固定して基底を1行ずつ更新する。
//
// 各行iについて: (1) 更新済みの行0..i-1による再構成をデータから差し引いた
// 残差を計算（デフレーション）、(2) 行iを残差に対する係数列の重み付き
// 最小二乗方向 (cᵀ(w²⊙resid)) / (cᵀ(w²⊙c)) で置き換え（特徴ごとの除算）、
// (3) 直ちに行0..iの接頭辞を再直交化する。後続の行のデフレーションは
// 先行する行が正規直交であることに依存するため、この順序は変更できない。
func (e *EMPCA) mStep(Xc, w2 *mat.Dense, eigvec, coeff *mat.Dense) error {
	n, d := Xc.Dims()
	k, _ := eigvec.Dims()

	resid := mat.NewDense(n, d, nil)
	num := make([]float64, d)
	den := make([]float64, d)

	for i := 0; i < k; i++ {
		// resid = Xc - coeff[:, :i]·eigvec[:i]
		if i == 0 {
			resid.Copy(Xc)
		} else {
			resid.Mul(coeff.Slice(0, n, 0, i), eigvec.Slice(0, i, 0, d))
			resid.Sub(Xc, resid)
		}

		for j := 0; j < d; j++ {
			num[j] = 0
			den[j] = 0
		}
		for s := 0; s < n; s++ {
			c := coeff.At(s, i)
			if c == 0 {
				continue
			}
			rrow := resid.RawRowView(s)
			if w2 == nil {
				for j := 0; j < d; j++ {
					num[j] += c * rrow[j]
					den[j] += c * c
				}
			} else {
				wrow := w2.RawRowView(s)
				for j := 0; j < d; j++ {
					num[j] += c * wrow[j] * rrow[j]
					den[j] += c * c * wrow[j]
				}
			}
		}

		row := eigvec.RawRowView(i)
		for j := 0; j < d; j++ {
			if den[j] < mstepDenomTol {
				row[j] = 0
				continue
			}
			row[j] = num[j] / den[j]
		}

		if err := orthonormalizePrefix(eigvec, i+1); err != nil {
			return err
		}
	}
	return nil
}

// weightedMean は列ごとの重み付き平均を返す。重みゼロのセルは積を取る前に
// ゼロ化されるため、そのセルにNaN等が入っていても平均を汚染しない。
// ある列の重み和がゼロの場合、その列の平均は0と定義する。
func weightedMean(X, weights mat.Matrix) *mat.VecDense {
	n, d := X.Dims()
	mean := mat.NewVecDense(d, nil)

	if weights == nil {
		for j := 0; j < d; j++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += X.At(i, j)
			}
			mean.SetVec(j, sum/float64(n))
		}
		return mean
	}

	for j := 0; j < d; j++ {
		var sum, wsum float64
		for i := 0; i < n; i++ {
			w := weights.At(i, j)
			if w == 0 {
				continue
			}
			sum += w * X.At(i, j)
			wsum += w
		}
		if wsum > 0 {
			mean.SetVec(j, sum/wsum)
		}
	}
	return mean
}

// centerData は平均を引いた作業用コピーを返す。入力は変更しない。
// 重みゼロのセルは0に置き換えられる（値は定義上参照されない）。
func centerData(X, weights mat.Matrix, mean *mat.VecDense) *mat.Dense {
	n, d := X.Dims()
	Xc := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if weights != nil && weights.At(i, j) == 0 {
				continue
			}
			Xc.Set(i, j, X.At(i, j)-mean.AtVec(j))
		}
	}
	return Xc
}

// squaredWeights は要素ごとの二乗重みを返す（weightsがnilならnil）
func squaredWeights(weights mat.Matrix) *mat.Dense {
	if weights == nil {
		return nil
	}
	n, d := weights.Dims()
	w2 := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			w := weights.At(i, j)
			w2.Set(i, j, w*w)
		}
	}
	return w2
}

// weightedResidual は重み付き再構成残差 Σ w²(Xc - coeff·eigvec)² を返す
func weightedResidual(Xc, w2 *mat.Dense, eigvec, coeff *mat.Dense) float64 {
	n, d := Xc.Dims()
	var recon mat.Dense
	recon.Mul(coeff, eigvec)

	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			r := Xc.At(i, j) - recon.At(i, j)
			if w2 != nil {
				total += w2.At(i, j) * r * r
			} else {
				total += r * r
			}
		}
	}
	return total
}

// varianceStats は説明分散 diag(coeffᵀcoeff)/n と、中心化済みデータの
// 全分散（列ごとの母分散の総和）に対するその比率を計算する
func varianceStats(Xc, coeff *mat.Dense) (variance, ratio []float64) {
	n, d := Xc.Dims()
	_, k := coeff.Dims()

	variance = make([]float64, k)
	for p := 0; p < k; p++ {
		var sum float64
		for i := 0; i < n; i++ {
			c := coeff.At(i, p)
			sum += c * c
		}
		variance[p] = sum / float64(n)
	}

	var totalVar float64
	for j := 0; j < d; j++ {
		var sum, sumSq float64
		for i := 0; i < n; i++ {
			v := Xc.At(i, j)
			sum += v
			sumSq += v * v
		}
		m := sum / float64(n)
		totalVar += sumSq/float64(n) - m*m
	}

	ratio = make([]float64, k)
	for p := 0; p < k; p++ {
		if totalVar > 0 {
			ratio[p] = variance[p] / totalVar
		}
	}
	return variance, ratio
}
