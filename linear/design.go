package linear

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
)

// AliasTolerance is the relative residual norm below which a design column is treated as
// a linear combination of the columns before it.
const AliasTolerance = 1e-7

// WithIntercept returns [1 | X].
func WithIntercept(X mat.Matrix) *mat.Dense {
	r, c := X.Dims()
	D := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		D.Set(i, 0, 1)
		for j := 0; j < c; j++ {
			D.Set(i, j+1, X.At(i, j))
		}
	}
	return D
}

// Pivot scans the columns of D left to right with modified Gram-Schmidt and splits them
// into estimable (kept) and aliased columns. A column is aliased when what remains of it
// after projecting out the kept columns has norm below tol times its own norm; all-zero
// columns are always aliased. Earlier columns win, so with an intercept in column 0 a
// constant predictor is the one reported.
func Pivot(D mat.Matrix, tol float64) (kept, aliased []int) {
	r, c := D.Dims()
	basis := make([][]float64, 0, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, D)
		norm := floats.Norm(col, 2)
		if norm == 0 {
			aliased = append(aliased, j)
			continue
		}
		v := append([]float64(nil), col...)
		for _, q := range basis {
			floats.AddScaled(v, -floats.Dot(q, v), q)
		}
		resid := floats.Norm(v, 2)
		if resid <= tol*norm {
			aliased = append(aliased, j)
			continue
		}
		floats.Scale(1/resid, v)
		basis = append(basis, v)
		kept = append(kept, j)
	}
	return kept, aliased
}

// SelectColumns copies the listed columns of D.
func SelectColumns(D mat.Matrix, cols []int) *mat.Dense {
	r, _ := D.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for k, j := range cols {
		for i := 0; i < r; i++ {
			out.Set(i, k, D.At(i, j))
		}
	}
	return out
}

// TermNames labels coefficient slots: the intercept, then featureNames, falling back to
// x0, x1, ... when names are missing.
func TermNames(featureNames []string, nFeatures int) []string {
	terms := make([]string, nFeatures+1)
	terms[0] = model.InterceptTerm
	for j := 0; j < nFeatures; j++ {
		if j < len(featureNames) {
			terms[j+1] = featureNames[j]
		} else {
			terms[j+1] = fmt.Sprintf("x%d", j)
		}
	}
	return terms
}
