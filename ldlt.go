// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

// LDLT is a dense LDLᵀ factorization of a symmetric positive-definite
// matrix in natural (simplicial) order, grounded on FastFAM.cpp's use
// of Eigen::SimplicialLDLT. james-bowman/sparse has no factorization
// routine, only storage and basic ops, so this is hand-rolled; see
// DESIGN.md.
type LDLT struct {
	n int
	l [][]float64 // unit lower triangular
	d []float64
}

// FactorizeLDLT computes the LDLᵀ decomposition of the dense
// symmetric matrix a (only the lower triangle is read). Returns false
// if a pivot is zero or negative (a is not positive definite).
func FactorizeLDLT(a [][]float64) (*LDLT, bool) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
		l[i][i] = 1
	}
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		sum := a[j][j]
		for k := 0; k < j; k++ {
			sum -= l[j][k] * l[j][k] * d[k]
		}
		if sum <= 0 {
			return nil, false
		}
		d[j] = sum

		for i := j + 1; i < n; i++ {
			s := a[i][j]
			for k := 0; k < j; k++ {
				s -= l[i][k] * l[j][k] * d[k]
			}
			l[i][j] = s / d[j]
		}
	}
	return &LDLT{n: n, l: l, d: d}, true
}

// Solve returns x satisfying L*D*Lᵀ*x = b.
func (f *LDLT) Solve(b []float64) []float64 {
	n := f.n
	y := make([]float64, n)
	copy(y, b)
	for i := 0; i < n; i++ {
		for k := 0; k < i; k++ {
			y[i] -= f.l[i][k] * y[k]
		}
	}
	for i := 0; i < n; i++ {
		y[i] /= f.d[i]
	}
	x := make([]float64, n)
	copy(x, y)
	for i := n - 1; i >= 0; i-- {
		for k := i + 1; k < n; k++ {
			x[i] -= f.l[k][i] * x[k]
		}
	}
	return x
}

// Inverse returns the dense matrix inverse of the factorized matrix,
// computed by solving against each standard basis vector (§4.10
// step 5: "compute V^-1 by solving V*X = I column by column").
func (f *LDLT) Inverse() [][]float64 {
	n := f.n
	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = make([]float64, n)
	}
	e := make([]float64, n)
	for col := 0; col < n; col++ {
		if col > 0 {
			e[col-1] = 0
		}
		e[col] = 1
		x := f.Solve(e)
		for row := 0; row < n; row++ {
			inv[row][col] = x[row]
		}
	}
	return inv
}
