package pulsim

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Dense complex-matrix helpers over gonum's mat.CDense. Operators stay
// small enough (dim^N for a handful of qubits) that plain loops beat
// anything fancier.

func zeros(r, c int) *mat.CDense {
	return mat.NewCDense(r, c, nil)
}

func eye(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// kron returns the Kronecker product a ⊗ b.
func kron(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			av := a.At(i, j)
			if av == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					if bv := b.At(k, l); bv != 0 {
						out.Set(i*br+k, j*bc+l, av*bv)
					}
				}
			}
		}
	}
	return out
}

// kronAll folds kron over ops left to right; ops must not be empty.
func kronAll(ops []*mat.CDense) *mat.CDense {
	out := ops[0]
	for _, op := range ops[1:] {
		out = kron(out, op)
	}
	return out
}

// addTo accumulates src into dst; the two must share dimensions.
func addTo(dst, src *mat.CDense) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := src.At(i, j); v != 0 {
				dst.Set(i, j, dst.At(i, j)+v)
			}
		}
	}
}

// scaled returns z·m as a new matrix.
func scaled(z complex128, m *mat.CDense) *mat.CDense {
	r, c := m.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				out.Set(i, j, z*v)
			}
		}
	}
	return out
}

// adjoint returns the conjugate transpose of m.
func adjoint(m *mat.CDense) *mat.CDense {
	r, c := m.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				out.Set(j, i, cmplx.Conj(v))
			}
		}
	}
	return out
}

func matEqual(a, b *mat.CDense) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if a.At(i, j) != b.At(i, j) {
				return false
			}
		}
	}
	return true
}

func matEqualApprox(a, b *mat.CDense, tol float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if cmplx.Abs(a.At(i, j)-b.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

func isZeroMat(m *mat.CDense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// mulVec returns m·v.
func mulVec(m *mat.CDense, v []complex128) []complex128 {
	r, c := m.Dims()
	out := make([]complex128, r)
	for i := 0; i < r; i++ {
		var acc complex128
		for j := 0; j < c; j++ {
			if mv := m.At(i, j); mv != 0 {
				acc += mv * v[j]
			}
		}
		out[i] = acc
	}
	return out
}

// vecNorm returns the 2-norm of v.
func vecNorm(v []complex128) float64 {
	var acc float64
	for _, z := range v {
		acc += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(acc)
}
