package pulsim

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

/*
Operation places a single-qubit operator on a set of target qubits. The
operator is either the name of a registered matrix (see basisSet) or an
explicit one; targets are qubit identifiers, or the whole register when
Global is set, in which case the built operator is the sum over qubits of
the operator placed at each qubit in turn.
*/
type Operation struct {
	Operator string
	Matrix   *mat.CDense
	Targets  []QubitID
	Global   bool
}

/*
operatorKey identifies one cached tensor-product operator. The zero Qubit
field marks a global (summed) operator. Keys are immutable value tuples so
the cache never aliases mutable state.
*/
type operatorKey struct {
	Addr  Addressing
	Basis DriveBasis
	Qubit QubitID
	Op    string
}

// operatorCache reuses previously built tensor-product operators across
// Hamiltonian reconstructions. Invalidated wholesale on config changes.
type operatorCache struct {
	mu      sync.Mutex
	entries map[operatorKey]*mat.CDense
}

func newOperatorCache() *operatorCache {
	return &operatorCache{entries: make(map[operatorKey]*mat.CDense)}
}

func (c *operatorCache) get(k operatorKey) (*mat.CDense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.entries[k]
	return op, ok
}

func (c *operatorCache) put(k operatorKey, op *mat.CDense) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = op
}

func (c *operatorCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[operatorKey]*mat.CDense)
}

/*
operatorBuilder builds N-qubit tensor-product operators from local operator
placements. The result depends only on its inputs; the only shared state it
touches is the read-through operator cache.
*/
type operatorBuilder struct {
	reg   *Register
	basis *basisSet
	cache *operatorCache
}

/*
Build produces the tensor-product operator applying each operation's
operator at its target qubits and identity elsewhere.

Example for 4 qubits: [(Z, [1, 2]), (Y, [3])] gives ZZYI, and a global X
gives XIII + IXII + IIXI + IIIX.
*/
func (b *operatorBuilder) Build(operations []Operation) (*mat.CDense, error) {
	n := b.reg.Size()
	local := make([]*mat.CDense, n)
	for i := range local {
		local[i] = b.basis.ops["I"]
	}

	for _, op := range operations {
		matrix := op.Matrix
		if matrix == nil {
			var ok bool
			if matrix, ok = b.basis.operator(op.Operator); !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, op.Operator)
			}
		}

		if op.Global {
			// Sum of the operator applied at every qubit in turn.
			sum := zeros(intPow(b.basis.dim, n), intPow(b.basis.dim, n))
			for _, id := range b.reg.IDs() {
				one, err := b.Build([]Operation{{Matrix: matrix, Targets: []QubitID{id}}})
				if err != nil {
					return nil, err
				}
				addTo(sum, one)
			}
			return sum, nil
		}

		seen := make(map[QubitID]bool, len(op.Targets))
		for _, id := range op.Targets {
			if seen[id] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateQubit, id)
			}
			seen[id] = true
			k, ok := b.reg.Index(id)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownQubit, id)
			}
			local[k] = matrix
		}
	}
	return kronAll(local), nil
}

// buildCached builds through the cache, keyed by the (addressing, basis,
// qubit, operator-name) tuple of a drive term.
func (b *operatorBuilder) buildCached(k operatorKey, operations []Operation) (*mat.CDense, error) {
	if op, ok := b.cache.get(k); ok {
		return op, nil
	}
	op, err := b.Build(operations)
	if err != nil {
		return nil, err
	}
	b.cache.put(k, op)
	return op, nil
}

func intPow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
