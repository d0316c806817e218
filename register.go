package pulsim

import (
	"gonum.org/v1/gonum/spatial/r3"
)

/*
Register maps external qubit identifiers to contiguous indices 0..N-1 and
keeps their positions. The bijection is fixed at construction; the index
order matches the registry's iteration order.
*/
type Register struct {
	ids   []QubitID
	index map[QubitID]int
	pos   map[QubitID]r3.Vec
}

func newRegister(qubits []Qubit) *Register {
	r := &Register{
		ids:   make([]QubitID, 0, len(qubits)),
		index: make(map[QubitID]int, len(qubits)),
		pos:   make(map[QubitID]r3.Vec, len(qubits)),
	}
	for i, q := range qubits {
		r.ids = append(r.ids, q.ID)
		r.index[q.ID] = i
		r.pos[q.ID] = q.Pos
	}
	return r
}

// Size returns the number of qubits.
func (r *Register) Size() int { return len(r.ids) }

// IDs returns the qubit identifiers in index order.
func (r *Register) IDs() []QubitID { return r.ids }

// Index returns the contiguous index of id.
func (r *Register) Index(id QubitID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Position returns the position of id in µm.
func (r *Register) Position(id QubitID) r3.Vec { return r.pos[id] }

// Distance returns the euclidean distance between two qubits in µm.
func (r *Register) Distance(a, b QubitID) float64 {
	return r3.Norm(r3.Sub(r.pos[a], r.pos[b]))
}

// CenterDistance returns the distance of id from the register centre,
// which the registry places at the origin.
func (r *Register) CenterDistance(id QubitID) float64 {
	return r3.Norm(r.pos[id])
}
