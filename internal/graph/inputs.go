package graph

// Inputs is an ordered, duplicate-free sequence of input edge IDs. The order
// encodes argument position and only changes through Append, Remove and Move.
type Inputs struct {
	order []EdgeID
	set   map[EdgeID]struct{}
}

// NewInputs creates an Inputs sequence holding ids in the given order.
// Duplicates after the first occurrence are dropped.
func NewInputs(ids ...EdgeID) *Inputs {
	in := &Inputs{set: make(map[EdgeID]struct{}, len(ids))}
	for _, id := range ids {
		in.Append(id)
	}
	return in
}

// Len returns the number of inputs.
func (in *Inputs) Len() int {
	return len(in.order)
}

// Contains reports whether id is in the sequence.
func (in *Inputs) Contains(id EdgeID) bool {
	_, ok := in.set[id]
	return ok
}

// Append adds id at the end. Returns false if id was already present.
func (in *Inputs) Append(id EdgeID) bool {
	if in.Contains(id) {
		return false
	}
	in.order = append(in.order, id)
	in.set[id] = struct{}{}
	return true
}

// Remove deletes id, keeping the order of the others. Missing IDs are ignored.
func (in *Inputs) Remove(id EdgeID) bool {
	if !in.Contains(id) {
		return false
	}
	delete(in.set, id)
	for i, x := range in.order {
		if x == id {
			in.order = append(in.order[:i], in.order[i+1:]...)
			break
		}
	}
	return true
}

// Index returns the position of id, or -1.
func (in *Inputs) Index(id EdgeID) int {
	for i, x := range in.order {
		if x == id {
			return i
		}
	}
	return -1
}

// Move places id at index, shifting the others. The index is clamped to the
// valid range. Returns false if id is not in the sequence.
func (in *Inputs) Move(id EdgeID, index int) bool {
	from := in.Index(id)
	if from < 0 {
		return false
	}
	in.order = append(in.order[:from], in.order[from+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(in.order) {
		index = len(in.order)
	}
	in.order = append(in.order, "")
	copy(in.order[index+1:], in.order[index:])
	in.order[index] = id
	return true
}

// IDs returns a copy of the sequence.
func (in *Inputs) IDs() []EdgeID {
	out := make([]EdgeID, len(in.order))
	copy(out, in.order)
	return out
}
