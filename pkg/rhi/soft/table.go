package soft

// table stores objects under reusable 32-bit handles. Handle h lives in
// slot h-1; zero is never issued.
type table[T any] struct {
	items []T
	live  []bool
	free  []uint32
}

func (t *table[T]) add(v T) uint32 {
	if n := len(t.free); n > 0 {
		i := t.free[n-1]
		t.free = t.free[:n-1]
		t.items[i] = v
		t.live[i] = true
		return i + 1
	}
	t.items = append(t.items, v)
	t.live = append(t.live, true)
	return uint32(len(t.items))
}

// slot maps a handle to its index, reporting false for zero and for
// handles past the end.
func (t *table[T]) slot(h uint32) (uint32, bool) {
	if h == 0 || int(h) > len(t.items) || !t.live[h-1] {
		return 0, false
	}
	return h - 1, true
}

func (t *table[T]) get(h uint32) (T, bool) {
	i, ok := t.slot(h)
	if !ok {
		var zero T
		return zero, false
	}
	return t.items[i], true
}

func (t *table[T]) remove(h uint32) bool {
	i, ok := t.slot(h)
	if !ok {
		return false
	}
	var zero T
	t.items[i] = zero
	t.live[i] = false
	t.free = append(t.free, i)
	return true
}

func (t *table[T]) len() int {
	return len(t.items) - len(t.free)
}
