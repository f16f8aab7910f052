package cull

// LayerMask is the set of active layers. Layers are signed bytes; a
// negative layer is never active.
type LayerMask [2]uint64

// AllLayers returns a mask with layers 0 through 127 active.
func AllLayers() LayerMask {
	return LayerMask{^uint64(0), ^uint64(0)}
}

// Layers returns a mask with exactly the given layers active.
func Layers(layers ...int8) LayerMask {
	var m LayerMask
	return m.With(layers...)
}

// With returns m with the given layers activated. Negative layers are ignored.
func (m LayerMask) With(layers ...int8) LayerMask {
	for _, l := range layers {
		if l >= 0 {
			m[l>>6] |= 1 << (uint(l) & 63)
		}
	}
	return m
}

// Without returns m with the given layers deactivated.
func (m LayerMask) Without(layers ...int8) LayerMask {
	for _, l := range layers {
		if l >= 0 {
			m[l>>6] &^= 1 << (uint(l) & 63)
		}
	}
	return m
}

// Has reports whether layer is active.
func (m LayerMask) Has(layer int8) bool {
	if layer < 0 {
		return false
	}
	return m[layer>>6]&(1<<(uint(layer)&63)) != 0
}
