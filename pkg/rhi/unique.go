package rhi

// noCopy makes go vet's copylocks check flag copies of a Unique.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Unique owns one handle and releases it through its releaser when reset.
// A Unique must not be copied; transfer ownership with Move or Assign.
type Unique[H Handle[H]] struct {
	_       noCopy
	handle  H
	release func(H)
}

// NewUnique takes ownership of h. release is called once, when the Unique
// is reset or reassigned while holding a non-null handle.
func NewUnique[H Handle[H]](h H, release func(H)) Unique[H] {
	return Unique[H]{handle: h, release: release}
}

// EmptyUnique returns a Unique holding the null handle.
func EmptyUnique[H Handle[H]]() Unique[H] {
	var zero H
	return Unique[H]{handle: zero.Null()}
}

// Get returns the owned handle without giving up ownership.
func (u *Unique[H]) Get() H {
	return u.handle
}

// IsNull reports whether no handle is owned.
func (u *Unique[H]) IsNull() bool {
	return u.handle == u.handle.Null()
}

// Release gives up ownership and returns the handle without releasing it.
func (u *Unique[H]) Release() H {
	h := u.handle
	u.handle = h.Null()
	return h
}

// Reset releases the owned handle, if any, and leaves u null.
func (u *Unique[H]) Reset() {
	h := u.Release()
	if h != h.Null() && u.release != nil {
		u.release(h)
	}
}

// Assign moves other's handle into u, releasing the handle u held first.
// Assigning a Unique to itself is a no-op.
func (u *Unique[H]) Assign(other *Unique[H]) {
	if u == other {
		return
	}
	tmp := other.Move()
	u.Reset()
	u.swap(&tmp)
}

// Move transfers ownership into a new Unique and leaves u null.
func (u *Unique[H]) Move() Unique[H] {
	return Unique[H]{handle: u.Release(), release: u.release}
}

// Equal compares the owned handle values.
func (u *Unique[H]) Equal(other *Unique[H]) bool {
	return u.handle == other.handle
}

func (u *Unique[H]) swap(other *Unique[H]) {
	u.handle, other.handle = other.handle, u.handle
	u.release, other.release = other.release, u.release
}
