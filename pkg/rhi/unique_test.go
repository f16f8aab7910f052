package rhi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigrr/culler/pkg/rhi"
)

type releaseLog []rhi.Resource

func (l *releaseLog) release(r rhi.Resource) {
	*l = append(*l, r)
}

func TestUniqueReset(t *testing.T) {
	var log releaseLog
	u := rhi.NewUnique(rhi.Resource(7), log.release)
	assert.False(t, u.IsNull())
	assert.Equal(t, rhi.Resource(7), u.Get())

	u.Reset()
	assert.True(t, u.IsNull())
	assert.Equal(t, releaseLog{7}, log)

	u.Reset()
	assert.Equal(t, releaseLog{7}, log, "reset of a null unique releases nothing")
}

func TestUniqueRelease(t *testing.T) {
	var log releaseLog
	u := rhi.NewUnique(rhi.Resource(3), log.release)
	assert.Equal(t, rhi.Resource(3), u.Release())
	assert.True(t, u.IsNull())
	u.Reset()
	assert.Empty(t, log)
}

func TestUniqueMove(t *testing.T) {
	var log releaseLog
	a := rhi.NewUnique(rhi.Resource(1), log.release)
	b := a.Move()
	assert.True(t, a.IsNull())
	assert.Equal(t, rhi.Resource(1), b.Get())

	a.Reset()
	assert.Empty(t, log)
	b.Reset()
	assert.Equal(t, releaseLog{1}, log)
}

func TestUniqueAssign(t *testing.T) {
	var log releaseLog
	a := rhi.NewUnique(rhi.Resource(1), log.release)
	b := rhi.NewUnique(rhi.Resource(2), log.release)

	a.Assign(&b)
	assert.Equal(t, releaseLog{1}, log, "old handle is released on assignment")
	assert.Equal(t, rhi.Resource(2), a.Get())
	assert.True(t, b.IsNull())

	a.Assign(&a)
	assert.Equal(t, rhi.Resource(2), a.Get(), "self assignment keeps the handle")
	assert.Equal(t, releaseLog{1}, log)

	empty := rhi.EmptyUnique[rhi.Resource]()
	a.Assign(&empty)
	assert.True(t, a.IsNull())
	assert.Equal(t, releaseLog{1, 2}, log)
}

func TestUniqueEqual(t *testing.T) {
	a := rhi.NewUnique(rhi.Resource(5), nil)
	b := rhi.NewUnique(rhi.Resource(5), nil)
	c := rhi.EmptyUnique[rhi.Resource]()
	assert.True(t, a.Equal(&b))
	assert.False(t, a.Equal(&c))
	assert.True(t, c.IsNull())
	assert.Equal(t, rhi.NullResource, c.Get())
}

func TestNullHandles(t *testing.T) {
	assert.True(t, rhi.NullResource.IsNull())
	assert.True(t, rhi.NullShaderView.IsNull())
	assert.True(t, rhi.NullRenderTargetView.IsNull())
	assert.True(t, rhi.NullDepthStencilView.IsNull())
	assert.True(t, rhi.NullSampler.IsNull())
	assert.True(t, rhi.NullRootSignature.IsNull())
	assert.True(t, rhi.NullPipeline.IsNull())
	assert.True(t, rhi.NullQueryHeap.IsNull())
	assert.True(t, rhi.NullSwapChain.IsNull())
	assert.True(t, rhi.Resource(0).IsNull())
	assert.False(t, rhi.Resource(1).IsNull())
}

func TestZeroUniqueIsNull(t *testing.T) {
	var log releaseLog
	var u rhi.Unique[rhi.Resource]
	assert.True(t, u.IsNull())
	assert.Equal(t, rhi.NullResource, u.Get())
	u.Reset()

	other := rhi.NewUnique(rhi.Resource(3), log.release)
	u.Assign(&other)
	assert.Equal(t, rhi.Resource(3), u.Get())
	assert.Empty(t, log)
}

func TestOwnResourceDefersDestruction(t *testing.T) {
	d, _ := newDevice(t, rhi.DeviceDesc{})
	r := buffer(t, d, 64, rhi.HeapDefault)

	u := d.OwnResource(r)
	u.Reset()
	assert.Equal(t, 1, d.PendingDestructions())
	assert.Equal(t, 1, d.CollectGarbage())

	_, err := d.ResourceInfo(r)
	assert.ErrorIs(t, err, rhi.ErrInvalidHandle)
}
