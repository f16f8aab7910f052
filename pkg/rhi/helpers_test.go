package rhi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/culler/pkg/rhi"
	"github.com/taigrr/culler/pkg/rhi/soft"
)

func newDevice(t *testing.T, desc rhi.DeviceDesc, opts ...rhi.Option) (*rhi.Device, *soft.Backend) {
	t.Helper()
	b := soft.New()
	d, err := rhi.NewDevice(desc, b, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		for kind := range 4 {
			b.ResumeQueue(rhi.QueueKind(kind))
		}
		assert.NoError(t, d.Close())
	})
	return d, b
}

func uploadBuffer(t *testing.T, d *rhi.Device, data []byte) rhi.Resource {
	t.Helper()
	r, err := d.CreateBuffer(rhi.BufferDesc{Size: uint64(len(data)), Heap: rhi.HeapUpload, Name: "upload"})
	require.NoError(t, err)
	mem, err := d.Map(r)
	require.NoError(t, err)
	copy(mem, data)
	return r
}

func buffer(t *testing.T, d *rhi.Device, size uint64, heap rhi.HeapType) rhi.Resource {
	t.Helper()
	r, err := d.CreateBuffer(rhi.BufferDesc{Size: size, Heap: heap, InitialState: rhi.StateCopyDest})
	require.NoError(t, err)
	return r
}

func renderTarget(t *testing.T, d *rhi.Device) (rhi.Resource, rhi.RenderTargetView) {
	t.Helper()
	tex, err := d.CreateTexture(rhi.TextureDesc{
		Width:             4,
		Height:            4,
		Format:            rhi.FormatR8G8B8A8Unorm,
		AllowRenderTarget: true,
		InitialState:      rhi.StateRenderTarget,
	})
	require.NoError(t, err)
	rtv, err := d.CreateRenderTargetView(tex, rhi.RenderTargetViewDesc{})
	require.NoError(t, err)
	return tex, rtv
}

func closed[L interface{ Close() error }](t *testing.T, l L) L {
	t.Helper()
	require.NoError(t, l.Close())
	return l
}

// settle gives paused work a chance to run if pausing were broken.
func settle() {
	time.Sleep(20 * time.Millisecond)
}
