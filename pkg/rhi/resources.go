package rhi

// create runs a backend constructor with the closed check, logging and
// error wrapping shared by all Create methods.
func create[H Handle[H]](d *Device, op string, fn func() (H, error), kv ...any) (H, error) {
	var zero H
	if err := d.alive(op); err != nil {
		return zero.Null(), err
	}
	h, err := fn()
	if err != nil {
		d.log.Error("create failed", append([]any{"op", op, "err", err}, kv...)...)
		return zero.Null(), wrapErr(op, err)
	}
	d.log.Debug("created", append([]any{"op", op, "handle", h}, kv...)...)
	return h, nil
}

// release frees h immediately. Releasing a null handle is a no-op.
func release[H Handle[H]](d *Device, op string, h H, fn func(H) error) error {
	if h == h.Null() {
		return nil
	}
	if err := fn(h); err != nil {
		return wrapErr(op, err)
	}
	d.log.Debug("released", "op", op, "handle", h)
	return nil
}

// destroy frees h once all work submitted so far has retired.
func destroy[H Handle[H]](d *Device, what string, h H, fn func(H) error) {
	if h == h.Null() {
		return
	}
	d.deferDestroy(what, func() error { return fn(h) })
}

func (d *Device) CreateBuffer(desc BufferDesc) (Resource, error) {
	return create(d, "CreateBuffer", func() (Resource, error) {
		return d.backend.CreateBuffer(desc)
	}, "size", desc.Size, "name", desc.Name)
}

func (d *Device) CreateTexture(desc TextureDesc) (Resource, error) {
	return create(d, "CreateTexture", func() (Resource, error) {
		return d.backend.CreateTexture(desc)
	}, "width", desc.Width, "height", desc.Height, "name", desc.Name)
}

// ReleaseResource frees r immediately. The caller guarantees no submitted
// work still uses it; otherwise use DestroyResource.
func (d *Device) ReleaseResource(r Resource) error {
	return release(d, "ReleaseResource", r, d.backend.ReleaseResource)
}

// DestroyResource frees r after in-flight work retires.
func (d *Device) DestroyResource(r Resource) {
	destroy(d, "resource", r, d.backend.ReleaseResource)
}

// OwnResource wraps r so that resetting the wrapper destroys it.
func (d *Device) OwnResource(r Resource) Unique[Resource] {
	return NewUnique(r, d.DestroyResource)
}

// ResourceInfo reports the layout of a live resource.
func (d *Device) ResourceInfo(r Resource) (ResourceInfo, error) {
	info, err := d.backend.ResourceInfo(r)
	return info, wrapErr("ResourceInfo", err)
}

// Map returns the CPU-visible memory of an upload or readback buffer.
func (d *Device) Map(r Resource) ([]byte, error) {
	data, err := d.backend.Map(r)
	return data, wrapErr("Map", err)
}

func (d *Device) createShaderView(op string, kind ViewKind, r Resource, desc ShaderViewDesc) (ShaderView, error) {
	if r.IsNull() && kind != ViewConstantBuffer {
		return NullShaderView, wrapErr(op, ErrInvalidHandle)
	}
	return create(d, op, func() (ShaderView, error) {
		return d.backend.CreateShaderView(kind, r, desc)
	}, "resource", r)
}

func (d *Device) CreateShaderResourceView(r Resource, desc ShaderViewDesc) (ShaderView, error) {
	return d.createShaderView("CreateShaderResourceView", ViewShaderResource, r, desc)
}

func (d *Device) CreateUnorderedAccessView(r Resource, desc ShaderViewDesc) (ShaderView, error) {
	return d.createShaderView("CreateUnorderedAccessView", ViewUnorderedAccess, r, desc)
}

func (d *Device) CreateConstantBufferView(r Resource, desc ShaderViewDesc) (ShaderView, error) {
	return d.createShaderView("CreateConstantBufferView", ViewConstantBuffer, r, desc)
}

func (d *Device) ReleaseShaderView(v ShaderView) error {
	return release(d, "ReleaseShaderView", v, d.backend.ReleaseShaderView)
}

func (d *Device) DestroyShaderView(v ShaderView) {
	destroy(d, "shader view", v, d.backend.ReleaseShaderView)
}

func (d *Device) OwnShaderView(v ShaderView) Unique[ShaderView] {
	return NewUnique(v, d.DestroyShaderView)
}

func (d *Device) CreateRenderTargetView(r Resource, desc RenderTargetViewDesc) (RenderTargetView, error) {
	if r.IsNull() {
		return NullRenderTargetView, wrapErr("CreateRenderTargetView", ErrInvalidHandle)
	}
	return create(d, "CreateRenderTargetView", func() (RenderTargetView, error) {
		return d.backend.CreateRenderTargetView(r, desc)
	}, "resource", r)
}

func (d *Device) ReleaseRenderTargetView(v RenderTargetView) error {
	return release(d, "ReleaseRenderTargetView", v, d.backend.ReleaseRenderTargetView)
}

func (d *Device) DestroyRenderTargetView(v RenderTargetView) {
	destroy(d, "render target view", v, d.backend.ReleaseRenderTargetView)
}

func (d *Device) OwnRenderTargetView(v RenderTargetView) Unique[RenderTargetView] {
	return NewUnique(v, d.DestroyRenderTargetView)
}

func (d *Device) CreateDepthStencilView(r Resource, desc DepthStencilViewDesc) (DepthStencilView, error) {
	if r.IsNull() {
		return NullDepthStencilView, wrapErr("CreateDepthStencilView", ErrInvalidHandle)
	}
	return create(d, "CreateDepthStencilView", func() (DepthStencilView, error) {
		return d.backend.CreateDepthStencilView(r, desc)
	}, "resource", r)
}

func (d *Device) ReleaseDepthStencilView(v DepthStencilView) error {
	return release(d, "ReleaseDepthStencilView", v, d.backend.ReleaseDepthStencilView)
}

func (d *Device) DestroyDepthStencilView(v DepthStencilView) {
	destroy(d, "depth stencil view", v, d.backend.ReleaseDepthStencilView)
}

func (d *Device) OwnDepthStencilView(v DepthStencilView) Unique[DepthStencilView] {
	return NewUnique(v, d.DestroyDepthStencilView)
}

func (d *Device) CreateSampler(desc SamplerDesc) (Sampler, error) {
	return create(d, "CreateSampler", func() (Sampler, error) {
		return d.backend.CreateSampler(desc)
	})
}

func (d *Device) ReleaseSampler(s Sampler) error {
	return release(d, "ReleaseSampler", s, d.backend.ReleaseSampler)
}

func (d *Device) DestroySampler(s Sampler) {
	destroy(d, "sampler", s, d.backend.ReleaseSampler)
}

func (d *Device) OwnSampler(s Sampler) Unique[Sampler] {
	return NewUnique(s, d.DestroySampler)
}

func (d *Device) CreateRootSignature(desc RootSignatureDesc) (RootSignature, error) {
	return create(d, "CreateRootSignature", func() (RootSignature, error) {
		return d.backend.CreateRootSignature(desc)
	}, "parameters", len(desc.Parameters), "name", desc.Name)
}

func (d *Device) ReleaseRootSignature(rs RootSignature) error {
	return release(d, "ReleaseRootSignature", rs, d.backend.ReleaseRootSignature)
}

func (d *Device) DestroyRootSignature(rs RootSignature) {
	destroy(d, "root signature", rs, d.backend.ReleaseRootSignature)
}

func (d *Device) OwnRootSignature(rs RootSignature) Unique[RootSignature] {
	return NewUnique(rs, d.DestroyRootSignature)
}

func (d *Device) CreateComputePipeline(desc ComputePipelineDesc) (Pipeline, error) {
	if desc.RootSignature.IsNull() {
		return NullPipeline, wrapErr("CreateComputePipeline", ErrInvalidHandle)
	}
	return create(d, "CreateComputePipeline", func() (Pipeline, error) {
		return d.backend.CreateComputePipeline(desc)
	}, "name", desc.Name)
}

func (d *Device) CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error) {
	if desc.RootSignature.IsNull() {
		return NullPipeline, wrapErr("CreateGraphicsPipeline", ErrInvalidHandle)
	}
	return create(d, "CreateGraphicsPipeline", func() (Pipeline, error) {
		return d.backend.CreateGraphicsPipeline(desc)
	}, "name", desc.Name)
}

func (d *Device) ReleasePipeline(p Pipeline) error {
	return release(d, "ReleasePipeline", p, d.backend.ReleasePipeline)
}

func (d *Device) DestroyPipeline(p Pipeline) {
	destroy(d, "pipeline", p, d.backend.ReleasePipeline)
}

func (d *Device) OwnPipeline(p Pipeline) Unique[Pipeline] {
	return NewUnique(p, d.DestroyPipeline)
}

func (d *Device) CreateQueryHeap(desc QueryHeapDesc) (QueryHeap, error) {
	return create(d, "CreateQueryHeap", func() (QueryHeap, error) {
		return d.backend.CreateQueryHeap(desc)
	}, "count", desc.Count)
}

func (d *Device) ReleaseQueryHeap(h QueryHeap) error {
	return release(d, "ReleaseQueryHeap", h, d.backend.ReleaseQueryHeap)
}

func (d *Device) DestroyQueryHeap(h QueryHeap) {
	destroy(d, "query heap", h, d.backend.ReleaseQueryHeap)
}

func (d *Device) OwnQueryHeap(h QueryHeap) Unique[QueryHeap] {
	return NewUnique(h, d.DestroyQueryHeap)
}
