// Package rhi is a thin, handle-based GPU abstraction: devices, queues with
// fences, command lists with deferred barrier batching, deferred resource
// destruction and owning handle wrappers. A Backend does the actual work.
package rhi

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/taigrr/culler/pkg/logging"
)

// DefaultDynamicPageSize is the size of one upload page of the dynamic
// allocator.
const DefaultDynamicPageSize = 1 << 20

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger. Devices log nothing by default.
func WithLogger(l *log.Logger) Option {
	return func(d *Device) {
		d.log = l
	}
}

// WithDynamicPageSize sets the page size of the dynamic allocator.
func WithDynamicPageSize(size uint64) Option {
	return func(d *Device) {
		if size > 0 {
			d.dynamicPageSize = size
		}
	}
}

// Device creates GPU objects, owns the four queues and paces frames.
// Creation and release methods are safe for concurrent use; frame methods
// must be called from one goroutine.
type Device struct {
	id      uuid.UUID
	desc    DeviceDesc
	backend Backend
	caps    Capabilities
	log     *log.Logger

	queues [queueKindCount]*CommandQueue

	deferred deferredQueue
	frames   frameRing
	copies   copyListPool
	dynamic  *dynamicAllocator

	dynamicPageSize uint64

	swapMu     sync.Mutex
	swapChains map[SwapChain]*swapChainState

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewDevice opens backend and creates the queues.
func NewDevice(desc DeviceDesc, backend Backend, opts ...Option) (*Device, error) {
	d := &Device{
		id:              uuid.New(),
		desc:            desc,
		backend:         backend,
		log:             logging.Discard(),
		dynamicPageSize: DefaultDynamicPageSize,
		swapChains:      make(map[SwapChain]*swapChainState),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("device", d.id.String()[:8])

	caps, err := backend.Open(desc, d.log)
	if err != nil {
		return nil, wrapErr("NewDevice", err)
	}
	d.caps = Capabilities{
		EnhancedBarriers: caps.EnhancedBarriers && !desc.ForceLegacyBarriers,
		ShaderModel66:    caps.ShaderModel66 && !desc.ForceNoShaderModel66,
		OpenExistingHeap: caps.OpenExistingHeap && !desc.ForceNoOpenExistingHeap,
	}

	for kind := range queueKindCount {
		bq, err := backend.Queue(kind)
		if err != nil {
			return nil, errors.Join(wrapErr("NewDevice", err), backend.Close())
		}
		d.queues[kind] = &CommandQueue{dev: d, kind: kind, bq: bq}
	}
	d.dynamic = newDynamicAllocator(d, d.dynamicPageSize)

	d.log.Info("device created",
		"backend", backend.Name(),
		"enhanced_barriers", d.caps.EnhancedBarriers,
		"sm6_6", d.caps.ShaderModel66,
		"debug_layer", desc.EnableDebugLayer)
	return d, nil
}

// ID identifies the device in logs.
func (d *Device) ID() uuid.UUID { return d.id }

// Desc returns the descriptor the device was created with.
func (d *Device) Desc() DeviceDesc { return d.desc }

// Capabilities returns the optional features in effect.
func (d *Device) Capabilities() Capabilities { return d.caps }

// Backend returns the backend the device drives.
func (d *Device) Backend() Backend { return d.backend }

// Logger returns the device logger.
func (d *Device) Logger() *log.Logger { return d.log }

// Queue returns the queue of the given kind.
func (d *Device) Queue(kind QueueKind) *CommandQueue {
	return d.queues[kind]
}

// WaitIdle blocks until every queue has drained, then frees everything
// awaiting deferred destruction.
func (d *Device) WaitIdle() {
	for _, q := range d.queues {
		q.WaitIdle()
	}
	d.collectGarbage()
}

// idle reports whether every queue has completed all submitted work.
func (d *Device) idle() bool {
	for _, q := range d.queues {
		if !q.IsComplete(q.LastSignaled()) {
			return false
		}
	}
	return true
}

func (d *Device) alive(op string) error {
	if d.closed.Load() {
		return wrapErr(op, ErrDeviceClosed)
	}
	return nil
}

// Close waits for the device to go idle and releases everything it owns.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.WaitIdle()
		errs := []error{d.dynamic.release()}

		d.swapMu.Lock()
		for sc, st := range d.swapChains {
			errs = append(errs, d.backend.ReleaseSwapChain(sc))
			st.close()
		}
		clear(d.swapChains)
		d.swapMu.Unlock()

		errs = append(errs, d.backend.Close())
		d.closed.Store(true)
		err = errors.Join(errs...)
		d.log.Info("device closed")
	})
	return err
}

func (d *Device) newList(typ listType) CopyCommandList {
	return CopyCommandList{dev: d, typ: typ, state: ListRecording}
}

// CreateCopyCommandList returns a list in the recording state.
func (d *Device) CreateCopyCommandList() *CopyCommandList {
	cl := d.newList(listCopy)
	return &cl
}

// CreateComputeCommandList returns a list in the recording state.
func (d *Device) CreateComputeCommandList() *ComputeCommandList {
	return &ComputeCommandList{CopyCommandList: d.newList(listCompute)}
}

// CreateGraphicsCommandList returns a list in the recording state.
func (d *Device) CreateGraphicsCommandList() *GraphicsCommandList {
	return &GraphicsCommandList{ComputeCommandList: ComputeCommandList{CopyCommandList: d.newList(listGraphics)}}
}
