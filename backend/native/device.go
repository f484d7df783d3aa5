// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldplot/backend"
	"github.com/gogpu/fieldplot/plotcore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Name is the registry name of the native GPU backend.
const Name = "native"

const gpuWaitTimeout = 5 * time.Second

var (
	// ErrNoVulkan is returned when the Vulkan backend is unavailable.
	ErrNoVulkan = errors.New("native: vulkan backend not available")

	// ErrNoAdapter is returned when no GPU adapter is found.
	ErrNoAdapter = errors.New("native: no GPU adapters found")

	// ErrDeviceClosed is returned from all operations after Close.
	ErrDeviceClosed = errors.New("native: device closed")

	// ErrUnknownBuffer is returned for a buffer ID the device never
	// issued or has already destroyed.
	ErrUnknownBuffer = errors.New("native: unknown buffer")

	// ErrUnknownBinding is returned for a binding ID with no live
	// registration.
	ErrUnknownBinding = errors.New("native: unknown binding")

	// ErrBufferBound is returned when destroying a buffer that still
	// has a registration, or registering one twice.
	ErrBufferBound = errors.New("native: buffer still bound")

	// ErrWriteWindowOpen is returned when an operation requires the
	// write window to be closed.
	ErrWriteWindowOpen = errors.New("native: write window open")

	// ErrWriteWindowClosed is returned by ReleaseWrite without a
	// matching AcquireWrite.
	ErrWriteWindowClosed = errors.New("native: write window not open")

	// ErrBufferSize is returned when a registration does not fit in
	// its buffer.
	ErrBufferSize = errors.New("native: buffer too small for binding")

	// ErrBindingSize is returned when a blit disagrees with the
	// registered dimensions.
	ErrBindingSize = errors.New("native: blit dimensions do not match binding")
)

func init() {
	backend.Register(Name, 100, func(opts backend.Options) (plotcore.Device, error) {
		return New(opts)
	}, Available)
}

// Available reports whether a Vulkan hal backend is registered.
func Available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

type gpuBuffer struct {
	buf     hal.Buffer
	size    int    // logical RGB byte size
	staging []byte // padded to 4 bytes for u32 addressing in the shader
	mapped  bool
	binding plotcore.BindingID
}

type gpuBinding struct {
	buffer        plotcore.BufferID
	width, height int
	params        hal.Buffer
	group         hal.BindGroup
}

// Device is a plotcore.Device backed by a wgpu hal device. All GPU
// work is submitted synchronously with a fence wait, so every method
// returns only after its effect is visible.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device, don't destroy on Close

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	frameW, frameH int
	frameBuf       hal.Buffer

	nextID   uint64
	buffers  map[plotcore.BufferID]*gpuBuffer
	bindings map[plotcore.BindingID]*gpuBinding

	closed bool
}

var (
	_ plotcore.Device      = (*Device)(nil)
	_ plotcore.FrameReader = (*Device)(nil)
)

// New opens a Vulkan adapter and builds a standalone device. It prefers
// a discrete GPU, then an integrated one.
func New(opts backend.Options) (*Device, error) {
	be, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoVulkan
	}
	instance, err := be.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
	}
	if err := d.setup(opts); err != nil {
		d.device.Destroy()
		instance.Destroy()
		return nil, err
	}
	slogger().Debug("native device ready", "adapter", selected.Info.Name,
		"frame_w", d.frameW, "frame_h", d.frameH)
	return d, nil
}

// NewFromContext builds a device on a GPU device shared by the host
// application, typically a gogpu window. The provider must expose the
// underlying hal handles through HalDevice and HalQueue. A shared
// device is not destroyed on Close.
func NewFromContext(provider gpucontext.DeviceProvider, opts backend.Options) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("native: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("native: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("native: provider HalQueue is not hal.Queue")
	}

	d := &Device{
		device:   device,
		queue:    queue,
		external: true,
	}
	if err := d.setup(opts); err != nil {
		return nil, err
	}
	slogger().Debug("native device ready on shared GPU device",
		"frame_w", d.frameW, "frame_h", d.frameH)
	return d, nil
}

// setup builds the pipeline and the frame storage buffer.
func (d *Device) setup(opts backend.Options) error {
	d.frameW = opts.FrameWidth
	d.frameH = opts.FrameHeight
	if d.frameW <= 0 {
		d.frameW = backend.DefaultFrameSize
	}
	if d.frameH <= 0 {
		d.frameH = backend.DefaultFrameSize
	}
	d.buffers = make(map[plotcore.BufferID]*gpuBuffer)
	d.bindings = make(map[plotcore.BindingID]*gpuBinding)

	if err := d.createPipeline(); err != nil {
		d.destroyPipeline()
		return err
	}

	frameBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fieldplot_frame",
		Size:  uint64(d.frameW) * uint64(d.frameH) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.destroyPipeline()
		return fmt.Errorf("native: create frame buffer: %w", err)
	}
	d.frameBuf = frameBuf

	// Opaque black initial frame.
	pix := make([]byte, d.frameW*d.frameH*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xFF
	}
	d.queue.WriteBuffer(d.frameBuf, 0, pix)
	return nil
}

// SetLogger routes device logging to l. Called by fieldplot.Surface
// when the device is attached.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// FrameSize returns the output frame dimensions in pixels.
func (d *Device) FrameSize() (w, h int) { return d.frameW, d.frameH }

func (d *Device) CreateBuffer(size int) (plotcore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return plotcore.InvalidID, ErrDeviceClosed
	}
	if size <= 0 {
		return plotcore.InvalidID, fmt.Errorf("native: buffer size %d must be positive", size)
	}
	padded := (size + 3) &^ 3
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fieldplot_shared",
		Size:  uint64(padded),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return plotcore.InvalidID, fmt.Errorf("native: create buffer: %w", err)
	}
	d.nextID++
	id := plotcore.BufferID(d.nextID)
	d.buffers[id] = &gpuBuffer{
		buf:     buf,
		size:    size,
		staging: make([]byte, padded),
	}
	slogger().Debug("buffer created", "id", uint64(id), "size", size)
	return id, nil
}

func (d *Device) DestroyBuffer(id plotcore.BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return ErrUnknownBuffer
	}
	if b.binding != plotcore.InvalidID {
		return ErrBufferBound
	}
	d.device.DestroyBuffer(b.buf)
	delete(d.buffers, id)
	slogger().Debug("buffer destroyed", "id", uint64(id))
	return nil
}

func (d *Device) Register(id plotcore.BufferID, width, height int) (plotcore.BindingID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return plotcore.InvalidID, ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return plotcore.InvalidID, ErrUnknownBuffer
	}
	if b.binding != plotcore.InvalidID {
		return plotcore.InvalidID, ErrBufferBound
	}
	if width <= 0 || height <= 0 {
		return plotcore.InvalidID, fmt.Errorf("native: binding %dx%d must be positive", width, height)
	}
	if b.size < 3*width*height {
		return plotcore.InvalidID, ErrBufferSize
	}

	params, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fieldplot_blit_params",
		Size:  blitParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return plotcore.InvalidID, fmt.Errorf("native: create params buffer: %w", err)
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fieldplot_blit_bind",
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: params.NativeHandle(), Offset: 0, Size: blitParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: 0, Size: uint64(len(b.staging))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: d.frameBuf.NativeHandle(), Offset: 0, Size: uint64(d.frameW) * uint64(d.frameH) * 4}},
		},
	})
	if err != nil {
		d.device.DestroyBuffer(params)
		return plotcore.InvalidID, fmt.Errorf("native: create bind group: %w", err)
	}

	d.nextID++
	bid := plotcore.BindingID(d.nextID)
	d.bindings[bid] = &gpuBinding{
		buffer: id,
		width:  width,
		height: height,
		params: params,
		group:  group,
	}
	b.binding = bid
	slogger().Debug("buffer registered", "buffer", uint64(id), "binding", uint64(bid),
		"width", width, "height", height)
	return bid, nil
}

func (d *Device) Unregister(id plotcore.BindingID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	bd, ok := d.bindings[id]
	if !ok {
		return ErrUnknownBinding
	}
	if b, ok := d.buffers[bd.buffer]; ok {
		b.binding = plotcore.InvalidID
	}
	d.dropBinding(id)
	slogger().Debug("buffer unregistered", "buffer", uint64(bd.buffer), "binding", uint64(id))
	return nil
}

// dropBinding destroys a binding's GPU resources. Caller holds d.mu.
func (d *Device) dropBinding(bid plotcore.BindingID) {
	bd, ok := d.bindings[bid]
	if !ok {
		return
	}
	d.device.DestroyBindGroup(bd.group)
	d.device.DestroyBuffer(bd.params)
	delete(d.bindings, bid)
}

func (d *Device) AcquireWrite(id plotcore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, ErrUnknownBuffer
	}
	if b.mapped {
		return nil, ErrWriteWindowOpen
	}
	b.mapped = true
	return b.staging[:b.size], nil
}

func (d *Device) ReleaseWrite(id plotcore.BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return ErrUnknownBuffer
	}
	if !b.mapped {
		return ErrWriteWindowClosed
	}
	b.mapped = false
	d.queue.WriteBuffer(b.buf, 0, b.staging)
	return nil
}

func (d *Device) Blit(binding plotcore.BindingID, width, height int, rect plotcore.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	bd, ok := d.bindings[binding]
	if !ok {
		return ErrUnknownBinding
	}
	if bd.width != width || bd.height != height {
		return ErrBindingSize
	}
	if b, ok := d.buffers[bd.buffer]; ok && b.mapped {
		return ErrWriteWindowOpen
	}

	// Frame rows grow downward while NDC y grows upward, so the rect's
	// y interval flips.
	px0, px1 := pixelSpan(rect.X0, rect.X1, d.frameW)
	py0, py1 := pixelSpan(-rect.Y1, -rect.Y0, d.frameH)
	dstW, dstH := px1-px0, py1-py0
	if dstW <= 0 || dstH <= 0 {
		return nil
	}

	d.queue.WriteBuffer(bd.params, 0, packBlitParams(
		uint32(width), uint32(height),
		uint32(px0), uint32(py0),
		uint32(dstW), uint32(dstH),
		uint32(d.frameW), uint32(d.frameH),
	))
	return d.dispatchBlit(bd.group, dstW, dstH)
}

// dispatchBlit encodes one compute pass over dstW x dstH pixels and
// waits for completion. Caller holds d.mu.
func (d *Device) dispatchBlit(group hal.BindGroup, dstW, dstH int) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fieldplot_blit_encoder"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fieldplot_blit"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "fieldplot_blit_pass"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch((uint32(dstW)+7)/8, (uint32(dstH)+7)/8, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	return d.submitAndWait([]hal.CommandBuffer{cmdBuf})
}

// submitAndWait submits command buffers and blocks on a fence.
// Caller holds d.mu.
func (d *Device) submitAndWait(cmdBufs []hal.CommandBuffer) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("native: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit(cmdBufs, fence, 1); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("native: wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

// Present is a synchronization point. Blits are already fenced, so the
// frame is complete when Present returns.
func (d *Device) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	slogger().Debug("frame presented")
	return nil
}

// ReadFrame copies the frame storage buffer back to the host. Pixel
// words are packed r | g<<8 | b<<16 | a<<24, which is RGBA byte order
// on a little-endian host.
func (d *Device) ReadFrame() (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}

	size := uint64(d.frameW) * uint64(d.frameH) * 4
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fieldplot_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fieldplot_readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fieldplot_readback"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(d.frameBuf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)
	if err := d.submitAndWait([]hal.CommandBuffer{cmdBuf}); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, d.frameW, d.frameH))
	if err := d.queue.ReadBuffer(staging, 0, img.Pix); err != nil {
		return nil, fmt.Errorf("native: readback: %w", err)
	}
	return img, nil
}

// Close releases all GPU resources. Live bindings and buffers are
// destroyed with a warning. A shared device is left open for its
// owner. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if n := len(d.bindings); n > 0 {
		slogger().Warn("closing device with live bindings", "count", n)
	}
	for bid := range d.bindings {
		d.dropBinding(bid)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	if d.frameBuf != nil {
		d.device.DestroyBuffer(d.frameBuf)
		d.frameBuf = nil
	}
	d.destroyPipeline()

	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
	return nil
}
