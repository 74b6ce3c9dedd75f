package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/shaderview/common"
	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexEntryPoint is the entry point of the built-in vertex stage.
const vertexEntryPoint = "main"

// constantsStages are the shader stages the Constants push-constant range is visible to.
const constantsStages = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeFifo (VSync)
	configured    bool

	// Frame state between BeginFrame and EndFrame
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	program.Backend

	// ConfigureSurface (re)configures the swapchain for the given framebuffer size. A zero
	// width or height, as reported for a minimized window, leaves the surface unconfigured and
	// BeginFrame fails until the next non-zero size.
	//
	// Parameters:
	//   - width: framebuffer width in pixels
	//   - height: framebuffer height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode selects the present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the next swapchain image and begins a render pass that clears it.
	//
	// Returns:
	//   - passEncoder: the pass to record draws into
	//   - error: an error if no image could be acquired
	BeginFrame() (passEncoder, error)

	// EndFrame ends the pass, submits the recorded commands and presents the image.
	EndFrame()

	// Release releases the device and surface.
	Release()
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the WebGPU instance, surface, adapter and device on the calling
// thread, which stays locked to it. The device is requested with push constants enabled and a
// push-constant budget of exactly one Constants block.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: []wgpu.FeatureName{wgpu.NativeFeaturePushConstants},
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
			NativeLimits: wgpu.NativeLimits{
				MaxPushConstantSize: program.ConstantsSize,
			},
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	w.surfaceFormat = chooseSurfaceFormat(w.surface.GetCapabilities(a).Formats)
	return w
}

// chooseSurfaceFormat prefers BGRA8Unorm so that shader output is written to the display
// without sRGB conversion, then any other non-sRGB 8-bit format.
func chooseSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, want := range []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm} {
		if slices.Contains(formats, want) {
			return want
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	return wgpu.TextureFormatBGRA8Unorm
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		b.configured = false
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	presentMode := b.presentMode
	if !slices.Contains(capabilities.PresentModes, presentMode) {
		presentMode = wgpu.PresentModeFifo
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.configured = true
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeMailbox:
		b.presentMode = wgpu.PresentModeMailbox
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) CreateShaderModule(label string, code []byte) (program.Handle, error) {
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		SPIRVDescriptor: &wgpu.ShaderModuleSPIRVDescriptor{
			Code: code,
		},
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// uniformBufferSize rounds a packed uniform size up to the 16-byte granularity WebGPU requires
// for uniform bindings.
func uniformBufferSize(size uint64) uint64 {
	return max(16, common.AlignUp(size, 16))
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (program.Handle, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uniformBufferSize(size),
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(group uint32, entries []program.BindGroupEntry) (program.Handle, program.Handle, error) {
	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(entries))
	groupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		buf, ok := e.Buffer.(*wgpu.Buffer)
		if !ok {
			return nil, nil, fmt.Errorf("binding %d: buffer was not created by this backend", e.Binding)
		}
		layoutEntries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uniformBufferSize(e.Size),
			},
		}
		groupEntries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("Group %d Layout", group),
		Entries: layoutEntries,
	})
	if err != nil {
		return nil, nil, err
	}
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("Group %d Bind Group", group),
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		layout.Release()
		return nil, nil, err
	}
	return layout, bindGroup, nil
}

// pipelineHandle owns a render pipeline together with its pipeline layout and the empty bind
// group layouts created for unused group indices.
type pipelineHandle struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	empty    []*wgpu.BindGroupLayout
}

func (h *pipelineHandle) Release() {
	if h.pipeline != nil {
		h.pipeline.Release()
	}
	if h.layout != nil {
		h.layout.Release()
	}
	for _, l := range h.empty {
		l.Release()
	}
}

func (b *wgpuRendererBackendImpl) CreatePipeline(desc program.PipelineDescriptor) (program.Handle, error) {
	vs, ok := desc.Vertex.(*wgpu.ShaderModule)
	if !ok {
		return nil, errors.New("vertex module was not created by this backend")
	}
	fs, ok := desc.Fragment.(*wgpu.ShaderModule)
	if !ok {
		return nil, errors.New("fragment module was not created by this backend")
	}

	h := &pipelineHandle{}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(desc.GroupLayouts))
	for g, l := range desc.GroupLayouts {
		if l != nil {
			bindGroupLayouts[g] = l.(*wgpu.BindGroupLayout)
			continue
		}
		empty, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: fmt.Sprintf("%s Empty Group %d Layout", desc.Label, g),
		})
		if err != nil {
			h.Release()
			return nil, fmt.Errorf("failed to create empty bind group layout for group %d: %w", g, err)
		}
		h.empty = append(h.empty, empty)
		bindGroupLayouts[g] = empty
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: bindGroupLayouts,
		PushConstantRanges: []wgpu.PushConstantRange{
			{
				Stages: constantsStages,
				Start:  0,
				End:    program.ConstantsSize,
			},
		},
	})
	if err != nil {
		h.Release()
		return nil, err
	}
	h.layout = pipelineLayout

	entryPoint := desc.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexEntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: entryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		h.Release()
		return nil, err
	}
	h.pipeline = created
	return h, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buffer program.Handle, data []byte) {
	buf, ok := buffer.(*wgpu.Buffer)
	if !ok {
		return
	}
	b.queue.WriteBuffer(buf, 0, data)
}

func (b *wgpuRendererBackendImpl) BeginFrame() (passEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return nil, errors.New("surface not configured")
	}
	// A previous frame that was never presented still holds the swapchain image.
	if b.frameSurface != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0, G: 0, B: 0, A: 1.0,
				},
			},
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return &wgpuPass{pass: pass}, nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		b.surface.Present()
	}

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// wgpuPass adapts a wgpu render pass to passEncoder.
type wgpuPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuPass) SetPipeline(pipeline program.Handle) {
	p.pass.SetPipeline(pipeline.(*pipelineHandle).pipeline)
}

func (p *wgpuPass) SetBindGroup(index uint32, bindGroup program.Handle) {
	p.pass.SetBindGroup(index, bindGroup.(*wgpu.BindGroup), nil)
}

func (p *wgpuPass) SetConstants(data []byte) {
	p.pass.SetPushConstants(constantsStages, 0, data)
}

func (p *wgpuPass) Draw(vertexCount uint32) {
	p.pass.Draw(vertexCount, 1, 0, 0)
}
