package program

// Handle is any GPU object owned by a Program. The wgpu buffer, bind group, layout, shader
// module and pipeline types all satisfy it.
type Handle interface {
	Release()
}

// BindGroupEntry describes one uniform buffer inside a bind group.
type BindGroupEntry struct {
	// Binding is the binding index inside the group.
	Binding uint32

	// Buffer is the uniform buffer bound at that index.
	Buffer Handle

	// Size is the buffer size in bytes.
	Size uint64
}

// PipelineDescriptor carries everything needed to assemble the full-screen render pipeline.
type PipelineDescriptor struct {
	// Label is a debug label for the pipeline and its layout.
	Label string

	// Vertex is the fixed vertex-stage shader module.
	Vertex Handle

	// Fragment is the user fragment-stage shader module.
	Fragment Handle

	// EntryPoint is the fragment-stage entry point name. The vertex stage always uses "main".
	EntryPoint string

	// GroupLayouts is indexed by bind group number. A nil entry marks a group number that the
	// shader does not use; the backend fills it with an empty layout.
	GroupLayouts []Handle
}

// Backend creates the GPU objects that make up a Program and uploads uniform data.
// Object creation may be called from the compiler goroutine while the render thread writes
// buffers, so implementations must allow both concurrently.
type Backend interface {
	// CreateShaderModule creates a shader module from SPIR-V bytecode.
	//
	// Parameters:
	//   - label: a debug label
	//   - code: the SPIR-V module bytes
	//
	// Returns:
	//   - Handle: the shader module
	//   - error: an error if the module was rejected
	CreateShaderModule(label string, code []byte) (Handle, error)

	// CreateUniformBuffer creates a buffer usable as a uniform source and copy destination.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - Handle: the buffer
	//   - error: an error if allocation failed
	CreateUniformBuffer(label string, size uint64) (Handle, error)

	// CreateBindGroup creates a bind group layout with one fragment-visible uniform-buffer entry
	// per binding, and a bind group binding the given buffers to it.
	//
	// Parameters:
	//   - group: the bind group index, used for labels
	//   - entries: the buffers to bind, ordered by binding index
	//
	// Returns:
	//   - Handle: the bind group layout
	//   - Handle: the bind group
	//   - error: an error if either object could not be created
	CreateBindGroup(group uint32, entries []BindGroupEntry) (Handle, Handle, error)

	// CreatePipeline creates the pipeline layout, including the push-constant range for the
	// Constants block, and the render pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - Handle: the render pipeline
	//   - error: an error if the pipeline was rejected
	CreatePipeline(desc PipelineDescriptor) (Handle, error)

	// WriteBuffer queues a write of data to the start of a uniform buffer.
	//
	// Parameters:
	//   - buffer: a buffer created by CreateUniformBuffer
	//   - data: the bytes to write
	WriteBuffer(buffer Handle, data []byte)
}

// releaseAll releases every non-nil handle in reverse creation order.
func releaseAll(handles []Handle) {
	for i := len(handles) - 1; i >= 0; i-- {
		if handles[i] != nil {
			handles[i].Release()
		}
	}
}
