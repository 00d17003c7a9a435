package mm

import "burrowos/kernel"

// FrameAllocator is the capability for acquiring and releasing physical
// memory frames. Code that needs to allocate frames receives an
// explicit FrameAllocator handle; there is no global allocator.
type FrameAllocator interface {
	// AllocFrame reserves the next available free frame. It returns
	// InvalidFrame and an error when physical memory is exhausted.
	AllocFrame() (Frame, *kernel.Error)

	// FreeFrame releases a frame previously returned by AllocFrame.
	// Allocators that cannot recycle frames may treat this as a no-op.
	FreeFrame(Frame) *kernel.Error
}
