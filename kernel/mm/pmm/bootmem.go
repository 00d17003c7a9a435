// Package pmm implements the physical memory allocator that hands out
// frames during the early boot stages.
package pmm

import (
	"burrowos/kernel"
	"burrowos/kernel/kfmt"
	"burrowos/kernel/mm"
	"burrowos/multiboot"
)

var errBootAllocOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

// BootMemAllocator is a rudimentary physical frame allocator used to
// bootstrap the kernel. It implements mm.FrameAllocator.
//
// The allocator scans the memory region information supplied by the
// bootloader and returns free frames in ascending order, skipping the
// region occupied by the kernel image. Allocations are tracked with a
// single watermark: the last allocated frame. Frames below the
// watermark can never be handed out again, so the allocator cannot
// recycle freed frames; once the kernel is fully initialized the
// allocated ranges are expected to be handed over to a proper
// allocator.
type BootMemAllocator struct {
	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	// lastAllocFrame tracks the last allocated frame number.
	lastAllocFrame mm.Frame

	// The extents of the loaded kernel image; frames inside this range
	// are never handed out.
	kernelStartAddr, kernelEndAddr   uintptr
	kernelStartFrame, kernelEndFrame mm.Frame
}

// Init records the extents of the loaded kernel image so the allocator
// can exclude its frames from the free set.
func (alloc *BootMemAllocator) Init(kernelStart, kernelEnd uintptr) {
	// round kernel start down and kernel end up to a page boundary
	pageSizeMinus1 := mm.PageSize - 1
	alloc.kernelStartAddr = kernelStart
	alloc.kernelEndAddr = kernelEnd
	alloc.kernelStartFrame = mm.Frame((kernelStart & ^pageSizeMinus1) >> mm.PageShift)
	alloc.kernelEndFrame = mm.Frame(((kernelEnd+pageSizeMinus1) & ^pageSizeMinus1)>>mm.PageShift) - 1
}

// AllocFrame scans the system memory regions reported by the bootloader
// and reserves the next available free frame.
//
// AllocFrame returns an error if no more memory can be allocated.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	var err = errBootAllocOutOfMemory

	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		// Ignore reserved regions and regions smaller than a single page
		if region.Type != multiboot.MemAvailable || region.Length < uint64(mm.PageSize) {
			return true
		}

		// Reported addresses may not be page-aligned; round up to get
		// the start frame and round down to get the end frame
		pageSizeMinus1 := uint64(mm.PageSize - 1)
		regionStartFrame := mm.Frame(((region.PhysAddress + pageSizeMinus1) & ^pageSizeMinus1) >> mm.PageShift)
		regionEndFrame := mm.Frame(((region.PhysAddress+region.Length) & ^pageSizeMinus1)>>mm.PageShift) - 1

		// Skip over regions that have been fully consumed
		if alloc.lastAllocFrame >= regionEndFrame {
			return true
		}

		// If the last frame belongs to a previous region and the kernel
		// image sits at the start of this region, OR the next frame in
		// this region would land on the kernel start, jump past the
		// kernel image.
		if (alloc.lastAllocFrame <= regionStartFrame && alloc.kernelStartFrame == regionStartFrame) ||
			(alloc.lastAllocFrame <= regionEndFrame && alloc.lastAllocFrame+1 == alloc.kernelStartFrame) {
			alloc.lastAllocFrame = alloc.kernelEndFrame + 1
		} else if alloc.lastAllocFrame < regionStartFrame || alloc.allocCount == 0 {
			// The last frame belongs to a previous region, or this is
			// the very first allocation and the region begins at frame 0
			alloc.lastAllocFrame = regionStartFrame
		} else {
			// We are inside the region and can pick the next frame
			alloc.lastAllocFrame++
		}

		// The kernel-skip adjustment may have pushed lastAllocFrame
		// past the region end (e.g. the kernel ends at the region's
		// last page)
		if alloc.lastAllocFrame > regionEndFrame {
			return true
		}

		err = nil
		return false
	})

	if err != nil {
		return mm.InvalidFrame, errBootAllocOutOfMemory
	}

	alloc.allocCount++
	return alloc.lastAllocFrame, nil
}

// FreeFrame satisfies mm.FrameAllocator. The boot allocator has no
// bookkeeping that would let it reuse the frame, so the frame is
// simply dropped.
func (alloc *BootMemAllocator) FreeFrame(_ mm.Frame) *kernel.Error {
	return nil
}

// PrintMemoryMap scans the memory region information provided by the
// bootloader and prints out the system's memory map.
func (alloc *BootMemAllocator) PrintMemoryMap() {
	kfmt.Printf("[pmm] system memory map:\n")
	var totalFree uint64
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.PhysAddress, region.PhysAddress+region.Length, region.Length, region.Type.String())

		if region.Type == multiboot.MemAvailable {
			totalFree += region.Length
		}
		return true
	})
	kfmt.Printf("[pmm] available memory: %dKb\n", totalFree/1024)
	kfmt.Printf("[pmm] kernel loaded at 0x%x - 0x%x\n", alloc.kernelStartAddr, alloc.kernelEndAddr)
	kfmt.Printf("[pmm] size: %d bytes, reserved pages: %d\n",
		uint64(alloc.kernelEndAddr-alloc.kernelStartAddr),
		uint64(alloc.kernelEndFrame-alloc.kernelStartFrame+1),
	)
}
