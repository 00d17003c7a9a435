package vmm

import (
	"unsafe"

	"burrowos/kernel"
	"burrowos/kernel/kfmt"
	"burrowos/kernel/mm"
	"burrowos/multiboot"
)

// visitElfSectionsFn is used by tests to override calls to
// multiboot.VisitElfSections which requires a live multiboot info
// block.
var visitElfSectionsFn = multiboot.VisitElfSections

var errUnalignedSection = &kernel.Error{Module: "vmm", Message: "ELF section address is not page-aligned"}

// remapTempPage is the reserved page used while staging the remapped
// kernel table hierarchy. Its level-4 index differs from the recursive
// index so the page stays reachable while the recursive slot is
// redirected.
const remapTempPage = mm.Page(0xcafebabe)

// RemapKernel builds a fresh table hierarchy that identity-maps only
// the ELF sections the bootloader loaded into memory and returns it
// staged and ready to be switched to. The hierarchy active at boot
// maps far more than the kernel image needs; after switching to the
// returned hierarchy any access outside the kernel sections faults
// instead of silently succeeding.
//
// The new hierarchy is populated through a single With call so it
// never has to be loaded while incomplete.
func RemapKernel(active *ActivePageTable, alloc mm.FrameAllocator) (*InactivePageTable, *kernel.Error) {
	tempPage, err := NewTemporaryPage(remapTempPage, alloc)
	if err != nil {
		return nil, err
	}

	p4Frame, err := alloc.AllocFrame()
	if err != nil {
		return nil, err
	}

	newTable, err := NewInactivePageTable(p4Frame, active, tempPage)
	if err != nil {
		return nil, err
	}

	var mapErr *kernel.Error

	err = active.With(newTable, tempPage, func(mapper *Mapper) {
		visitor := func(secName string, secFlags multiboot.ElfSectionFlag, secAddress uintptr, secSize uint64) {
			if mapErr != nil || secFlags&multiboot.ElfSectionAllocated == 0 {
				return
			}

			if secAddress&(mm.PageSize-1) != 0 {
				panic(errUnalignedSection)
			}

			kfmt.Printf("[vmm] remapping section %s at 0x%16x (size: %d bytes)\n", secName, secAddress, secSize)

			// TODO: map sections with their reported flags instead of
			// uniformly RW once .text and .rodata get their own frames.
			startFrame := mm.FrameFromAddress(secAddress)
			endFrame := mm.FrameFromAddress(secAddress + uintptr(secSize) - 1)
			for frame := startFrame; frame <= endFrame; frame++ {
				if err := mapper.IdentityMap(frame, FlagRW, alloc); err != nil {
					mapErr = err
					return
				}
			}
		}

		// Use the noescape hack to prevent the compiler from leaking the
		// visitor function literal to the heap.
		visitElfSectionsFn(
			*(*multiboot.ElfSectionVisitor)(noEscape(unsafe.Pointer(&visitor))),
		)
	})

	switch {
	case err != nil:
		return nil, err
	case mapErr != nil:
		return nil, mapErr
	}

	return newTable, nil
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
