package kmain

import (
	"burrowos/kernel/cpu"
	"burrowos/kernel/kfmt"
	"burrowos/kernel/mm/pmm"
	"burrowos/kernel/mm/vmm"
	"burrowos/multiboot"
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and setting up a a minimal g0 struct that allows
// Go code using the 4K stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader as well as the physical addresses for the kernel start/end.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	var frameAllocator pmm.BootMemAllocator
	frameAllocator.Init(kernelStart, kernelEnd)
	frameAllocator.PrintMemoryMap()

	active := vmm.NewActivePageTable()

	newTable, err := vmm.RemapKernel(active, &frameAllocator)
	if err != nil {
		panic(err)
	}

	// After the switch only the kernel's own ELF sections remain
	// mapped; every page the boot tables covered beyond them is gone.
	active.Switch(newTable)
	kfmt.Printf("[kmain] switched to remapped kernel page tables\n")

	// Prevent Kmain from returning
	for {
		cpu.Halt()
	}
}
