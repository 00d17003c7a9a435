package cpu

// Halt stops instruction execution.
func Halt()

// ActivePDT returns the physical address of the level-4 page table
// that is currently loaded into the CR3 register.
func ActivePDT() uintptr

// SwitchPDT loads CR3 with the supplied physical address making it the
// active level-4 page table. Writing to CR3 also flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// FlushTLB invalidates every cached address translation by reloading
// the CR3 register with its current value.
func FlushTLB()

// FlushTLBEntry invalidates the cached translation for a single
// virtual address.
func FlushTLBEntry(virtAddr uintptr)
