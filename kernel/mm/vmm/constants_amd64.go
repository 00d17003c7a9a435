package vmm

import "math"

const (
	// pageLevels indicates the number of page table levels supported by
	// the amd64 architecture.
	pageLevels = 4

	// tableEntryCount is the number of entries in a table at any level.
	tableEntryCount = 512

	// tableIndexBits is the number of virtual address bits that select
	// an entry inside one table level.
	tableIndexBits = 9

	// recursiveIndex is the level-4 slot reserved for the recursive
	// mapping: it always points back at the level-4 table's own frame,
	// making every table in the hierarchy reachable through ordinary
	// address translation.
	recursiveIndex = uintptr(tableEntryCount - 1)

	// ptePhysPageMask extracts the physical address bits (12-51) from a
	// page table entry.
	ptePhysPageMask = uintptr(0x000ffffffffff000)
)

var (
	// p4VirtualAddr is the virtual address that resolves to the
	// currently active level-4 table. With every index of the address
	// set to the recursive slot, the MMU follows the level-4 table's
	// last entry at each step of the walk and lands back on the level-4
	// table itself.
	p4VirtualAddr = uintptr(math.MaxUint64 &^ ((1 << 12) - 1))
)

const (
	// FlagPresent is set when the page is available in memory and not
	// swapped out.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode processes can access this
	// page. If not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and
	// write-back caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagHugePage is set when using 2Mb pages instead of 4K pages.
	FlagHugePage

	// FlagGlobal if set, prevents the TLB from flushing the cached
	// memory address for this page when swapping page tables by updating
	// the CR3 register.
	FlagGlobal

	// FlagNoExecute if set, indicates that a page contains
	// non-executable code.
	FlagNoExecute = 1 << 63
)
