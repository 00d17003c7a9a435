package vmm

import (
	"unsafe"

	"burrowos/kernel"
	"burrowos/kernel/mm"
)

var (
	// ptePtrFn returns a pointer to the entry at the supplied virtual
	// address. It is overridden by tests so the recursive mapping
	// arithmetic can be exercised without a live MMU. When compiling
	// the kernel this function is automatically inlined.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}

	// ErrNotMapped is returned when a virtual address does not resolve
	// to a mapped physical page.
	ErrNotMapped = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	errNoNextTable       = &kernel.Error{Module: "vmm", Message: "level-1 tables do not point to a next table level"}
	errNoHugePageSupport = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}
)

// TableLevel tags a Table view with its position in the paging
// hierarchy. The tag makes illegal descents (asking a level-1 table
// for its next table) a checked error instead of a silent
// reinterpretation of page contents as table entries.
type TableLevel uint8

const (
	// Level1 tables hold the final page mappings.
	Level1 TableLevel = iota + 1
	// Level2 tables point to level-1 tables.
	Level2
	// Level3 tables point to level-2 tables.
	Level3
	// Level4 is the root table loaded in CR3.
	Level4
)

// Table is a typed view over the 512 entries of one page table. The
// view address is an ordinary virtual address that resolves to the
// table's frame through the recursive mapping, so entries can be read
// and written without a dedicated physical memory window.
type Table struct {
	level TableLevel
	addr  uintptr
}

// Entry returns a pointer to the table slot selected by index.
func (t *Table) Entry(index uintptr) *pageTableEntry {
	return (*pageTableEntry)(ptePtrFn(t.addr + (index << mm.PointerShift)))
}

// Zero clears every entry in the table.
func (t *Table) Zero() {
	for index := uintptr(0); index < tableEntryCount; index++ {
		*t.Entry(index) = 0
	}
}

// nextTableAddr computes the virtual address of the table pointed to
// by the entry at index. Shifting the entry's own virtual address left
// by one index width pushes the walk one level of indirection deeper
// through the recursive mapping.
func (t *Table) nextTableAddr(index uintptr) uintptr {
	return (t.addr + (index << mm.PointerShift)) << tableIndexBits
}

// NextTable returns a view of the next-level table that the entry at
// index points to. It returns ErrNotMapped if the entry is not present
// and errNoHugePageSupport if the entry maps a huge page instead of a
// table.
func (t *Table) NextTable(index uintptr) (*Table, *kernel.Error) {
	if t.level == Level1 {
		return nil, errNoNextTable
	}

	pte := t.Entry(index)
	if !pte.HasFlags(FlagPresent) {
		return nil, ErrNotMapped
	}
	if pte.HasFlags(FlagHugePage) {
		return nil, errNoHugePageSupport
	}

	return &Table{level: t.level - 1, addr: t.nextTableAddr(index)}, nil
}

// NextTableCreate behaves like NextTable but allocates, installs and
// zeroes a new table if the entry at index is not present. Frames for
// new tables are drawn from alloc; an allocation failure is propagated
// before any entry is modified.
func (t *Table) NextTableCreate(index uintptr, alloc mm.FrameAllocator) (*Table, *kernel.Error) {
	if t.level == Level1 {
		return nil, errNoNextTable
	}

	pte := t.Entry(index)
	if !pte.HasFlags(FlagPresent) {
		frame, err := alloc.AllocFrame()
		if err != nil {
			return nil, err
		}

		pte.Set(frame, FlagPresent|FlagRW)

		// The new table becomes reachable through the recursive mapping
		// once its entry is installed but its contents are whatever the
		// allocator handed out; clear them before use.
		next := &Table{level: t.level - 1, addr: t.nextTableAddr(index)}
		next.Zero()
		return next, nil
	}

	return t.NextTable(index)
}
