package vmm

import (
	"burrowos/kernel"
	"burrowos/kernel/cpu"
	"burrowos/kernel/mm"
)

var (
	// flushTLBEntryFn is used by tests to override calls to
	// cpu.FlushTLBEntry which will cause a fault if called in user-mode.
	flushTLBEntryFn = cpu.FlushTLBEntry
)

// Mapper navigates and mutates the table hierarchy that is reachable
// through the recursive mapping. It holds the one virtual address that
// is always dereferenceable while the recursive mapping is installed:
// the address of the recursively mapped level-4 table.
type Mapper struct {
	p4Addr uintptr
}

func newMapper() Mapper {
	return Mapper{p4Addr: p4VirtualAddr}
}

// P4 returns a view of the recursively mapped level-4 table.
func (m *Mapper) P4() *Table {
	return &Table{level: Level4, addr: m.p4Addr}
}

// Translate walks down the table hierarchy for virtAddr and returns
// the physical address it maps to, or ErrNotMapped if any table entry
// on the way is not present.
func (m *Mapper) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	page := mm.PageFromAddress(virtAddr)

	p3, err := m.P4().NextTable(page.P4Index())
	if err != nil {
		return 0, err
	}
	p2, err := p3.NextTable(page.P3Index())
	if err != nil {
		return 0, err
	}
	p1, err := p2.NextTable(page.P2Index())
	if err != nil {
		return 0, err
	}

	pte := p1.Entry(page.P1Index())
	if !pte.HasFlags(FlagPresent) {
		return 0, ErrNotMapped
	}

	return pte.Frame().Address() + pageOffset(virtAddr), nil
}

// MapTo establishes a mapping from page to frame, creating any missing
// intermediate tables with frames drawn from alloc. The final entry is
// installed with flags|FlagPresent in a single store and its TLB entry
// is flushed. MapTo can fail only through frame exhaustion, in which
// case the level-1 entry for page is left untouched.
func (m *Mapper) MapTo(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	p3, err := m.P4().NextTableCreate(page.P4Index(), alloc)
	if err != nil {
		return err
	}
	p2, err := p3.NextTableCreate(page.P3Index(), alloc)
	if err != nil {
		return err
	}
	p1, err := p2.NextTableCreate(page.P2Index(), alloc)
	if err != nil {
		return err
	}

	p1.Entry(page.P1Index()).Set(frame, flags|FlagPresent)
	flushTLBEntryFn(page.Address())
	return nil
}

// IdentityMap maps the page whose virtual address equals frame's
// physical address to frame itself.
func (m *Mapper) IdentityMap(frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	return m.MapTo(mm.PageFromAddress(frame.Address()), frame, flags, alloc)
}

// Unmap removes the mapping for page and flushes its TLB entry. The
// frame the page was mapped to is not released; reclaiming frames is
// left to the owner of the address space.
func (m *Mapper) Unmap(page mm.Page) *kernel.Error {
	p3, err := m.P4().NextTable(page.P4Index())
	if err != nil {
		return err
	}
	p2, err := p3.NextTable(page.P3Index())
	if err != nil {
		return err
	}
	p1, err := p2.NextTable(page.P2Index())
	if err != nil {
		return err
	}

	pte := p1.Entry(page.P1Index())
	if !pte.HasFlags(FlagPresent) {
		return ErrNotMapped
	}

	pte.ClearFlags(FlagPresent)
	flushTLBEntryFn(page.Address())
	return nil
}

// pageOffset returns the offset within the page specified by a virtual
// address.
func pageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (mm.PageSize - 1)
}
