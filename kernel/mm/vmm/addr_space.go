package vmm

import (
	"burrowos/kernel"
	"burrowos/kernel/cpu"
	"burrowos/kernel/mm"
)

var (
	// activePDTFn is used by tests to override calls to cpu.ActivePDT
	// which will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT

	// switchPDTFn is used by tests to override calls to cpu.SwitchPDT
	// which will cause a fault if called in user-mode.
	switchPDTFn = cpu.SwitchPDT

	// flushTLBFn is used by tests to override calls to cpu.FlushTLB
	// which will cause a fault if called in user-mode.
	flushTLBFn = cpu.FlushTLB
)

// ActivePageTable represents the table hierarchy whose level-4 frame
// is currently loaded in CR3. Exactly one such hierarchy exists at any
// time on this single-core design; the right to mutate it follows from
// holding the handle, not from a lock.
type ActivePageTable struct {
	mapper Mapper
}

// NewActivePageTable returns a handle to the currently loaded table
// hierarchy. The caller must guarantee that the running hierarchy has
// the recursive mapping installed in its level-4 table; every Mapper
// operation resolves through it.
func NewActivePageTable() *ActivePageTable {
	return &ActivePageTable{mapper: newMapper()}
}

// Translate forwards to Mapper.Translate.
func (a *ActivePageTable) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	return a.mapper.Translate(virtAddr)
}

// MapTo forwards to Mapper.MapTo.
func (a *ActivePageTable) MapTo(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	return a.mapper.MapTo(page, frame, flags, alloc)
}

// IdentityMap forwards to Mapper.IdentityMap.
func (a *ActivePageTable) IdentityMap(frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	return a.mapper.IdentityMap(frame, flags, alloc)
}

// Unmap forwards to Mapper.Unmap.
func (a *ActivePageTable) Unmap(page mm.Page) *kernel.Error {
	return a.mapper.Unmap(page)
}

// With redirects the recursive slot of the active level-4 table to
// inactive's frame, runs fn, and restores the slot. While fn runs,
// every operation on the supplied Mapper walks inactive's hierarchy,
// so an address space can be populated without ever loading it into
// CR3.
//
// The full TLB is flushed right after the redirect and right after the
// restore: any translation cached before either write would otherwise
// let the walk read stale table contents.
//
// With must not be re-entered from fn. A nested call would overwrite
// the recursive slot a second time and corrupt the address space; the
// caller is responsible for guaranteeing exclusivity.
func (a *ActivePageTable) With(inactive *InactivePageTable, tempPage *TemporaryPage, fn func(*Mapper)) *kernel.Error {
	backup := mm.FrameFromAddress(activePDTFn())

	// Keep a view of the live level-4 table through the temporary page:
	// once the recursive slot is redirected it is the only way left to
	// reach it for the restore.
	backupView, err := tempPage.MapTableFrame(backup, a)
	if err != nil {
		return err
	}

	a.mapper.P4().Entry(recursiveIndex).Set(inactive.p4Frame, FlagPresent|FlagRW)
	flushTLBFn()

	fn(&a.mapper)

	backupView.Entry(recursiveIndex).Set(backup, FlagPresent|FlagRW)
	flushTLBFn()

	return tempPage.Unmap(a)
}

// Switch loads inactive's frame into CR3, making it the active
// hierarchy, and returns the previously active hierarchy as an
// InactivePageTable. The handle a must not be used for further
// operations unless the new hierarchy also carries a recursive
// mapping.
func (a *ActivePageTable) Switch(inactive *InactivePageTable) *InactivePageTable {
	old := &InactivePageTable{p4Frame: mm.FrameFromAddress(activePDTFn())}
	switchPDTFn(inactive.p4Frame.Address())
	return old
}

// InactivePageTable is a staged table hierarchy that is not loaded in
// CR3. Its frame always contains a valid, zeroed level-4 table with
// the recursive slot pointing at itself.
type InactivePageTable struct {
	p4Frame mm.Frame
}

// Frame returns the physical frame holding the hierarchy's level-4
// table.
func (t *InactivePageTable) Frame() mm.Frame {
	return t.p4Frame
}

// NewInactivePageTable stages frame as a fresh table hierarchy: the
// frame is mapped at the temporary page, cleared, given its own
// recursive slot and unmapped again. The returned table is valid and
// self-consistent before it is ever loaded.
func NewInactivePageTable(frame mm.Frame, active *ActivePageTable, tempPage *TemporaryPage) (*InactivePageTable, *kernel.Error) {
	view, err := tempPage.MapTableFrame(frame, active)
	if err != nil {
		return nil, err
	}

	view.Zero()
	view.Entry(recursiveIndex).Set(frame, FlagPresent|FlagRW)

	if err = tempPage.Unmap(active); err != nil {
		return nil, err
	}

	return &InactivePageTable{p4Frame: frame}, nil
}
