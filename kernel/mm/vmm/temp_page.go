package vmm

import (
	"burrowos/kernel"
	"burrowos/kernel/mm"
)

var (
	errFramePoolExhausted = &kernel.Error{Module: "vmm", Message: "temporary page frame pool exhausted"}
	errFramePoolFull      = &kernel.Error{Module: "vmm", Message: "temporary page frame pool is full"}
	errTempPageMapped     = &kernel.Error{Module: "vmm", Message: "temporary page is already mapped"}
)

// TemporaryPage bootstraps access to a physical frame that is not yet
// reachable through the recursive mapping by mapping it at a reserved
// virtual page. Exactly one frame may be mapped at a time: callers map
// a frame immediately before working on it and unmap it immediately
// after, and must not retain any view of the page past the unmap call.
type TemporaryPage struct {
	page mm.Page
	pool framePool
}

// framePool is a tiny fixed stack of spare frames. It implements
// mm.FrameAllocator so that mapping the temporary page can create
// missing intermediate tables without re-entering the caller's
// allocator while the tables it backs are being built. Three frames
// cover the worst case of a completely unpopulated P3/P2/P1 chain.
type framePool struct {
	frames [3]mm.Frame
	count  int
}

// AllocFrame pops a frame from the pool.
func (p *framePool) AllocFrame() (mm.Frame, *kernel.Error) {
	if p.count == 0 {
		return mm.InvalidFrame, errFramePoolExhausted
	}

	p.count--
	return p.frames[p.count], nil
}

// FreeFrame pushes a frame back into the pool.
func (p *framePool) FreeFrame(frame mm.Frame) *kernel.Error {
	if p.count == len(p.frames) {
		return errFramePoolFull
	}

	p.frames[p.count] = frame
	p.count++
	return nil
}

// NewTemporaryPage reserves page as the temporary mapping slot and
// prefills the private frame pool from alloc.
func NewTemporaryPage(page mm.Page, alloc mm.FrameAllocator) (*TemporaryPage, *kernel.Error) {
	tp := &TemporaryPage{page: page}

	for i := range tp.pool.frames {
		frame, err := alloc.AllocFrame()
		if err != nil {
			return nil, err
		}
		tp.pool.frames[i] = frame
	}
	tp.pool.count = len(tp.pool.frames)

	return tp, nil
}

// Map maps frame at the reserved temporary page in the active table
// and returns the page's virtual address. Mapping while a previous
// mapping is still live is a contract violation and panics.
func (tp *TemporaryPage) Map(frame mm.Frame, active *ActivePageTable) (uintptr, *kernel.Error) {
	if _, err := active.Translate(tp.page.Address()); err == nil {
		panic(errTempPageMapped)
	}

	if err := active.MapTo(tp.page, frame, FlagRW, &tp.pool); err != nil {
		return 0, err
	}

	return tp.page.Address(), nil
}

// MapTableFrame maps frame at the reserved temporary page and returns
// a table view of it. The view is tagged Level1 so it cannot be used
// to descend further into whatever the frame contains; it only permits
// entry reads and writes. The view becomes invalid as soon as Unmap is
// called.
func (tp *TemporaryPage) MapTableFrame(frame mm.Frame, active *ActivePageTable) (*Table, *kernel.Error) {
	addr, err := tp.Map(frame, active)
	if err != nil {
		return nil, err
	}

	return &Table{level: Level1, addr: addr}, nil
}

// Unmap removes the temporary mapping.
func (tp *TemporaryPage) Unmap(active *ActivePageTable) *kernel.Error {
	return active.Unmap(tp.page)
}
