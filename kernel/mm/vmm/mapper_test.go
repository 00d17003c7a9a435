package vmm

import (
	"testing"

	"burrowos/kernel/mm"
)

func TestMapperMapToAndTranslate(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var (
		m        = newMapper()
		page     = mm.PageFromAddress(0x8080604400)
		frame    = mm.Frame(0xbadf00d)
		flushed  []uintptr
		origFn   = flushTLBEntryFn
		expAddrs = []uintptr{0x8080604400, 0x8080604ff3}
	)
	flushTLBEntryFn = func(virtAddr uintptr) { flushed = append(flushed, virtAddr) }
	defer func() { flushTLBEntryFn = origFn }()

	if err := m.MapTo(page, frame, FlagRW, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both addresses fall inside the mapped page; the offset must be
	// carried over to the physical address.
	for specIndex, virtAddr := range expAddrs {
		got, err := m.Translate(virtAddr)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
		if exp := frame.Address() + pageOffset(virtAddr); got != exp {
			t.Errorf("[spec %d] expected 0x%x to translate to 0x%x; got 0x%x", specIndex, virtAddr, exp, got)
		}
	}

	if len(flushed) != 1 || flushed[0] != page.Address() {
		t.Fatalf("expected exactly one TLB entry flush for 0x%x; got %v", page.Address(), flushed)
	}
}

func TestMapperTranslateNotMapped(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var m = newMapper()

	specs := []struct {
		descr   string
		prepare func()
		addr    uintptr
	}{
		{
			"missing level-3 table",
			func() {},
			0x1000,
		},
		{
			"missing final mapping",
			func() {
				// Build the intermediate tables but leave the level-1
				// entry unmapped.
				page := mm.PageFromAddress(0x2000)
				p3, _ := m.P4().NextTableCreate(page.P4Index(), p)
				p2, _ := p3.NextTableCreate(page.P3Index(), p)
				if _, err := p2.NextTableCreate(page.P2Index(), p); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
			0x2000,
		},
	}

	for specIndex, spec := range specs {
		spec.prepare()
		if _, err := m.Translate(spec.addr); err != ErrNotMapped {
			t.Errorf("[spec %d] %s: expected to get ErrNotMapped; got %v", specIndex, spec.descr, err)
		}
	}
}

func TestMapperIdentityMap(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var (
		m     = newMapper()
		frame = mm.Frame(0x1234)
	)

	if err := m.IdentityMap(frame, FlagRW, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Translate(frame.Address())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != frame.Address() {
		t.Fatalf("expected identity-mapped address 0x%x to translate to itself; got 0x%x", frame.Address(), got)
	}
}

func TestMapperMapToAllocError(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var (
		m    = newMapper()
		page = mm.PageFromAddress(0x8080604400)
	)

	// Allow the level-3 and level-2 tables to be created but fail the
	// level-1 allocation.
	p.maxAllocs = p.allocs + 2

	if err := m.MapTo(page, mm.Frame(0xbadf00d), FlagRW, p); err != errTestOutOfFrames {
		t.Fatalf("expected the allocator error to be propagated; got %v", err)
	}

	// The partially built branch must not contain a mapping for the
	// page.
	if _, err := m.Translate(page.Address()); err != ErrNotMapped {
		t.Fatalf("expected to get ErrNotMapped after a failed MapTo; got %v", err)
	}
}

func TestMapperUnmap(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var (
		m     = newMapper()
		page  = mm.PageFromAddress(0x8080604400)
		frame = mm.Frame(0xbadf00d)
	)

	if err := m.Unmap(page); err != ErrNotMapped {
		t.Fatalf("expected unmapping an unmapped page to return ErrNotMapped; got %v", err)
	}

	if err := m.MapTo(page, frame, FlagRW, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Unmap(page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Translate(page.Address()); err != ErrNotMapped {
		t.Fatalf("expected to get ErrNotMapped after Unmap; got %v", err)
	}

	// The frame itself is not handed back to the allocator.
	if len(p.freed) != 0 {
		t.Fatalf("expected Unmap not to release frames; got %v", p.freed)
	}
}
