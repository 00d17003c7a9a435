package vmm

import (
	"testing"

	"burrowos/kernel/mm"
)

func TestNewInactivePageTable(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	active := NewActivePageTable()

	tp, err := NewTemporaryPage(mm.Page(0xcafebabe), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame, _ := p.AllocFrame()
	inactive, err := NewInactivePageTable(frame, active, tp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inactive.Frame() != frame {
		t.Fatalf("expected the inactive table to wrap frame %d; got %d", frame, inactive.Frame())
	}

	// The staged table must be fully zeroed except for the recursive
	// slot which points back at its own frame.
	table := p.table(frame)
	for index, pte := range table {
		if uintptr(index) == recursiveIndex {
			continue
		}
		if pte != 0 {
			t.Errorf("expected slot %d of the staged table to be zeroed; got 0x%x", index, uintptr(pte))
		}
	}
	if pte := table[recursiveIndex]; !pte.HasFlags(FlagPresent|FlagRW) || pte.Frame() != frame {
		t.Fatalf("expected the recursive slot to point at frame %d with the present and RW flags; got 0x%x", frame, uintptr(table[recursiveIndex]))
	}

	// The temporary page must not be left mapped behind.
	if _, err = active.Translate(mm.Page(0xcafebabe).Address()); err != ErrNotMapped {
		t.Fatalf("expected the temporary page to be unmapped; got %v", err)
	}
}

func TestActivePageTableWith(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var (
		active   = NewActivePageTable()
		origCR3  = p.cr3
		page     = mm.PageFromAddress(0x8080604400)
		mapFrame = mm.Frame(0xbadf00d)
	)

	tp, err := NewTemporaryPage(mm.Page(0xcafebabe), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p4Frame, _ := p.AllocFrame()
	inactive, err := NewInactivePageTable(p4Frame, active, tp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = active.With(inactive, tp, func(mapper *Mapper) {
		// While the recursive slot is redirected the mapper must build
		// its branch inside the inactive hierarchy.
		if err := mapper.MapTo(page, mapFrame, FlagRW, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, err := mapper.Translate(page.Address()); err != nil || got != mapFrame.Address() {
			t.Fatalf("expected the inactive hierarchy to translate 0x%x to 0x%x; got 0x%x, %v", page.Address(), mapFrame.Address(), got, err)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The recursive slot of the active table must be restored
	// bit-for-bit.
	if pte := p.table(origCR3)[recursiveIndex]; pte.Frame() != origCR3 || !pte.HasFlags(FlagPresent|FlagRW) {
		t.Fatalf("expected the recursive slot of the active table to be restored; got 0x%x", uintptr(pte))
	}

	// The mapping exists in the inactive hierarchy only.
	if _, err = active.Translate(page.Address()); err != ErrNotMapped {
		t.Fatalf("expected the active hierarchy to be unaffected; got %v", err)
	}

	p.cr3 = inactive.Frame()
	if got, err := active.Translate(page.Address()); err != nil || got != mapFrame.Address() {
		t.Fatalf("expected the staged mapping to survive in the inactive hierarchy; got 0x%x, %v", got, err)
	}
	p.cr3 = origCR3

	// The temporary page must be unmapped again.
	if _, err = active.Translate(mm.Page(0xcafebabe).Address()); err != ErrNotMapped {
		t.Fatalf("expected the temporary page to be unmapped; got %v", err)
	}
}

func TestActivePageTableSwitch(t *testing.T) {
	p := newPhysMem(t)
	defer p.install()()

	var (
		active  = NewActivePageTable()
		origCR3 = p.cr3
	)

	tp, err := NewTemporaryPage(mm.Page(0xcafebabe), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p4Frame, _ := p.AllocFrame()
	inactive, err := NewInactivePageTable(p4Frame, active, tp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	old := active.Switch(inactive)

	if p.cr3 != inactive.Frame() {
		t.Fatalf("expected CR3 to hold frame %d after the switch; got %d", inactive.Frame(), p.cr3)
	}
	if old.Frame() != origCR3 {
		t.Fatalf("expected Switch to hand back the previously active frame %d; got %d", origCR3, old.Frame())
	}
}
