package mm

import "burrowos/kernel"

var errNotCanonical = &kernel.Error{Module: "mm", Message: "virtual address is not canonical"}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address where this Page begins.
func (p Page) Address() uintptr {
	return uintptr(p << PageShift)
}

// P4Index returns the 9-bit index that selects this page's slot in a
// level-4 table.
func (p Page) P4Index() uintptr {
	return (uintptr(p) >> 27) & 0x1ff
}

// P3Index returns the 9-bit index that selects this page's slot in a
// level-3 table.
func (p Page) P3Index() uintptr {
	return (uintptr(p) >> 18) & 0x1ff
}

// P2Index returns the 9-bit index that selects this page's slot in a
// level-2 table.
func (p Page) P2Index() uintptr {
	return (uintptr(p) >> 9) & 0x1ff
}

// P1Index returns the 9-bit index that selects this page's slot in a
// level-1 table.
func (p Page) P1Index() uintptr {
	return uintptr(p) & 0x1ff
}

// PageFromAddress returns the Page that contains the given virtual
// address. Addresses that are not page-aligned are rounded down to the
// page that contains them.
//
// Passing a non-canonical address is a programmer error; it causes a
// panic with errNotCanonical rather than returning an error as there
// is no sane way to recover from it.
func PageFromAddress(virtAddr uintptr) Page {
	if virtAddr >= canonicalLowerHalfEnd && virtAddr < canonicalUpperHalfStart {
		panic(errNotCanonical)
	}
	return Page((virtAddr & ^(PageSize - 1)) >> PageShift)
}
