package mm

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)). The pointer
	// size for this architecture is defined as (1 << PointerShift).
	PointerShift = uintptr(3)

	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right
	// by PageShift) and vice-versa.
	PageShift = uintptr(12)

	// PageSize defines the system's page size in bytes.
	PageSize = uintptr(1 << PageShift)

	// The MMU only implements 48 virtual address bits; the unused high
	// bits of a virtual address must be a sign-extension of bit 47.
	// Canonical addresses therefore live below canonicalLowerHalfEnd or
	// at/above canonicalUpperHalfStart.
	canonicalLowerHalfEnd   = uintptr(0x0000800000000000)
	canonicalUpperHalfStart = uintptr(0xffff800000000000)
)
