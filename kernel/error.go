package kernel

// Error describes an error raised by kernel code. Kernel errors are
// declared as global variables pointing to an Error value; errors.New
// cannot be used as the Go allocator is not available during early
// boot.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
