// Package kfmt provides a formatted output implementation that can be
// safely used before the Go runtime is fully initialized as it does
// not allocate any memory.
package kfmt

import "io"

var (
	// outputSink is the io.Writer where Printf sends its output. Until
	// a sink is registered, output is dropped.
	outputSink io.Writer

	// singleByte is a shared one-byte buffer used to emit format
	// literals without allocating.
	singleByte = []byte{0}

	// numFmtBuf holds digits while formatting numeric arguments.
	numFmtBuf = []byte("0123456789012345678901234567890123456789")

	trueValue     = []byte("true")
	falseValue    = []byte("false")
	errMissingArg = []byte("(MISSING)")
	errWrongType  = []byte("%!(WRONGTYPE)")
	errNoVerb     = []byte("%!(NOVERB)")
)

// SetOutputSink registers w as the target for Printf output.
func SetOutputSink(w io.Writer) {
	outputSink = w
}

// Printf formats its arguments and writes them to the registered
// output sink. It supports a subset of the fmt.Printf verbs:
//
//	%s  the uninterpreted bytes of a string or byte slice
//	%d  integers in base 10
//	%x  integers in base 16 with lower-case letters for a-f
//	%t  "true" or "false"
//
// An optional decimal width may precede the verb. String and base-10
// values shorter than the width are left-padded with spaces; base-16
// values are left-padded with zeroes.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes the formatted output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		nextArg int
		padLen  int
		index   int
		fmtLen  = len(format)
	)

	for index < fmtLen {
		ch := format[index]
		if ch != '%' {
			singleByte[0] = ch
			doWrite(w, singleByte)
			index++
			continue
		}

		// Scan the optional pad width that follows '%'
		padLen = 0
		index++
		for ; index < fmtLen && format[index] >= '0' && format[index] <= '9'; index++ {
			padLen = padLen*10 + int(format[index]-'0')
		}

		if index == fmtLen {
			doWrite(w, errNoVerb)
			return
		}

		verb := format[index]
		index++

		if verb == '%' {
			singleByte[0] = '%'
			doWrite(w, singleByte)
			continue
		}

		if nextArg >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}
		arg := args[nextArg]
		nextArg++

		switch verb {
		case 's':
			fmtString(w, arg, padLen)
		case 'd':
			fmtInt(w, arg, 10, padLen)
		case 'x':
			fmtInt(w, arg, 16, padLen)
		case 't':
			fmtBool(w, arg)
		default:
			doWrite(w, errNoVerb)
		}
	}
}

// fmtBool writes the string representation of a boolean argument to w.
func fmtBool(w io.Writer, arg interface{}) {
	switch v := arg.(type) {
	case bool:
		if v {
			doWrite(w, trueValue)
		} else {
			doWrite(w, falseValue)
		}
	default:
		doWrite(w, errWrongType)
	}
}

// fmtString writes a string argument to w left-padding it with spaces
// up to padLen.
func fmtString(w io.Writer, arg interface{}, padLen int) {
	switch v := arg.(type) {
	case string:
		padWrite(w, len(v), padLen, ' ')
		for i := 0; i < len(v); i++ {
			singleByte[0] = v[i]
			doWrite(w, singleByte)
		}
	case []byte:
		padWrite(w, len(v), padLen, ' ')
		doWrite(w, v)
	default:
		doWrite(w, errWrongType)
	}
}

// fmtInt writes an integer argument to w in the requested base. Base-10
// values are left-padded with spaces and base-16 values with zeroes.
func fmtInt(w io.Writer, arg interface{}, base, padLen int) {
	var (
		uval     uint64
		negative bool
	)

	switch v := arg.(type) {
	case uint8:
		uval = uint64(v)
	case uint16:
		uval = uint64(v)
	case uint32:
		uval = uint64(v)
	case uint64:
		uval = v
	case uint:
		uval = uint64(v)
	case uintptr:
		uval = uint64(v)
	case int8:
		negative = v < 0
		if negative {
			uval = uint64(-int64(v))
		} else {
			uval = uint64(v)
		}
	case int16:
		negative = v < 0
		if negative {
			uval = uint64(-int64(v))
		} else {
			uval = uint64(v)
		}
	case int32:
		negative = v < 0
		if negative {
			uval = uint64(-int64(v))
		} else {
			uval = uint64(v)
		}
	case int64:
		negative = v < 0
		if negative {
			uval = uint64(-v)
		} else {
			uval = uint64(v)
		}
	case int:
		negative = v < 0
		if negative {
			uval = uint64(-int64(v))
		} else {
			uval = uint64(v)
		}
	default:
		doWrite(w, errWrongType)
		return
	}

	// Format the digits into the tail of numFmtBuf
	end := len(numFmtBuf)
	at := end
	for {
		at--
		digit := byte(uval % uint64(base))
		if digit < 10 {
			numFmtBuf[at] = '0' + digit
		} else {
			numFmtBuf[at] = 'a' + digit - 10
		}
		uval /= uint64(base)
		if uval == 0 {
			break
		}
	}
	if negative {
		at--
		numFmtBuf[at] = '-'
	}

	padChar := byte(' ')
	if base == 16 {
		padChar = '0'
	}
	padWrite(w, end-at, padLen, padChar)
	doWrite(w, numFmtBuf[at:end])
}

// padWrite emits padLen-valLen copies of padChar.
func padWrite(w io.Writer, valLen, padLen int, padChar byte) {
	for ; valLen < padLen; valLen++ {
		singleByte[0] = padChar
		doWrite(w, singleByte)
	}
}

func doWrite(w io.Writer, b []byte) {
	if w != nil {
		w.Write(b)
	}
}
