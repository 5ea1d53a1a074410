// Package klog is the kernel's own log sink, grounded on
// iansmith-mazarin's uartPutc/uartPuts family (go/mazarin/kernel.go) and
// original_source/source/kernel/tools/log.c. It deliberately does not
// use fmt: fmt's formatting verbs route through reflect, which walks
// interface type descriptors built by the Go runtime's type system —
// machinery that is not guaranteed to be safe to invoke on the earliest
// boot path (before memInit/task bring-up), the same reason the teacher
// hand-rolls its UART writers instead of using fmt.Print. putc and Puts
// are go:nosplit, and everything here is allocation-free: output goes
// out one byte at a time, and the integer formatters write into a
// small stack buffer.
package klog

// Sink is anything klog can write bytes to, such as a serial port or
// a tty.
type Sink interface {
	WriteByte(b byte)
}

var sink Sink

// SetSink installs the active log sink. Until a sink is installed all
// output is discarded; internal/boot does not install one.
func SetSink(s Sink) { sink = s }

//go:nosplit
func putc(b byte) {
	if sink != nil {
		sink.WriteByte(b)
	}
}

// Puts writes a raw string with no trailing newline.
//
//go:nosplit
func Puts(s string) {
	for i := 0; i < len(s); i++ {
		putc(s[i])
	}
}

// Println writes s followed by CRLF, matching the teacher's
// line-at-a-time UART convention.
func Println(s string) {
	Puts(s)
	putc('\r')
	putc('\n')
}

var hexDigits = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// PutHex32 writes v as an 8-digit lowercase hex literal with a 0x prefix.
func PutHex32(v uint32) {
	Puts("0x")
	for shift := 28; shift >= 0; shift -= 4 {
		putc(hexDigits[(v>>uint(shift))&0xF])
	}
}

// PutInt writes v in decimal, handling negative values and zero.
func PutInt(v int32) {
	if v == 0 {
		putc('0')
		return
	}
	neg := v < 0
	if neg {
		putc('-')
		v = -v
	}
	var buf [10]byte
	n := 0
	for v > 0 {
		buf[n] = byte('0' + v%10)
		v /= 10
		n++
	}
	for n > 0 {
		n--
		putc(buf[n])
	}
}

// Infof / Warnf / Errorf are the three severities: an informational
// boot-sequence log line, a warning, and an error. Infof and Warnf take
// a fixed preformatted message; Errorf adds a single context value
// (pid, fd, minor) since the call sites that need logging before a heap
// exists cannot build a variadic argument slice.
func Infof(msg string) {
	Puts("[info] ")
	Println(msg)
}

func Warnf(msg string) {
	Puts("[warn] ")
	Println(msg)
}

func Errorf(msg string, ctx int32) {
	Puts("[error] ")
	Puts(msg)
	Puts(": ")
	PutInt(ctx)
	putc('\r')
	putc('\n')
}

// Assertf logs msg and halts the kernel via cpu.PanicHalt. Reserved for
// the "Contract breach" class of error in spec.md §7 — an invariant
// violation, not a recoverable condition. Kept decoupled from
// internal/cpu to avoid an import cycle (cpu has no reason to import
// klog); internal/boot wires panicHook to cpu.PanicHalt at init.
var panicHook func()

func SetPanicHook(h func()) { panicHook = h }

func Assertf(msg string, file string, line int32) {
	Puts("[panic] ")
	Puts(msg)
	Puts(" at ")
	Puts(file)
	putc(':')
	PutInt(line)
	putc('\r')
	putc('\n')
	if panicHook != nil {
		panicHook()
	}
}
