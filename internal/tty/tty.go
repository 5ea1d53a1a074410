// Package tty is the virtual-terminal multiplexer (spec.md §4.9):
// eight independently-buffered terminals, each with an input ring fed
// by the keyboard ISR and an ANSI-interpreting console renderer, with
// F1-F8 switching which one is blitted to the video memory collaborator.
// Grounded on original_source/source/kernel/dev/tty.c and console.c.
package tty

import (
	"ia32os/internal/console"
	"ia32os/internal/device"
	"ia32os/internal/irqlock"
	"ia32os/internal/kerrno"
	"ia32os/internal/task"
)

const (
	Count    = device.MaxMinorsPerMajor
	ringSize = 256
)

// ring is a fixed-capacity byte FIFO. Pushes happen from IRQ context
// (the keyboard ISR); pops happen from a blocked reader task. Callers
// serialize access themselves via irqlock, matching spec.md §5's
// "Shared-resource policy" for interrupt-fed buffers.
type ring struct {
	buf        [ringSize]byte
	head, tail int
	count      int
}

func (r *ring) push(b byte) bool {
	if r.count == ringSize {
		return false
	}
	r.buf[r.tail] = b
	r.tail = (r.tail + 1) % ringSize
	r.count++
	return true
}

func (r *ring) pop() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	b := r.buf[r.head]
	r.head = (r.head + 1) % ringSize
	r.count--
	return b, true
}

// TTY is one virtual terminal: an input ring with a counting semaphore
// tracking bytes available (spec.md §4.9 "reads block on an empty
// input queue"), plus its own Console for rendering writes.
type TTY struct {
	minor   int
	in      ring
	inAvail *task.Semaphore
	console *console.Console
}

var ttys [Count]*TTY

// activeMinor is the tty currently blitted to the video memory
// collaborator; changed only by F1-F8 (keyboard.go).
var activeMinor int

// Init constructs all Count ttys and registers each with the device
// registry under (MajorTTY, minor).
func Init() {
	for i := 0; i < Count; i++ {
		t := &TTY{minor: i, inAvail: task.NewSemaphore(0), console: console.NewConsole()}
		ttys[i] = t
		device.Register(device.MajorTTY, i, &device.VTable{
			Open:    func(minor int) kerrno.Code { return kerrno.OK },
			Read:    func(minor int, buf []byte) (int, kerrno.Code) { return ttys[minor].Read(buf) },
			Write:   func(minor int, buf []byte) (int, kerrno.Code) { return ttys[minor].Write(buf) },
			Close:   func(minor int) kerrno.Code { return kerrno.OK },
			Control: func(minor int, cmd int, arg int) kerrno.Code { return kerrno.ErrInval },
		})
	}
	activeMinor = 0
}

// Get returns the tty for minor, or nil if out of range.
func Get(minor int) *TTY {
	if minor < 0 || minor >= Count {
		return nil
	}
	return ttys[minor]
}

// ActiveMinor returns the tty currently visible on the display.
func ActiveMinor() int { return activeMinor }

// SetActive switches the visible tty (called from the keyboard ISR on
// F1-F8, spec.md §4.9).
func SetActive(minor int) {
	if minor < 0 || minor >= Count {
		return
	}
	activeMinor = minor
}

// PushInput is called by the keyboard ISR to deliver one decoded byte
// to this tty's input queue; dropped if the ring is full (spec.md §7:
// "an input overrun drops the byte rather than blocking the ISR").
func (t *TTY) PushInput(b byte) {
	if t.in.push(b) {
		t.inAvail.Up()
	}
}

// Read blocks until at least one byte is available, then copies as
// many queued bytes as fit in buf without blocking further.
func (t *TTY) Read(buf []byte) (int, kerrno.Code) {
	if len(buf) == 0 {
		return 0, kerrno.OK
	}
	t.inAvail.Down()
	n := 0
	g := irqlock.Enter()
	b, ok := t.in.pop()
	g.Exit()
	for ok && n < len(buf) {
		buf[n] = b
		n++
		if n >= len(buf) {
			break
		}
		if !t.inAvail.TryDown() {
			break
		}
		g = irqlock.Enter()
		b, ok = t.in.pop()
		g.Exit()
	}
	return n, kerrno.OK
}

// Write feeds buf through the ANSI interpreter and, if this tty is
// currently active, blits the result to video memory.
func (t *TTY) Write(buf []byte) (int, kerrno.Code) {
	for _, b := range buf {
		t.console.Feed(b)
	}
	if t.minor == activeMinor {
		Blit(t.console)
	}
	return len(buf), kerrno.OK
}
