package tty

import "ia32os/internal/cpu"

const (
	portKBData   = 0x60
	portKBStatus = 0x64

	scancodeLShiftMake = 0x2A
	scancodeRShiftMake = 0x36
	scancodeLShiftBrk  = 0x2A | 0x80
	scancodeRShiftBrk  = 0x36 | 0x80
	scancodeCapsLock   = 0x3A
	scancodeF1         = 0x3B
	scancodeF8         = 0x42
	breakBit           = 0x80
)

// lowerTable maps a set-1 make code to its unshifted ASCII value (0
// for non-printing/unmapped codes), the standard PC/XT layout.
var lowerTable = [128]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: '\b',
	0x0F: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1A: '[', 0x1B: ']', 0x1C: '\n',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l', 0x27: ';',
	0x28: '\'', 0x29: '`',
	0x2B: '\\',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/',
	0x39: ' ',
}

var upperTable = [128]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+', 0x0E: '\b',
	0x0F: '\t',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1A: '{', 0x1B: '}', 0x1C: '\n',
	0x1E: 'A', 0x1F: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L', 0x27: ':',
	0x28: '"', 0x29: '~',
	0x2B: '|',
	0x2C: 'Z', 0x2D: 'X', 0x2E: 'C', 0x2F: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M', 0x33: '<', 0x34: '>', 0x35: '?',
	0x39: ' ',
}

// keyState is the keyboard's shift/capslock latch state, mutated only
// from IRQ1 context.
type keyState struct {
	shiftHeld bool
	capsLock  bool
}

var kstate keyState

// decode turns a set-1 make code into an ASCII byte, applying the
// shift-xor-capslock rule for letters (capslock affects only letters,
// shift affects everything — the standard PC keyboard convention).
func decode(code byte) (byte, bool) {
	upper := kstate.shiftHeld
	if code >= 0x10 && code <= 0x35 {
		isLetterRow := lowerTable[code] >= 'a' && lowerTable[code] <= 'z'
		if isLetterRow && kstate.capsLock {
			upper = !upper
		}
	}
	var ch byte
	if upper {
		ch = upperTable[code]
	} else {
		ch = lowerTable[code]
	}
	return ch, ch != 0
}

// HandleIRQ1 is called by the IRQ gateway on every keyboard interrupt
// (spec.md §4.6). It reads the pending scancode from port 0x60,
// updates shift/capslock/tty-select state, and — for an ordinary
// printable make code — pushes the decoded byte to the currently
// active tty's input queue.
func HandleIRQ1() {
	code := cpu.InB(portKBData)
	switch code {
	case scancodeLShiftMake, scancodeRShiftMake:
		kstate.shiftHeld = true
		return
	case scancodeLShiftBrk, scancodeRShiftBrk:
		kstate.shiftHeld = false
		return
	case scancodeCapsLock:
		kstate.capsLock = !kstate.capsLock
		return
	}
	if code&breakBit != 0 {
		return // key release, nothing else to do
	}
	if code >= scancodeF1 && code <= scancodeF8 {
		SetActive(int(code - scancodeF1))
		return
	}
	ch, ok := decode(code)
	if !ok {
		return
	}
	if t := Get(ActiveMinor()); t != nil {
		t.PushInput(ch)
	}
}
