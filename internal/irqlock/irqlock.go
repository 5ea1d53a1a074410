// Package irqlock brackets scheduler/allocator critical sections with
// CLI/STI, isolated into its own package (rather than living inside
// internal/list) so that internal/list itself stays pure Go and
// hosted-testable: anything that references internal/cpu's
// go:linkname declarations can only link against the real assembly
// trampolines, the same constraint the teacher's own kernel code lives
// under.
package irqlock

import "ia32os/internal/cpu"

// IRQGuard brackets a critical section with interrupt disable/restore,
// the "mutex" the frame allocator and the scheduler's
// queues actually use per spec.md §5 ("every mutable multi-task
// structure carries a mutex ... Interrupt-level data structures are
// protected by short interrupt-disabled regions rather than mutexes,
// because interrupts must be able to enqueue without taking a lock").
// It never blocks and is safe to take recursively on a single CPU only
// in the sense that nesting saves/restores correctly — re-entrant
// acquisition from the same context is still the caller's
// responsibility to avoid, same as cli/sti pairing in the source.
type IRQGuard struct {
	saved uint32
}

// Enter disables interrupts and returns a guard whose Exit restores the
// prior state.
func Enter() IRQGuard {
	return IRQGuard{saved: cpu.DisableIRQ()}
}

// Exit restores interrupts to whatever they were before Enter.
func (g IRQGuard) Exit() {
	cpu.RestoreIRQ(g.saved)
}
