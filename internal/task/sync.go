package task

import "ia32os/internal/irqlock"

// Mutex and Semaphore are the blocking primitives spec.md §3/§9 group
// with the intrusive list under "Intrusive list & mutex/semaphore".
// Unlike irqlock.IRQGuard (which never blocks and backs the
// allocator/queue critical sections), these park the calling task on a
// wait list and dispatch away on contention — used by the ATA
// controller's mutex and IRQ semaphore and by each tty's input
// semaphore.
// Grounded on original_source/source/kernel/ipc/mutex.c and sem.c.

// Mutex is a non-recursive blocking lock with a owner/wait-list pair.
type Mutex struct {
	locked bool
	owner  *Task
	waiters WaitList
}

// Lock blocks the current task until the mutex is free, then takes it.
func (m *Mutex) Lock() {
	for {
		g := irqlock.Enter()
		if !m.locked {
			m.locked = true
			m.owner = Current()
			g.Exit()
			return
		}
		g.Exit()
		BlockOn(&m.waiters)
	}
}

// Unlock releases the mutex and wakes one waiter, if any.
func (m *Mutex) Unlock() {
	g := irqlock.Enter()
	m.locked = false
	m.owner = nil
	g.Exit()
	WakeOne(&m.waiters)
}

// Semaphore is a counting semaphore: Down blocks while count == 0, Up
// increments and wakes one waiter. Used for the tty input FIFO's
// "bytes available" count (spec.md §4.9) and for the disk driver's
// per-sector IRQ wait (spec.md §4.8).
type Semaphore struct {
	count   int32
	waiters WaitList
}

// NewSemaphore returns a semaphore initialized to count.
func NewSemaphore(count int32) *Semaphore {
	return &Semaphore{count: count}
}

// Down blocks while the count is zero, then decrements it.
func (s *Semaphore) Down() {
	for {
		g := irqlock.Enter()
		if s.count > 0 {
			s.count--
			g.Exit()
			return
		}
		g.Exit()
		BlockOn(&s.waiters)
	}
}

// TryDown decrements and returns true if the count was nonzero,
// without blocking. Used by tty.Read to take further queued bytes
// after its first blocking Down.
func (s *Semaphore) TryDown() bool {
	g := irqlock.Enter()
	defer g.Exit()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Up increments the count and wakes one waiter.
func (s *Semaphore) Up() {
	g := irqlock.Enter()
	s.count++
	g.Exit()
	WakeOne(&s.waiters)
}

// Count returns the current value (for tests and diagnostics only).
func (s *Semaphore) Count() int32 {
	g := irqlock.Enter()
	defer g.Exit()
	return s.count
}
