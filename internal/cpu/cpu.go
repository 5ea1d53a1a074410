// Package cpu is the boundary to everything spec.md §1 calls out as an
// external collaborator: raw I/O-port access, descriptor-table loads,
// interrupt return, and the hardware task switch. None of it has a Go
// body — each function is linked against the assembly trampolines the
// boot loader and second-stage loader hand off to, exactly the way
// iansmith-mazarin/src/go/mazarin/kernel.go links mmio_write/mmio_read
// to lib.s. Every function here is go:nosplit: it may run with
// interrupts disabled, on the boot stack, or before the Go scheduler
// bring-up (task.Init) has run, so none of them may trigger a stack
// growth check.
package cpu

import "unsafe"

// InB/OutB/InW/OutW are the x86 IN/OUT instruction wrappers.
// Used by the ATA PIO driver, the PIC/PIT (initialized by the external
// loader per spec.md §1, only acknowledged here), the keyboard
// controller, and the CRTC cursor/start-address registers.

//go:linkname InB inb
//go:nosplit
func InB(port uint16) uint8

//go:linkname OutB outb
//go:nosplit
func OutB(port uint16, data uint8)

//go:linkname InW inw
//go:nosplit
func InW(port uint16) uint16

//go:linkname OutW outw
//go:nosplit
func OutW(port uint16, data uint16)

// DisableIRQ/RestoreIRQ are CLI and the matching restore of the saved
// interrupt flag. Every queue-touching critical
// section in the scheduler and the tty FIFOs is bracketed by these per
// spec.md §5.
//
//go:linkname DisableIRQ cpu_cli
//go:nosplit
func DisableIRQ() uint32 // returns the prior EFLAGS.IF state for restore

//go:linkname RestoreIRQ cpu_sti_restore
//go:nosplit
func RestoreIRQ(saved uint32)

// LoadGDT/LoadIDT are the LGDT/LIDT instructions. No package in this
// tree builds a GDT or IDT or calls these two functions; the tables in
// use are the ones the loader installed.
//
//go:linkname LoadGDT cpu_lgdt
//go:nosplit
func LoadGDT(base uintptr, limit uint16)

//go:linkname LoadIDT cpu_lidt
//go:nosplit
func LoadIDT(base uintptr, limit uint16)

// LoadCR3/EnablePaging/InvalidatePage are the MMU-facing
// instructions used by internal/paging to install and maintain an
// address space.
//
//go:linkname LoadCR3 cpu_load_cr3
//go:nosplit
func LoadCR3(pageDirPhys uintptr)

//go:linkname EnablePaging cpu_enable_paging
//go:nosplit
func EnablePaging()

//go:linkname InvalidatePage cpu_invlpg
//go:nosplit
func InvalidatePage(vaddr uintptr)

// SwitchTo performs the hardware task switch: save the caller's
// register snapshot into fromCtx, load toCtx (including its CR3), and
// resume at toCtx's saved EIP. Mirrors original_source's
// task_switch_from_to / simple_switch split: building the two Context
// values is in-scope (internal/task), the actual register-swapping
// trampoline is assembly.
//
//go:linkname SwitchTo cpu_switch_to
//go:nosplit
func SwitchTo(fromCtx, toCtx unsafe.Pointer)

// IRETToUser returns from the call-gate/interrupt frame to ring 3,
// resuming at the EIP/CS/EFLAGS/ESP/SS recorded in frame.
//
//go:linkname IRETToUser cpu_iret_to_user
//go:nosplit
func IRETToUser(frame unsafe.Pointer)

// Halt executes HLT in a loop; used by the idle task.
//
//go:linkname Halt cpu_halt
//go:nosplit
func Halt()

// PanicHalt is invoked by kernel contract-breach assertions (spec.md
// §7 "Contract breach"): it must never return.
//
//go:linkname PanicHalt cpu_panic_halt
//go:nosplit
func PanicHalt()
