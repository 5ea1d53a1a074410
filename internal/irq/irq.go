// Package irq is the interrupt/syscall gateway (spec.md §4.5/§4.6):
// IDT-vector dispatch for the timer, keyboard, and disk IRQs, the #PF
// exception vector, and the int 0x80 syscall dispatch table keyed by
// the numeric ids spec.md assigns. Grounded on
// original_source/source/kernel/include/core/syscall.h (syscall_frame_t)
// and init.c's IDT/PIC bring-up. The actual IDT-entry/PIC-remap
// assembly and the register-save trampoline that builds a Frame are
// the external collaborator spec.md §1 calls "hand-written x86
// assembly" — this package is only ever entered already inside that
// trampoline's call into Go.
package irq

import (
	"ia32os/internal/ata"
	"ia32os/internal/proc"
	"ia32os/internal/task"
	"ia32os/internal/tty"
)

// Syscall numbers, spec.md §4.5/§6.
const (
	SysSleep  = 0
	SysGetpid = 1
	SysFork   = 2
	SysExecve = 3
	SysYield  = 4
	SysExit   = 5
	SysWait   = 6

	SysOpen   = 50
	SysRead   = 51
	SysWrite  = 52
	SysClose  = 53
	SysLseek  = 54
	SysIsATTY = 55
	SysSbrk   = 56
	SysFstat  = 57
	SysDup    = 58

	SysOpendir  = 60
	SysReaddir  = 61
	SysClosedir = 62

	SysPrintMsg = 100
)

// Frame is the Go-facing view of one syscall: the requested number,
// up to four word-sized arguments (matching the source's EBX/ECX/EDX/
// ESI convention), and the slot the dispatcher writes a return value
// into. Built by the external assembly trampoline from the raw
// pushad frame; never constructed here.
type Frame struct {
	Num                    uint32
	Arg0, Arg1, Arg2, Arg3 uint32
	Ret                    uint32
}

var diskController *ata.Controller

// SetDiskController wires the ATA controller whose IRQ14 completions
// this gateway forwards. Called once by internal/boot.
func SetDiskController(c *ata.Controller) { diskController = c }

// HandleIRQ0 is the timer-tick entry point (PIC-remapped IRQ0).
func HandleIRQ0() { task.Tick() }

// HandleIRQ1 is the keyboard entry point (PIC-remapped IRQ1).
func HandleIRQ1() { tty.HandleIRQ1() }

// HandleIRQ14 is the primary-ATA-channel entry point (PIC-remapped IRQ14).
func HandleIRQ14() {
	if diskController != nil {
		diskController.NotifyIRQ14()
	}
}

// HandlePageFault is the #PF (vector 14) exception entry point. ia32os
// has no demand paging or copy-on-write (spec.md's Open Question
// decision, DESIGN.md), so a page fault past whatever execve/sbrk
// already mapped can only be a genuine user bug: the faulting task is
// killed outright rather than resolved.
func HandlePageFault() {
	proc.Exit(task.Current(), -1)
}

// HandleSyscall dispatches one int 0x80 trap to the matching
// operation, running with the faulting task's page directory still
// loaded (no CR3 switch happens on a software trap), so user pointers
// in Frame's arguments are plain, directly dereferenceable addresses.
func HandleSyscall(f *Frame) {
	t := task.Current()
	f.Ret = dispatch(t, f)
}
