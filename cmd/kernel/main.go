// Command kernel is ia32os's entry point. It is linked into a
// freestanding ELF image; the external two-stage assembly loader named
// in spec.md §1/§6 sets up a flat GDT, collects the BIOS memory map
// into a bootcfg.BootInfo in low memory, and jumps here with that
// struct's address in EAX. Adapted from the teacher's boot.s/KernelMain
// hand-off (mmio-based Raspberry Pi UART bring-up) to the x86
// BootInfo-pointer convention this kernel uses instead.
package main

import (
	"unsafe"

	"ia32os/internal/boot"
	"ia32os/internal/bootcfg"
)

// KernelMain is called directly by the assembly trampoline with the
// physical address of the BootInfo struct it built; nothing has
// executed yet except that trampoline, so this must not assume a Go
// runtime goroutine scheduler, only the bare ABI.
//
//go:nosplit
//go:noinline
func KernelMain(infoAddr uintptr) {
	info := *(*bootcfg.BootInfo)(unsafe.Pointer(infoAddr))
	boot.Run(info)
	// boot.Run never returns (it ends in an idle halt loop); this is
	// unreachable but keeps the function's control flow well-formed.
	for {
	}
}

// main exists only so the linker keeps KernelMain and its transitive
// call graph reachable; the assembly trampoline calls KernelMain
// directly and never Go's runtime main.
func main() {
	KernelMain(0)
}
