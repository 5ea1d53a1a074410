// Package boot sequences kernel bring-up: memory (frame allocator,
// kernel page directory, paging on) -> disk and FAT16 mount -> ttys ->
// scheduler, then creates one shell task per virtual terminal. It does
// not build descriptor tables, program the PIC/PIT or install a log
// sink. Grounded on
// original_source/source/kernel/init/init.c's kernel_init/init_main
// two-phase bring-up (early, pre-paging vs. full, post-scheduler).
package boot

import (
	"ia32os/internal/ata"
	"ia32os/internal/bootcfg"
	"ia32os/internal/cpu"
	"ia32os/internal/fat16"
	"ia32os/internal/irq"
	"ia32os/internal/kerrno"
	"ia32os/internal/klog"
	"ia32os/internal/paging"
	"ia32os/internal/pmm"
	"ia32os/internal/proc"
	"ia32os/internal/task"
	"ia32os/internal/tty"
	"ia32os/internal/vfs"
)

const shellPath = "SHELL.ELF"

// maxSupportedPages bounds the static bitmap scratch buffer pmm needs
// before any heap exists to allocate one dynamically — generous enough
// for 1 GiB of usable RAM at 4 KiB pages.
const maxSupportedPages = 256 * 1024

var pmmScratch [maxSupportedPages / 8]byte

var diskController *ata.Controller

// Run is the Go-side bring-up, called by cmd/kernel's KernelMain (the
// function the external assembly bootstrap calls) once the kernel
// image is loaded and a minimal GDT is live. It never returns.
func Run(info bootcfg.BootInfo) {
	klog.Infof("ia32os booting")

	initMemory(info)
	initFilesystem()
	tty.Init()
	task.Init()
	klog.SetPanicHook(cpu.PanicHalt)

	spawnShells()

	for {
		cpu.Halt()
	}
}

func initMemory(info bootcfg.BootInfo) {
	pmm.Init(info, pmmScratch[:])

	kdir, code := paging.NewKernelDirectory()
	if kerrno.IsErr(code) {
		klog.Assertf("boot: cannot allocate kernel page directory", "boot.go", 1)
		return
	}
	start, size := info.UsableRegion()
	npages := int(size / bootcfg.PageSize)
	if code := paging.Map(kdir, start, start, npages, paging.PermPresent|paging.PermWrite); kerrno.IsErr(code) {
		klog.Assertf("boot: cannot identity-map usable memory", "boot.go", 1)
		return
	}
	videoPages := int(bootcfg.VideoRegionBytes / bootcfg.PageSize)
	if code := paging.Map(kdir, bootcfg.VideoMemPhys, bootcfg.VideoMemPhys, videoPages, paging.PermPresent|paging.PermWrite); kerrno.IsErr(code) {
		klog.Assertf("boot: cannot identity-map video memory", "boot.go", 1)
		return
	}
	paging.SetKernelDirectory(kdir)
	cpu.LoadCR3(kdir.Phys())
	cpu.EnablePaging()
}

func initFilesystem() {
	diskController = ata.New(false)
	if code := diskController.Identify(); kerrno.IsErr(code) {
		klog.Warnf("boot: primary ATA drive did not respond")
		return
	}
	parts, code := ata.DetectPartitions(diskController)
	if kerrno.IsErr(code) {
		klog.Warnf("boot: no valid MBR on primary drive")
		return
	}
	for _, p := range parts {
		if !p.IsFAT16() {
			continue
		}
		fs, code := fat16.Mount(diskController, p.StartLBA)
		if kerrno.IsErr(code) {
			continue
		}
		vfs.Mount("/", fs)
		break
	}
	irq.SetDiskController(diskController)
	diskController.SchedulerReady()
}

func digit(n int) string { return string(rune('0' + n)) }

// spawnShells creates one shell process per virtual terminal, each with
// its tty opened on fd 0/1/2. Each shell is a fresh task built with
// task.Spawn and loaded with proc.Execve; no fork is involved, and the
// shells have no parent task.
func spawnShells() {
	for i := 0; i < tty.Count; i++ {
		spawnShellFor(i)
	}
}

func spawnShellFor(minor int) {
	stackPhys, code := pmm.Default().Alloc(proc.KernelStackPages)
	if kerrno.IsErr(code) {
		klog.Errorf("boot: cannot allocate shell kernel stack", int32(minor))
		return
	}
	pd, code := paging.CreateUVM()
	if kerrno.IsErr(code) {
		pmm.Default().Free(stackPhys, proc.KernelStackPages)
		klog.Errorf("boot: cannot allocate shell address space", int32(minor))
		return
	}
	t, code := task.Spawn("shell"+digit(minor), 0, 0, 0, pd, stackPhys)
	if kerrno.IsErr(code) {
		paging.DestroyUVM(pd)
		pmm.Default().Free(stackPhys, proc.KernelStackPages)
		klog.Errorf("boot: cannot allocate shell task", int32(minor))
		return
	}

	path := "tty" + digit(minor)
	for fd := 0; fd < 3; fd++ {
		of, code := vfs.Open(path, vfs.OReadOnly)
		if kerrno.IsErr(code) {
			klog.Errorf("boot: cannot open tty for shell", int32(minor))
			return
		}
		t.Files[fd] = of
	}

	if code := proc.Execve(t, shellPath, []string{shellPath}); kerrno.IsErr(code) {
		klog.Errorf("boot: shell image failed to load", int32(minor))
		return
	}
	task.SetReady(t)
}
