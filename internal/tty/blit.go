package tty

import (
	"unsafe"

	"ia32os/internal/bootcfg"
	"ia32os/internal/console"
)

// Blit copies c's grid to the VGA text-mode video memory collaborator
// (spec.md §1 External collaborators: "video memory at physical
// 0xB8000"). Never called from a hosted test — the pure Console logic
// in package console is exercised there instead, since dereferencing
// VideoMemPhys is only valid with the kernel's identity map installed.
func Blit(c *console.Console) {
	mem := unsafe.Slice((*uint16)(unsafe.Pointer(bootcfg.VideoMemPhys)), console.Rows*console.Cols)
	for r := 0; r < console.Rows; r++ {
		for col := 0; col < console.Cols; col++ {
			cell := c.Grid[r][col]
			mem[r*console.Cols+col] = uint16(cell.Ch) | uint16(cell.Attr)<<8
		}
	}
}
