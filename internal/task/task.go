// Package task is the task table and round-robin scheduler (spec.md
// §3 Task, §4.3 Scheduler), grounded on
// original_source/source/kernel/core/task.c. Tasks live in a fixed
// pool (TASK_NR_MAX in the source) tracked by internal/bitmap instead
// of a linear free-slot scan, and the ready/sleep/wait/all-tasks
// queues are internal/list intrusive lists, per spec.md §9's
// arena-by-index alternative to raw back-pointers.
package task

import (
	"ia32os/internal/bitmap"
	"ia32os/internal/kerrno"
	"ia32os/internal/list"
	"ia32os/internal/paging"
)

// State is a task's scheduling state (spec.md §3, §4.3 state machine).
type State int32

const (
	Created State = iota
	Ready
	Running
	Sleeping
	Wait
	Zombie
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Sleeping:
		return "sleep"
	case Wait:
		return "wait"
	case Zombie:
		return "zombie"
	default:
		return "unknown"
	}
}

const (
	MaxTasks        = 64
	MaxOpenFiles    = 128
	NameLen         = 32
	DefaultTimeSlice = 10 // ticks, original_source TASK_TIME_SLICE_DEFAULT

	// FlagSystem marks a kernel task (idle, first task) that runs with
	// kernel selectors rather than ring-3 user selectors, matching
	// original_source's TASK_FLAG_SYSTEM.
	FlagSystem uint32 = 1 << 0
)

// Context is the hardware register snapshot cpu.SwitchTo saves and
// restores. It stands in for the source's per-task TSS (spec.md §9
// "TSS-based context switch shape"): building it is in-scope kernel
// code, the actual register save/restore is the external assembly
// trampoline behind cpu.SwitchTo.
type Context struct {
	EIP, ESP uintptr
	CR3      uintptr // page-directory physical address
	EAX, EBX, ECX, EDX, ESI, EDI, EBP uint32
	EFlags   uint32
	CS, DS, SS uint16
}

// FDTable is one task's descriptor table. Slots hold `any` so that
// internal/task does not import internal/vfs: *vfs.OpenFile (files and
// ttys) and *vfs.Dir (open directories) are the concrete types stored
// here, type-asserted back by the irq/proc call sites that need the
// full record. Kept as `any` rather than an interface with methods
// because the table's only job here is storage and fork/dup sharing;
// all the behavior lives in vfs.
type FDTable [MaxOpenFiles]any

// Task is one schedulable unit (spec.md §3).
type Task struct {
	Name       [NameLen]byte
	Pid        int32
	ParentPid  int32 // weak reference, resolved via Lookup — never owning
	HeapStart  uintptr
	HeapEnd    uintptr
	State      State
	KernelStack uintptr // physical address of the task's one-frame kernel stack
	Ctx        Context
	ExitStatus int32
	Flag       uint32

	TimeSlice           int32
	RemainingSlice      int32
	RemainingSleepTicks int32

	PD paging.Directory

	Files FDTable

	readyNode list.Node[Task]
	sleepNode list.Node[Task]
	waitNode  list.Node[Task]
	allNode   list.Node[Task]

	slot  int
	inUse bool
}

// SetName copies up to NameLen-1 bytes of name into the task, matching
// the source's fixed-size char name[TASK_NAME_SIZE].
func (t *Task) SetName(name string) {
	n := copy(t.Name[:NameLen-1], name)
	t.Name[n] = 0
}

// NameString returns the task's name as a Go string.
func (t *Task) NameString() string {
	n := 0
	for n < NameLen && t.Name[n] != 0 {
		n++
	}
	return string(t.Name[:n])
}

var (
	pool     [MaxTasks]Task
	poolBits [(MaxTasks + 7) / 8]byte
	poolBM   *bitmap.Bitmap
	nextPid  int32 = 1
)

func init() {
	poolBM = bitmap.New(poolBits[:bitmap.ByteCount(MaxTasks)], MaxTasks, false)
}

// allocTask reserves a free slot from the fixed pool and zeroes it.
func allocTask() (*Task, kerrno.Code) {
	idx := poolBM.AllocRun(false, 1)
	if idx < 0 {
		return nil, kerrno.ErrNoMem
	}
	t := &pool[idx]
	*t = Task{}
	t.slot = int(idx)
	t.inUse = true
	t.readyNode = list.NewNode(t)
	t.sleepNode = list.NewNode(t)
	t.waitNode = list.NewNode(t)
	t.allNode = list.NewNode(t)
	return t, kerrno.OK
}

// freeTask returns a task's slot to the pool. Caller must have already
// unlinked t from every queue and released its address space.
func freeTask(t *Task) {
	poolBM.SetRun(t.slot, 1, false)
	t.inUse = false
}

// allocPid returns a fresh, lifetime-unique pid. Monotonic counters
// never wrap in the budget of a single boot session in scope here
// (spec.md treats pid uniqueness as "unique within lifetime").
func allocPid() int32 {
	p := nextPid
	nextPid++
	return p
}

// Lookup resolves a pid to its task, or nil if no live task has it.
// This is the "weak, by pid/index lookup" parent reference spec.md §3
// calls for instead of an owning pointer.
func Lookup(pid int32) *Task {
	for i := range pool {
		if pool[i].inUse && pool[i].Pid == pid {
			return &pool[i]
		}
	}
	return nil
}

// Each calls fn for every live task in the pool, in slot order.
func Each(fn func(*Task)) {
	for i := range pool {
		if pool[i].inUse {
			fn(&pool[i])
		}
	}
}
