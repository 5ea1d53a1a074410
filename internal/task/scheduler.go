package task

import (
	"unsafe"

	"ia32os/internal/cpu"
	"ia32os/internal/irqlock"
	"ia32os/internal/kerrno"
	"ia32os/internal/klog"
	"ia32os/internal/list"
	"ia32os/internal/paging"
)

// TickHz is the PIT rate the (externally initialized, spec.md §1)
// timer is programmed for; used only to convert sleep(ms) into ticks.
const TickHz = 100 // 10ms/tick

type manager struct {
	current  *Task
	ready    list.List[Task]
	sleeping list.List[Task]
	all      list.List[Task]
	idle     *Task
}

var mgr manager

// WaitList is the type internal/proc and the blocking
// Mutex/Semaphore in sync.go park tasks on.
type WaitList = list.List[Task]

// Init brings up the scheduler: allocates the idle task (spec.md §4.3
// "the idle task is special — never enqueued on ready/sleep/wait,
// always runnable") and makes it current so the very first Dispatch
// has something to switch from.
func Init() {
	idle, code := allocTask()
	if kerrno.IsErr(code) {
		klog.Assertf("task: cannot allocate idle task", "scheduler.go", 1)
	}
	idle.Pid = allocPid()
	idle.SetName("idle")
	idle.Flag = FlagSystem
	idle.State = Running
	idle.TimeSlice = DefaultTimeSlice
	idle.RemainingSlice = DefaultTimeSlice
	mgr.idle = idle
	mgr.current = idle
	mgr.all.PushBack(&idle.allNode)
}

// Current returns the running task.
func Current() *Task { return mgr.current }

// Idle returns the idle task.
func Idle() *Task { return mgr.idle }

// Spawn allocates a task slot and initializes it to CREATED (spec.md
// §3 lifecycle: "allocated from a fixed pool, initialized, made
// READY..."). The caller (internal/proc for fork/exec, internal/boot
// for the first task) still must call SetReady once the task's
// context is fully wired up.
func Spawn(name string, flag uint32, entry, esp uintptr, pd paging.Directory, kernelStack uintptr) (*Task, kerrno.Code) {
	t, code := allocTask()
	if kerrno.IsErr(code) {
		return nil, code
	}
	t.Pid = allocPid()
	t.SetName(name)
	t.Flag = flag
	t.State = Created
	t.PD = pd
	t.KernelStack = kernelStack
	t.TimeSlice = DefaultTimeSlice
	t.RemainingSlice = DefaultTimeSlice
	t.Ctx.EIP = entry
	t.Ctx.ESP = esp
	t.Ctx.CR3 = pd.Phys()
	g := irqlock.Enter()
	mgr.all.PushBack(&t.allNode)
	g.Exit()
	return t, kerrno.OK
}

// SetReady moves t into the READY state and enqueues it at the ready
// list's tail (spec.md §4.3: "ready queue is FIFO").
func SetReady(t *Task) {
	g := irqlock.Enter()
	t.State = Ready
	mgr.ready.PushBack(&t.readyNode)
	g.Exit()
}

// Dispatch picks the head of the ready queue, or the idle task if
// ready is empty, and performs a hardware task switch to it. No-op if
// the pick equals current. Must be called with interrupts already
// disabled by the caller (spec.md §4.3/§5); it re-enables nothing
// itself, mirroring the source's task_dispatch.
func Dispatch() {
	next := mgr.ready.PopFront()
	var nextTask *Task
	if next == nil {
		nextTask = mgr.idle
	} else {
		nextTask = next.Owner()
	}
	if nextTask == mgr.current {
		return
	}
	prev := mgr.current
	nextTask.State = Running
	mgr.current = nextTask
	cpu.SwitchTo(unsafe.Pointer(&prev.Ctx), unsafe.Pointer(&nextTask.Ctx))
}

// Tick is the timer-interrupt handler's scheduling half: decrement the
// running task's remaining slice, scan the sleep queue, and dispatch
// away if the slice expired (spec.md §4.3).
func Tick() {
	g := irqlock.Enter()
	defer g.Exit()

	var expired []*Task
	mgr.sleeping.Each(func(t *Task) {
		t.RemainingSleepTicks--
		if t.RemainingSleepTicks <= 0 {
			expired = append(expired, t)
		}
	})
	for _, t := range expired {
		mgr.sleeping.Remove(&t.sleepNode)
		t.State = Ready
		mgr.ready.PushBack(&t.readyNode)
	}

	if mgr.current == mgr.idle {
		return
	}
	mgr.current.RemainingSlice--
	if mgr.current.RemainingSlice <= 0 {
		mgr.current.RemainingSlice = mgr.current.TimeSlice
		mgr.current.State = Ready
		mgr.ready.PushBack(&mgr.current.readyNode)
		Dispatch()
	}
}

// Yield voluntarily gives up the remainder of the current slice
// (spec.md §4.3 RUNNING --yield--> READY). A no-op if nothing else is
// ready.
func Yield() {
	g := irqlock.Enter()
	if mgr.ready.Empty() {
		g.Exit()
		return
	}
	mgr.current.RemainingSlice = mgr.current.TimeSlice
	mgr.current.State = Ready
	mgr.ready.PushBack(&mgr.current.readyNode)
	Dispatch()
	g.Exit()
}

// Sleep blocks the current task for at least ms milliseconds (spec.md
// §4.3 RUNNING --sleep(ms)--> SLEEP). Always disables interrupts,
// always dispatches away.
func Sleep(ms uint32) {
	ticks := int32(ms) / (1000 / TickHz)
	if ticks <= 0 {
		ticks = 1
	}
	g := irqlock.Enter()
	mgr.current.State = Sleeping
	mgr.current.RemainingSleepTicks = ticks
	mgr.sleeping.PushBack(&mgr.current.sleepNode)
	Dispatch()
	g.Exit()
}

// BlockOn parks the current task onto waitList in the WAIT state and
// dispatches away. Used by the blocking Mutex/Semaphore in sync.go and
// by internal/proc's wait() syscall.
func BlockOn(waitList *WaitList) {
	g := irqlock.Enter()
	mgr.current.State = Wait
	waitList.PushBack(&mgr.current.waitNode)
	Dispatch()
	g.Exit()
}

// WakeOne moves the head of waitList to READY and returns it, or nil
// if waitList is empty.
func WakeOne(waitList *WaitList) *Task {
	g := irqlock.Enter()
	defer g.Exit()
	n := waitList.PopFront()
	if n == nil {
		return nil
	}
	t := n.Owner()
	t.State = Ready
	mgr.ready.PushBack(&t.readyNode)
	return t
}

// WakeAll moves every task on waitList to READY.
func WakeAll(waitList *WaitList) {
	g := irqlock.Enter()
	defer g.Exit()
	for {
		n := waitList.PopFront()
		if n == nil {
			break
		}
		t := n.Owner()
		t.State = Ready
		mgr.ready.PushBack(&t.readyNode)
	}
}

// Release frees a ZOMBIE task's slot back to the pool. Called only by
// internal/proc's wait() after it has already freed the task's address
// space and kernel stack (spec.md §4.4 wait()).
func Release(t *Task) {
	g := irqlock.Enter()
	mgr.all.Remove(&t.allNode)
	g.Exit()
	freeTask(t)
}
