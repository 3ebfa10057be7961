package sim

// HookPos identifies where, in the scheduler's lifecycle, a hook fires.
type HookPos struct{ Name string }

// HookPosBeforeStep fires immediately before the scheduler resumes a task.
var HookPosBeforeStep = &HookPos{Name: "BeforeStep"}

// HookPosAfterStep fires immediately after a resumed task has suspended or
// completed.
var HookPosAfterStep = &HookPos{Name: "AfterStep"}

// HookPosEventTriggered fires once per TriggerEvent call, after dispatch.
var HookPosEventTriggered = &HookPos{Name: "EventTriggered"}

// HookCtx carries the context of a single hook invocation.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable is anything that accepts Hooks, modeled the way the teacher
// repo's observability taps work: a flat list of callbacks invoked
// synchronously at named lifecycle points.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
	InvokeHook(ctx HookCtx)
}

// Hook is a short piece of program invoked by a Hookable at one of its
// lifecycle points.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase implements Hookable for embedding into the Scheduler.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates an empty HookableBase.
func NewHookableBase() *HookableBase {
	return &HookableBase{hookList: make([]Hook, 0)}
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int { return len(h.hookList) }

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook { return h.hookList }

// AcceptHook registers a hook. Registration is expected to happen before
// the scheduler starts running; hooks cannot be removed once attached.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hookList {
		if existing == hook {
			panic("sim: duplicated hook")
		}
	}
	h.hookList = append(h.hookList, hook)
}

// InvokeHook triggers all the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
