package runtime

import "sync"

// Monitor is the per-object recursive lock backing the language's
// synchronized regions. Ownership is tracked by context ID, so a context
// may re-enter a monitor it holds; the monitor is released when the exit
// count matches the enter count.
type Monitor struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner int64 // owning context ID, 0 when free
	count int32
}

// Enter acquires the monitor for the given context, blocking while another
// context holds it.
func (m *Monitor) Enter(ctxID int64) {
	m.mu.Lock()
	if m.owner == ctxID {
		m.count++
		m.mu.Unlock()
		return
	}
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
	for m.owner != 0 {
		m.cond.Wait()
	}
	m.owner = ctxID
	m.count = 1
	m.mu.Unlock()
}

// Exit releases one level of the monitor. It reports false when the given
// context is not the owner.
func (m *Monitor) Exit(ctxID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != ctxID {
		return false
	}
	m.count--
	if m.count == 0 {
		m.owner = 0
		if m.cond != nil {
			m.cond.Signal()
		}
	}
	return true
}

// HeldBy reports whether the monitor is currently owned by the given
// context.
func (m *Monitor) HeldBy(ctxID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner == ctxID
}

// LockObject acquires obj's monitor for ctx, blocking until available.
// Compiled code null-checks the receiver before calling.
//
//tern:entrypoint tern_lock_object
func (rt *Runtime) LockObject(ctx *ExecutionContext, obj *Object) {
	if obj == nil {
		panic("runtime: lock of nil object")
	}
	obj.monitor.Enter(ctx.id)
}

// UnlockObject releases one level of obj's monitor. Unlocking a monitor
// ctx does not hold raises an illegal monitor state error.
//
//tern:entrypoint tern_unlock_object
func (rt *Runtime) UnlockObject(ctx *ExecutionContext, obj *Object) {
	if obj == nil {
		panic("runtime: unlock of nil object")
	}
	if !obj.monitor.Exit(ctx.id) {
		ctx.throw(rt.errorf(ctx, rt.IllegalMonitorStateClass, "unlock of unowned monitor"))
	}
}

// Monitor exposes obj's monitor for embedder-side synchronization.
func (o *Object) Monitor() *Monitor { return &o.monitor }
