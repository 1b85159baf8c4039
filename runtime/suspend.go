package runtime

import "sync"

// SuspendCoordinator brings executing contexts to safepoints. A collector
// or debugger requests a halt; contexts block in Check at their next
// safepoint until the halt is released.
type SuspendCoordinator struct {
	mu     sync.Mutex
	cond   *sync.Cond
	halted bool
	paused int
}

// NewSuspendCoordinator creates a coordinator with no halt requested.
func NewSuspendCoordinator() *SuspendCoordinator {
	s := &SuspendCoordinator{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// RequestHalt asks executing contexts to pause at their next safepoint.
func (s *SuspendCoordinator) RequestHalt() {
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
}

// ReleaseHalt resumes paused contexts.
func (s *SuspendCoordinator) ReleaseHalt() {
	s.mu.Lock()
	s.halted = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Paused returns the number of contexts currently blocked at a safepoint.
func (s *SuspendCoordinator) Paused() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// AwaitPaused blocks until at least n contexts are paused. The caller must
// have requested a halt first.
func (s *SuspendCoordinator) AwaitPaused(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.paused < n {
		s.cond.Wait()
	}
}

// Check blocks while a halt is in effect. Cheap when none is.
func (s *SuspendCoordinator) Check() {
	s.mu.Lock()
	for s.halted {
		s.paused++
		s.cond.Broadcast()
		s.cond.Wait()
		s.paused--
	}
	s.mu.Unlock()
}

// TestSuspend is the safepoint entry. Compiled code calls it at loop backs
// and call returns; it blocks while a halt is requested.
//
//tern:entrypoint tern_test_suspend
func (rt *Runtime) TestSuspend(ctx *ExecutionContext) {
	ctx.CheckSuspend()
}
