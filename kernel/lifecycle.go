package kernel

import (
	"context"

	"github.com/jmbatrina/go-rsdl/sched/schederr"
)

// Fork implements spec.md §6's fork(): equivalent to
// create_process(default_home) — the child always lands at the
// compile-time default home level, never the caller's own level —
// running workload, with a zeroed return value in its trap frame (the
// child's "fork returned 0" convention). The parent's fork() call
// itself returns the child's pid through this function's return
// value, matching the parent side of fork's two-return-paths
// contract.
func (s *System) Fork(ctx context.Context, parent *Proc, name string, workload Workload) (*Proc, error) {
	return s.CreateProcess(ctx, name, parent, s.rt.DefaultHome(), workload)
}

// Priofork implements spec.md §6's priofork(level): identical to Fork,
// except the caller nominates the child's home level directly rather
// than taking the default home level. A level outside [0, L) is a configuration
// error, not a panic — the caller supplied it, and it is recoverable.
func (s *System) Priofork(ctx context.Context, parent *Proc, name string, level int, workload Workload) (*Proc, error) {
	if level < 0 || level >= s.rt.Levels() {
		return nil, &schederr.ConfigError{Op: "Priofork", Message: "home level out of range"}
	}
	return s.CreateProcess(ctx, name, parent, level, workload)
}
