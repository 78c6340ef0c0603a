package kernel

// Schedlog implements spec.md §6's schedlog(n): arms the scheduler
// core's tracer for n further ticks, or disables it for n <= 0.
func (s *System) Schedlog(n int) {
	s.rt.EnableTrace(n)
}

// Yield implements spec.md §6's yield(): the calling process gives up
// its remaining quantum voluntarily.
func (s *System) Yield(p *Proc) {
	p.Yield()
}

// Exit implements spec.md §6's exit(status): the calling process
// terminates. Like the syscall it models, this call never returns.
func (s *System) Exit(p *Proc, status int) {
	p.Exit(status)
}
