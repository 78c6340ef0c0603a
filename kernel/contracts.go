// Package kernel provides the Lifecycle Glue of spec.md §4.6 and the
// per-CPU Dispatcher Loop of spec.md §4.5, wired to package sched's
// Ready Table. It also supplies narrow, concrete collaborators for the
// things spec.md §1/§6 explicitly places out of scope — virtual
// memory, trap/interrupt entry, the context-switch primitive, and the
// filesystem — so that the whole thing runs as an ordinary Go program
// rather than calling into unimplemented assembly.
package kernel

import "context"

// AddressSpace is an opaque per-process address-space handle, per
// spec.md §6. Its internals are not specified; this module never looks
// inside one.
type AddressSpace interface{}

// AddressSpaceManager is the virtual-memory collaborator contract of
// spec.md §6.
type AddressSpaceManager interface {
	NewKernelSpace() AddressSpace
	CloneUserSpace(parent AddressSpace) (AddressSpace, error)
	LoadInitialImage() AddressSpace
	SwitchUserSpace(AddressSpace)
	SwitchKernelSpace()
	FreeUserSpace(AddressSpace)
}

// FileTable is the open-file-descriptor collaborator of spec.md §6.
type FileTable interface {
	// Dup returns an independent handle sharing the same underlying
	// open files, for fork().
	Dup() FileTable
	// CloseAll releases every open file, for exit().
	CloseAll()
}

// CWD is the opaque current-working-directory handle of spec.md §6.
type CWD interface {
	// Dup returns an independent reference to the same directory.
	Dup() CWD
	// Release drops this reference, for exit().
	Release()
}

// TrapFrame is the opaque saved user-mode register state of spec.md
// §3. This module only ever zeroes the return-value register on
// fork, per spec.md §4.6.
type TrapFrame struct {
	ReturnValue int
}

// KernelStack is the opaque per-process kernel stack of spec.md §3/§6,
// owned by its PCB and freed on reap.
type KernelStack interface {
	Free()
}

// KernelStackAllocator is the fixed-size kernel-stack allocator
// collaborator of spec.md §6.
type KernelStackAllocator interface {
	Allocate() (KernelStack, error)
}

// Workload is user-mode code: the body a process runs once dispatched.
// It is handed a Proc, through which it makes the only calls that ever
// return control to the kernel: Tick, Yield, Sleep, Exit. Workload
// returning on its own without calling Exit is treated as Exit(0),
// matching a userland program falling off the end of main.
type Workload func(ctx context.Context, p *Proc)
