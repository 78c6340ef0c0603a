package kernel

import "fmt"

// simAddressSpace, simFileTable, simCWD and simKernelStack are
// in-memory stand-ins for the out-of-scope collaborators named in
// spec.md §6. They carry just enough state to make fork/exit/reap
// observable in tests, without pretending to model real virtual
// memory, file descriptors or directories.

type simAddressSpace struct {
	id     int
	parent *simAddressSpace
}

type simAddressSpaceManager struct {
	bootImage AddressSpace
	nextID    int
}

// NewAddressSpaceManager returns the default in-memory
// AddressSpaceManager, suitable for tests and examples.
func NewAddressSpaceManager() AddressSpaceManager {
	return &simAddressSpaceManager{}
}

func (m *simAddressSpaceManager) NewKernelSpace() AddressSpace {
	m.nextID++
	return &simAddressSpace{id: m.nextID}
}

func (m *simAddressSpaceManager) CloneUserSpace(parent AddressSpace) (AddressSpace, error) {
	p, _ := parent.(*simAddressSpace)
	m.nextID++
	return &simAddressSpace{id: m.nextID, parent: p}, nil
}

func (m *simAddressSpaceManager) LoadInitialImage() AddressSpace {
	m.nextID++
	return &simAddressSpace{id: m.nextID}
}

func (m *simAddressSpaceManager) SwitchUserSpace(AddressSpace) {}
func (m *simAddressSpaceManager) SwitchKernelSpace()           {}
func (m *simAddressSpaceManager) FreeUserSpace(AddressSpace)   {}

type simFileTable struct {
	open map[int]struct{}
}

// NewFileTable returns an empty in-memory FileTable.
func NewFileTable() FileTable {
	return &simFileTable{open: make(map[int]struct{})}
}

func (f *simFileTable) Dup() FileTable {
	n := &simFileTable{open: make(map[int]struct{}, len(f.open))}
	for k := range f.open {
		n.open[k] = struct{}{}
	}
	return n
}

func (f *simFileTable) CloseAll() {
	for k := range f.open {
		delete(f.open, k)
	}
}

type simCWD struct {
	path string
}

// NewCWD returns an in-memory CWD rooted at path.
func NewCWD(path string) CWD {
	return &simCWD{path: path}
}

func (c *simCWD) Dup() CWD    { return &simCWD{path: c.path} }
func (c *simCWD) Release()    {}
func (c *simCWD) String() string { return c.path }

type simKernelStack struct {
	id   int
	freed bool
}

func (s *simKernelStack) Free() {
	if s.freed {
		panic(fmt.Sprintf("kernel stack %d double-freed", s.id))
	}
	s.freed = true
}

type simKernelStackAllocator struct {
	next int
}

// NewKernelStackAllocator returns the default in-memory
// KernelStackAllocator.
func NewKernelStackAllocator() KernelStackAllocator {
	return &simKernelStackAllocator{}
}

func (a *simKernelStackAllocator) Allocate() (KernelStack, error) {
	a.next++
	return &simKernelStack{id: a.next}, nil
}
