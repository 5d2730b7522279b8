// Package syscalls exposes the kernel to sandboxed actor code as a flat table
// of functions keyed by "module.name". Every function takes a fixed number of
// uint64 arguments, addresses the instance's linear memory by offset and
// length, and reports recoverable failures as an error number.
package syscalls

import (
	"fmt"
	"sort"

	logging "github.com/ipfs/go-log/v2"

	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

var log = logging.Logger("vm.syscalls")

// Memory is the linear memory of the running actor instance.
type Memory []byte

// Read returns a view of length bytes at offset.
func (m Memory) Read(offset, length uint64) ([]byte, runtime.ErrorNumber) {
	end := offset + length
	if end < offset || end > uint64(len(m)) {
		return nil, runtime.ErrIllegalArgument
	}
	return m[offset:end], runtime.ErrNone
}

// Write copies data into the length bytes at offset.
func (m Memory) Write(offset, length uint64, data []byte) (uint64, runtime.ErrorNumber) {
	buf, errno := m.Read(offset, length)
	if errno != runtime.ErrNone {
		return 0, errno
	}
	if uint64(len(data)) > length {
		return 0, runtime.ErrBufferTooSmall
	}
	return uint64(copy(buf, data)), runtime.ErrNone
}

// Handler implements one syscall. args always has the declared arity.
type Handler func(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber)

// Syscall is one entry of the table.
type Syscall struct {
	Module  string
	Name    string
	Arity   int
	Handler Handler
}

// Key is the "module.name" the syscall is imported under.
func (s Syscall) Key() string {
	return s.Module + "." + s.Name
}

// Table is the fixed set of syscalls an instance is linked against.
type Table struct {
	pl    gas.Pricelist
	calls map[string]Syscall
}

// NewTable returns the table with every syscall bound. pl prices the syscall
// boundary crossing, each kernel operation still charges its own gas.
func NewTable(pl gas.Pricelist) *Table {
	t := &Table{pl: pl, calls: map[string]Syscall{}}
	for _, s := range bindings() {
		if _, dup := t.calls[s.Key()]; dup {
			panic(fmt.Sprintf("syscall %s bound twice", s.Key()))
		}
		t.calls[s.Key()] = s
	}
	return t
}

// Lookup finds the syscall imported as module.name.
func (t *Table) Lookup(module, name string) (Syscall, bool) {
	s, ok := t.calls[module+"."+name]
	return s, ok
}

// Keys lists every bound syscall, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.calls))
	for k := range t.calls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invoke runs module.name against k. Aborts raised by the kernel propagate
// as panics, exactly as if the actor had called the kernel directly.
func (t *Table) Invoke(k runtime.Kernel, mem Memory, module, name string, args ...uint64) ([]uint64, runtime.ErrorNumber) {
	s, ok := t.Lookup(module, name)
	if !ok {
		log.Debugw("unknown syscall", "module", module, "name", name)
		return nil, runtime.ErrNotFound
	}
	if len(args) != s.Arity {
		return nil, runtime.ErrIllegalArgument
	}
	if t.pl != nil {
		if err := k.ChargeGas("OnSyscall", t.pl.OnSyscall().Total()); err != nil {
			return nil, runtime.ErrorNumberOf(err)
		}
	}
	return s.Handler(k, mem, args)
}
