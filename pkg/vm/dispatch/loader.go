package dispatch

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// ActorPredicate decides whether an actor may run at a network version.
type ActorPredicate func(nv network.Version, code cid.Cid) error

// NetworkVersionPredicate allows the code from network version min onwards.
func NetworkVersionPredicate(min network.Version) ActorPredicate {
	return func(nv network.Version, code cid.Cid) error {
		if nv < min {
			return fmt.Errorf("actor %s is only available from network version %d, current is %d", code, min, nv)
		}
		return nil
	}
}

// AnyVersion allows the code at every network version.
func AnyVersion(network.Version, cid.Cid) error { return nil }

type actorInfo struct {
	code      runtime.ActorCode
	predicate ActorPredicate
}

// CodeLoader allows you to load an actor's code based on its id.
type CodeLoader struct {
	actors map[cid.Cid]actorInfo
}

var _ runtime.CodeLoader = (*CodeLoader)(nil)

// LoadCode returns the code behind the cid. The returned code checks its
// predicate against the kernel's network version on every invocation.
func (cl CodeLoader) LoadCode(code cid.Cid) (runtime.ActorCode, bool) {
	info, ok := cl.actors[code]
	if !ok {
		return nil, false
	}
	return runtime.ActorCodeFunc(func(k runtime.Kernel, method abi.MethodNum, params runtime.BlockID) (runtime.BlockID, exitcode.ExitCode) {
		if err := info.predicate(k.NetworkVersion(), code); err != nil {
			runtime.Abortf(exitcode.SysErrInvalidReceiver, "unsupport actor. code: %s, err: %s", code, err)
		}
		return info.code.Invoke(k, method, params)
	}), true
}

// Codes returns every registered code cid.
func (cl CodeLoader) Codes() []cid.Cid {
	out := make([]cid.Cid, 0, len(cl.actors))
	for c := range cl.actors {
		out = append(out, c)
	}
	return out
}

// CodeLoaderBuilder helps you build a CodeLoader.
type CodeLoaderBuilder struct {
	actors map[cid.Cid]actorInfo
}

// NewBuilder creates a builder to generate a builtin.Actor data structure
func NewBuilder() *CodeLoaderBuilder {
	return &CodeLoaderBuilder{actors: map[cid.Cid]actorInfo{}}
}

// Add lets you add an actor dispatch table for a given version.
func (b *CodeLoaderBuilder) Add(predicate ActorPredicate, actor Actor) *CodeLoaderBuilder {
	return b.AddCode(actor.Code(), predicate, NewDispatcher(actor))
}

// AddMany registers several actors under the same predicate.
func (b *CodeLoaderBuilder) AddMany(predicate ActorPredicate, actors ...Actor) *CodeLoaderBuilder {
	for _, actor := range actors {
		b.Add(predicate, actor)
	}
	return b
}

// AddCode registers code that is not a reflection dispatched native actor.
func (b *CodeLoaderBuilder) AddCode(code cid.Cid, predicate ActorPredicate, ac runtime.ActorCode) *CodeLoaderBuilder {
	if predicate == nil {
		predicate = AnyVersion
	}
	b.actors[code] = actorInfo{code: ac, predicate: predicate}
	return b
}

// Build builds the code loader.
func (b *CodeLoaderBuilder) Build() CodeLoader {
	actors := make(map[cid.Cid]actorInfo, len(b.actors))
	for c, info := range b.actors {
		actors[c] = info
	}
	return CodeLoader{actors: actors}
}
