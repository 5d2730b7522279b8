package register

import (
	"sync"

	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
)

// DefaultActorBuilder collects the actors that ship with the machine. They
// are indexed by their code cid.
var DefaultActorBuilder = dispatch.NewBuilder()
var loadOnce sync.Once
var defaultActors dispatch.CodeLoader

// GetDefaultActors returns the loader for the builtin actors.
func GetDefaultActors() *dispatch.CodeLoader {
	loadOnce.Do(func() {
		DefaultActorBuilder.AddMany(dispatch.AnyVersion, builtin.Actors()...)
		defaultActors = DefaultActorBuilder.Build()
	})

	return &defaultActors
}
