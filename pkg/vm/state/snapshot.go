package state

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
)

type stateSnaps struct {
	layers                        []*stateSnapLayer
	lastMaybeNonEmptyResolveCache int
}

type stateSnapLayer struct {
	actors       map[abi.ActorID]streeOp
	resolveCache map[address.Address]abi.ActorID
	nextID       abi.ActorID
}

func newStateSnapLayer(nextID abi.ActorID) *stateSnapLayer {
	return &stateSnapLayer{
		actors:       make(map[abi.ActorID]streeOp),
		resolveCache: make(map[address.Address]abi.ActorID),
		nextID:       nextID,
	}
}

type streeOp struct {
	Act    Actor
	Delete bool
}

func newStateSnaps(nextID abi.ActorID) *stateSnaps {
	ss := &stateSnaps{}
	ss.layers = append(ss.layers, newStateSnapLayer(nextID))
	return ss
}

func (ss *stateSnaps) top() *stateSnapLayer {
	return ss.layers[len(ss.layers)-1]
}

func (ss *stateSnaps) addLayer() {
	ss.layers = append(ss.layers, newStateSnapLayer(ss.top().nextID))
}

func (ss *stateSnaps) dropLayer() {
	ss.layers[len(ss.layers)-1] = nil // allow it to be GCed

	ss.layers = ss.layers[:len(ss.layers)-1]

	if ss.lastMaybeNonEmptyResolveCache == len(ss.layers) {
		ss.lastMaybeNonEmptyResolveCache = len(ss.layers) - 1
	}
}

func (ss *stateSnaps) mergeLastLayer() {
	last := ss.layers[len(ss.layers)-1]
	nextLast := ss.layers[len(ss.layers)-2]

	for k, v := range last.actors {
		nextLast.actors[k] = v
	}

	for k, v := range last.resolveCache {
		nextLast.resolveCache[k] = v
	}
	nextLast.nextID = last.nextID

	ss.dropLayer()
}

func (ss *stateSnaps) resolveAddress(addr address.Address) (abi.ActorID, bool) {
	for i := ss.lastMaybeNonEmptyResolveCache; i >= 0; i-- {
		if len(ss.layers[i].resolveCache) == 0 {
			if ss.lastMaybeNonEmptyResolveCache == i {
				ss.lastMaybeNonEmptyResolveCache = i - 1
			}
			continue
		}
		id, ok := ss.layers[i].resolveCache[addr]
		if ok {
			return id, true
		}
	}
	return 0, false
}

func (ss *stateSnaps) cacheResolveAddress(addr address.Address, id abi.ActorID) {
	ss.top().resolveCache[addr] = id
	ss.lastMaybeNonEmptyResolveCache = len(ss.layers) - 1
}

// getActor returns (nil, nil) when no layer knows the actor.
func (ss *stateSnaps) getActor(id abi.ActorID) (*Actor, error) {
	for i := len(ss.layers) - 1; i >= 0; i-- {
		act, ok := ss.layers[i].actors[id]
		if ok {
			if act.Delete {
				return nil, ErrActorNotFound
			}

			return act.Act.Copy(), nil
		}
	}
	return nil, nil
}

func (ss *stateSnaps) setActor(id abi.ActorID, act *Actor) {
	ss.top().actors[id] = streeOp{Act: *act.Copy()}
}

func (ss *stateSnaps) deleteActor(id abi.ActorID) {
	ss.top().actors[id] = streeOp{Delete: true}
}
