// Package state holds the actor table and its per-frame snapshot layers.
package state

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/trace"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vm.state")

// StateTreeVersion is written into every root block.
const StateTreeVersion uint64 = 1

// FirstNonSingletonActorID is the first ID handed to actors created at runtime.
const FirstNonSingletonActorID abi.ActorID = 100

const dagCBOR = 0x71

// Store is the block store the tree loads from and flushes into.
type Store interface {
	GetRaw(ctx context.Context, c cid.Cid) ([]byte, error)
	Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error)
}

// State stores actors by their ID. Changes go to the top snapshot layer and
// reach the root block only through Flush.
type State struct {
	store Store

	actors map[abi.ActorID]*Actor
	addrs  map[address.Address]abi.ActorID

	snaps *stateSnaps
}

// NewState creates an empty tree.
func NewState(store Store) *State {
	return &State{
		store:  store,
		actors: map[abi.ActorID]*Actor{},
		addrs:  map[address.Address]abi.ActorID{},
		snaps:  newStateSnaps(FirstNonSingletonActorID),
	}
}

// LoadState loads the tree whose root block is c.
func LoadState(ctx context.Context, store Store, c cid.Cid) (*State, error) {
	raw, err := store.GetRaw(ctx, c)
	if err != nil {
		log.Errorf("loading state root %s failed: %s", c, err)
		return nil, xerrors.Errorf("loading state root %s: %w", c, err)
	}

	var root stateRoot
	if err := root.UnmarshalCBOR(bytes.NewReader(raw)); err != nil {
		return nil, xerrors.Errorf("decoding state root %s: %w", c, err)
	}
	if root.Version != StateTreeVersion {
		return nil, xerrors.Errorf("unsupported state tree version %d", root.Version)
	}

	st := &State{
		store:  store,
		actors: make(map[abi.ActorID]*Actor, len(root.Actors)),
		addrs:  map[address.Address]abi.ActorID{},
		snaps:  newStateSnaps(abi.ActorID(root.NextID)),
	}
	for _, act := range root.Actors {
		st.actors[act.ID] = act
		if act.Address != address.Undef {
			st.addrs[act.Address] = act.ID
		}
	}
	return st, nil
}

// LookupID resolves any address to an actor ID.
func (st *State) LookupID(addr address.Address) (abi.ActorID, error) {
	if addr == address.Undef {
		return 0, fmt.Errorf("LookupID called on undefined address")
	}
	if addr.Protocol() == address.ID {
		id, err := address.IDFromAddress(addr)
		if err != nil {
			return 0, err
		}
		return abi.ActorID(id), nil
	}

	if id, ok := st.snaps.resolveAddress(addr); ok {
		return id, nil
	}
	if id, ok := st.addrs[addr]; ok {
		return id, nil
	}
	return 0, xerrors.Errorf("resolve address %s: %w", addr, ErrActorNotFound)
}

// GetActor returns the actor from any type of `addr` provided.
func (st *State) GetActor(ctx context.Context, addr address.Address) (*Actor, bool, error) {
	id, err := st.LookupID(addr)
	if err != nil {
		if xerrors.Is(err, ErrActorNotFound) {
			return nil, false, nil
		}
		return nil, false, xerrors.Errorf("address resolution: %w", err)
	}
	return st.GetActorByID(id)
}

// GetActorByID returns a copy of the actor, callers must SetActor to persist changes.
func (st *State) GetActorByID(id abi.ActorID) (*Actor, bool, error) {
	snapAct, err := st.snaps.getActor(id)
	if err != nil {
		if xerrors.Is(err, ErrActorNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if snapAct != nil {
		return snapAct, true, nil
	}

	act, ok := st.actors[id]
	if !ok {
		return nil, false, nil
	}
	return act.Copy(), true, nil
}

// SetActor stores act under act.ID.
func (st *State) SetActor(ctx context.Context, act *Actor) error {
	if !act.Code.Defined() || !act.Head.Defined() {
		return xerrors.Errorf("actor %d has undefined code or head", act.ID)
	}
	st.snaps.setActor(act.ID, act)
	if act.Address != address.Undef {
		st.snaps.cacheResolveAddress(act.Address, act.ID)
	}
	return nil
}

// RegisterNewAddress allocates the next actor ID and binds addr to it. addr may
// be Undef for actors without a robust address.
func (st *State) RegisterNewAddress(addr address.Address) (abi.ActorID, error) {
	if addr != address.Undef {
		if addr.Protocol() == address.ID {
			return 0, xerrors.Errorf("cannot register ID address %s", addr)
		}
		if _, err := st.LookupID(addr); err == nil {
			return 0, xerrors.Errorf("address %s already registered", addr)
		}
	}

	top := st.snaps.top()
	id := top.nextID
	top.nextID++
	if addr != address.Undef {
		st.snaps.cacheResolveAddress(addr, id)
	}
	return id, nil
}

// DeleteActor removes the actor behind addr.
func (st *State) DeleteActor(ctx context.Context, addr address.Address) error {
	id, err := st.LookupID(addr)
	if err != nil {
		return xerrors.Errorf("resolution lookup failed (%s): %w", addr, err)
	}
	_, found, err := st.GetActorByID(id)
	if err != nil {
		return err
	}
	if !found {
		return xerrors.Errorf("delete actor %s: %w", addr, ErrActorNotFound)
	}
	st.snaps.deleteActor(id)
	return nil
}

// MutateActor loads, modifies and stores the actor behind addr.
func (st *State) MutateActor(addr address.Address, f func(*Actor) error) error {
	act, found, err := st.GetActor(context.Background(), addr)
	if err != nil {
		return err
	}
	if !found {
		return xerrors.Errorf("mutate actor %s: %w", addr, ErrActorNotFound)
	}
	if err := f(act); err != nil {
		return err
	}
	return st.SetActor(context.Background(), act)
}

// Snapshot pushes a new layer, every change until the matching
// ClearSnapshot or RevertSnapshot lands in it.
func (st *State) Snapshot() {
	st.snaps.addLayer()
}

// ClearSnapshot merges the top layer into the one below it.
func (st *State) ClearSnapshot() {
	st.snaps.mergeLastLayer()
}

// RevertSnapshot drops the top layer and every change in it.
func (st *State) RevertSnapshot() {
	st.snaps.dropLayer()
}

// Depth returns the number of open snapshot layers.
func (st *State) Depth() int {
	return len(st.snaps.layers) - 1
}

// Flush applies the base layer and writes the root block to the store.
func (st *State) Flush(ctx context.Context) (cid.Cid, error) {
	ctx, span := trace.StartSpan(ctx, "stateTree.Flush") //nolint:staticcheck
	defer span.End()
	if len(st.snaps.layers) != 1 {
		return cid.Undef, xerrors.Errorf("tried to flush state tree with snapshots on the stack")
	}

	base := st.snaps.layers[0]
	for id, sto := range base.actors {
		if sto.Delete {
			if old, ok := st.actors[id]; ok && old.Address != address.Undef {
				delete(st.addrs, old.Address)
			}
			delete(st.actors, id)
			continue
		}
		act := sto.Act
		st.actors[id] = &act
		if act.Address != address.Undef {
			st.addrs[act.Address] = id
		}
	}
	st.snaps = newStateSnaps(base.nextID)

	root := stateRoot{
		Version: StateTreeVersion,
		NextID:  uint64(base.nextID),
		Actors:  make([]*Actor, 0, len(st.actors)),
	}
	for _, act := range st.actors {
		root.Actors = append(root.Actors, act)
	}
	sort.Slice(root.Actors, func(i, j int) bool { return root.Actors[i].ID < root.Actors[j].ID })

	buf := new(bytes.Buffer)
	if err := root.MarshalCBOR(buf); err != nil {
		return cid.Undef, xerrors.Errorf("encoding state root: %w", err)
	}
	return st.store.Put(ctx, dagCBOR, buf.Bytes())
}

// ForEach calls f for every actor in the tree, in ID order.
func (st *State) ForEach(f func(*Actor) error) error {
	ids := map[abi.ActorID]struct{}{}
	for id := range st.actors {
		ids[id] = struct{}{}
	}
	for _, layer := range st.snaps.layers {
		for id := range layer.actors {
			ids[id] = struct{}{}
		}
	}
	sorted := make([]abi.ActorID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		act, found, err := st.GetActorByID(id)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := f(act); err != nil {
			return err
		}
	}
	return nil
}

type stateRoot struct {
	Version uint64
	NextID  uint64
	Actors  []*Actor
}
