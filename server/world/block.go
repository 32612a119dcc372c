package world

import (
	"fmt"
	"math/rand/v2"

	"github.com/brentp/intintmap"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// Block is a block that may be placed or found in a world. In addition to the
// required methods, a Block may implement capability interfaces such as
// LightEmitter, ScheduledTicker or RandomTicker to take part in the
// respective world systems.
type Block interface {
	// EncodeBlock returns the numeric id and metadata value of the block.
	// The metadata value must be in the range 0-15.
	EncodeBlock() (id, meta uint8)
}

// LightEmitter is implemented by blocks that emit light, such as torches.
type LightEmitter interface {
	// LightEmissionLevel returns the light level emitted, in the range 1-15.
	LightEmissionLevel() uint8
}

// LightDiffuser is implemented by blocks that do not fully obstruct light.
// Blocks not implementing LightDiffuser are assumed to block light entirely.
type LightDiffuser interface {
	// LightDiffusionLevel returns the amount of light levels lost when light
	// passes through the block. A value of 0 means the block is fully
	// transparent to light.
	LightDiffusionLevel() uint8
}

// ScheduledTicker is implemented by blocks that react to scheduled ticks,
// registered through Tx.ScheduleBlockUpdate.
type ScheduledTicker interface {
	ScheduledTick(pos cube.Pos, tx *Tx, r *rand.Rand)
}

// RandomTicker is implemented by blocks that react to random ticks, such as
// growing crops.
type RandomTicker interface {
	RandomTick(pos cube.Pos, tx *Tx, r *rand.Rand)
}

// NeighbourUpdateTicker is implemented by blocks that react to a neighbouring
// block changing, such as gravity affected blocks losing their support.
type NeighbourUpdateTicker interface {
	// NeighbourUpdateTick is called when a block adjacent to the block, or the
	// block itself, changes.
	NeighbourUpdateTick(pos, changedNeighbour cube.Pos, tx *Tx)
}

// EntityBlock is implemented by blocks that carry extra state in a
// BlockEntity, such as containers.
type EntityBlock interface {
	// NewBlockEntity creates the BlockEntity attached to the block when it is
	// placed in a world.
	NewBlockEntity(pos cube.Pos) BlockEntity
}

// BlockEntity holds the extra state of a block at a specific position, such
// as the contents of a container.
type BlockEntity interface {
	// EncodeBlockEntity returns the state of the block entity, used when the
	// chunk holding it is shown to a viewer.
	EncodeBlockEntity() map[string]any
}

// TickerBlockEntity is implemented by block entities that require ticking
// every world tick while their chunk is loaded, such as furnaces.
type TickerBlockEntity interface {
	BlockEntity
	Tick(tick int64, pos cube.Pos, tx *Tx)
}

const stateCount = 1 << 12

var (
	// states holds all registered blocks, indexed by the value stored in
	// stateIndex.
	states []Block
	// stateIndex maps a packed runtime id (id<<4 | meta) to an index into
	// states.
	stateIndex = intintmap.New(stateCount, 0.5)

	lightEmission   [stateCount]uint8
	lightDiffusion  [stateCount]uint8
	randomTickers   [stateCount]bool
	scheduledBlocks [stateCount]bool
	entityBlocks    [stateCount]bool
)

// RegisterBlock registers a block so that it may be placed and found in
// worlds. RegisterBlock panics if a block with the same id and metadata was
// already registered. Blocks must be registered before any World is created.
func RegisterBlock(b Block) {
	rid := BlockRuntimeID(b)
	if _, ok := stateIndex.Get(int64(rid)); ok {
		id, meta := b.EncodeBlock()
		panic(fmt.Sprintf("world: block with id %v and metadata %v already registered", id, meta))
	}
	stateIndex.Put(int64(rid), int64(len(states)))
	states = append(states, b)

	lightDiffusion[rid] = 15
	if d, ok := b.(LightDiffuser); ok {
		lightDiffusion[rid] = d.LightDiffusionLevel()
	}
	if e, ok := b.(LightEmitter); ok {
		lightEmission[rid] = e.LightEmissionLevel()
	}
	if _, ok := b.(RandomTicker); ok {
		randomTickers[rid] = true
	}
	if _, ok := b.(ScheduledTicker); ok {
		scheduledBlocks[rid] = true
	}
	if _, ok := b.(EntityBlock); ok {
		entityBlocks[rid] = true
	}
}

// BlockRuntimeID returns the packed runtime id of the block passed.
func BlockRuntimeID(b Block) uint16 {
	id, meta := b.EncodeBlock()
	return uint16(id)<<4 | uint16(meta&0x0f)
}

// BlockHash returns a hash of the block passed, usable to compare block
// identity without keeping a reference to the Block itself.
func BlockHash(b Block) uint64 {
	return fnv1a.AddUint64(fnv1a.Init64, uint64(BlockRuntimeID(b)))
}

// BlockByRuntimeID returns the block registered with the packed runtime id
// passed. If no block was registered with the runtime id, false is returned.
func BlockByRuntimeID(rid uint16) (Block, bool) {
	i, ok := stateIndex.Get(int64(rid))
	if !ok {
		return nil, false
	}
	return states[i], true
}

// blockByRuntimeIDOrAir returns the block registered with the runtime id
// passed, or the air block if no such block was registered.
func blockByRuntimeIDOrAir(rid uint16) Block {
	if b, ok := BlockByRuntimeID(rid); ok {
		return b
	}
	return air()
}

// airRID is the runtime id of the air block, always 0.
const airRID uint16 = 0

// air returns the air block. It panics if no block with id 0 was registered.
func air() Block {
	b, ok := BlockByRuntimeID(airRID)
	if !ok {
		panic("world: air block was not registered")
	}
	return b
}
