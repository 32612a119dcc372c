package world

import (
	"errors"
)

var (
	// ErrUnloadedChunk is returned by operations that reference a block
	// position in a chunk that is not currently loaded and simulated. The
	// operation has no effect on the world; callers may retry it after
	// requesting the chunk through a Loader.
	ErrUnloadedChunk = errors.New("chunk is not loaded")
	// ErrChunkBusy is returned when a chunk cannot be unloaded because
	// entities, scheduled ticks or pending light updates still reference it.
	// Unloading may be retried in a later tick.
	ErrChunkBusy = errors.New("chunk is still referenced")
	// ErrUnknownEntity is returned by entity operations that reference an
	// entity id not present in the world, typically because the entity was
	// despawned before the operation arrived.
	ErrUnknownEntity = errors.New("entity is not in the world")
	// ErrCorruptChunk is returned by a Provider when the stored payload of a
	// chunk cannot be decoded. The world recovers by regenerating the chunk.
	ErrCorruptChunk = errors.New("stored chunk data is corrupt")
)
