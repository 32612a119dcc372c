package world

import (
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// Provider manages the storage of chunks and world settings. Providers are
// only ever called from the world's load and save workers, never from the
// simulation goroutine, so implementations may block on I/O.
type Provider interface {
	// LoadChunk loads the chunk at the position passed. If no chunk is stored
	// at the position, found is false and the world generates the chunk
	// instead. If the stored payload cannot be decoded, LoadChunk returns an
	// error wrapping ErrCorruptChunk and the world regenerates the chunk.
	LoadChunk(pos ChunkPos) (c *chunk.Chunk, found bool, err error)
	// StoreChunk stores the chunk at the position passed.
	StoreChunk(pos ChunkPos, c *chunk.Chunk) error
	// LoadSettings loads the settings of the world, such as the current time
	// and tick, into the Settings struct passed.
	LoadSettings(s *Settings)
	// SaveSettings stores the settings of the world.
	SaveSettings(s *Settings)
	// Close closes the provider, flushing any remaining data to disk.
	Close() error
}

// NopProvider is a Provider implementation that does not store anything.
// Worlds with a NopProvider generate every chunk anew and lose all changes on
// shutdown.
type NopProvider struct{}

func (NopProvider) LoadChunk(ChunkPos) (*chunk.Chunk, bool, error) { return nil, false, nil }
func (NopProvider) StoreChunk(ChunkPos, *chunk.Chunk) error        { return nil }
func (NopProvider) LoadSettings(*Settings)                         {}
func (NopProvider) SaveSettings(*Settings)                         {}
func (NopProvider) Close() error                                   { return nil }

// Generator generates the chunks that a world's Provider has no stored data
// for. Generators run on the world's generation workers and must therefore be
// safe for concurrent use.
type Generator interface {
	// GenerateChunk generates the blocks of the chunk at the position passed.
	// The generator must also fill in the chunk's height map.
	GenerateChunk(pos ChunkPos, c *chunk.Chunk)
}

// NopGenerator is a Generator implementation that generates completely empty
// chunks.
type NopGenerator struct{}

func (NopGenerator) GenerateChunk(ChunkPos, *chunk.Chunk) {}
