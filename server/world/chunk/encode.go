package chunk

import (
	"fmt"
)

// currentVersion is the version of the chunk encoding produced by Encode.
// DecodeChunk refuses payloads with a version it does not know.
const currentVersion = 1

// dataSize is the total size in bytes of an encoded chunk: a version byte
// followed by the block array, three nibble arrays and the height map.
const dataSize = 1 + Width*Width*Height + 3*(Width*Width*Height/2) + Width*Width

// Encode encodes the chunk to its binary representation. The representation
// holds the raw block, metadata, light and height map arrays and is
// compressed by the storage layer, not here.
func (c *Chunk) Encode() []byte {
	buf := make([]byte, 0, dataSize)
	buf = append(buf, currentVersion)
	buf = append(buf, c.blocks[:]...)
	buf = append(buf, c.meta[:]...)
	buf = append(buf, c.skyLight[:]...)
	buf = append(buf, c.blockLight[:]...)
	buf = append(buf, c.heightMap[:]...)
	return buf
}

// DecodeChunk decodes a chunk from the binary representation produced by
// Encode. An error is returned if the payload is truncated or has an unknown
// version.
func DecodeChunk(data []byte) (*Chunk, error) {
	if len(data) != dataSize {
		return nil, fmt.Errorf("decode chunk: payload must be %v bytes, got %v", dataSize, len(data))
	}
	if data[0] != currentVersion {
		return nil, fmt.Errorf("decode chunk: unknown version %v", data[0])
	}
	c := &Chunk{}
	data = data[1:]
	data = data[copy(c.blocks[:], data):]
	data = data[copy(c.meta[:], data):]
	data = data[copy(c.skyLight[:], data):]
	data = data[copy(c.blockLight[:], data):]
	copy(c.heightMap[:], data)
	return c, nil
}
