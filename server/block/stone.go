package block

// Stone is the most common solid block, found underground throughout the
// world.
type Stone struct{}

// EncodeBlock ...
func (Stone) EncodeBlock() (id, meta uint8) {
	return 1, 0
}

// Bedrock is the unbreakable block found at the bottom of the world.
type Bedrock struct{}

// EncodeBlock ...
func (Bedrock) EncodeBlock() (id, meta uint8) {
	return 7, 0
}
