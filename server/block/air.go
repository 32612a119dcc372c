package block

// Air is the block present in otherwise empty space. It is fully transparent
// to light.
type Air struct {
	transparent
}

// EncodeBlock ...
func (Air) EncodeBlock() (id, meta uint8) {
	return 0, 0
}
