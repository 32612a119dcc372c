package chunk

// nibbleArray stores a 4-bit value for every cell of a chunk, packed two
// cells per byte. Even cell indices occupy the low nibble.
type nibbleArray [Width * Width * Height / 2]uint8

// at returns the nibble at the cell index passed.
func (a *nibbleArray) at(i uint16) uint8 {
	if i&1 == 0 {
		return a[i>>1] & 0x0f
	}
	return a[i>>1] >> 4
}

// set sets the nibble at the cell index passed. Values above 15 are
// truncated.
func (a *nibbleArray) set(i uint16, v uint8) {
	v &= 0x0f
	if i&1 == 0 {
		a[i>>1] = a[i>>1]&0xf0 | v
		return
	}
	a[i>>1] = a[i>>1]&0x0f | v<<4
}
