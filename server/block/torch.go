package block

// Torch is a light emitting block usually attached to walls or floors.
type Torch struct {
	transparent
}

// EncodeBlock ...
func (Torch) EncodeBlock() (id, meta uint8) {
	return 50, 0
}

// LightEmissionLevel ...
func (Torch) LightEmissionLevel() uint8 {
	return 14
}

// Glowstone is a solid block emitting the maximum light level.
type Glowstone struct {
	transparent
}

// EncodeBlock ...
func (Glowstone) EncodeBlock() (id, meta uint8) {
	return 89, 0
}

// LightEmissionLevel ...
func (Glowstone) LightEmissionLevel() uint8 {
	return 15
}
