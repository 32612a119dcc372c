package cube

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Pos holds the position of a block. The position is represented of an array
// with an x, y and z value, where the y value is the vertical axis.
type Pos [3]int

// X returns the X coordinate of the block position.
func (p Pos) X() int {
	return p[0]
}

// Y returns the Y coordinate of the block position.
func (p Pos) Y() int {
	return p[1]
}

// Z returns the Z coordinate of the block position.
func (p Pos) Z() int {
	return p[2]
}

// Add adds two block positions together and returns a new one with the sum of
// the two positions.
func (p Pos) Add(pos Pos) Pos {
	return Pos{p[0] + pos[0], p[1] + pos[1], p[2] + pos[2]}
}

// Vec3 returns a vec3 holding the same coordinates as the block position.
func (p Pos) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
}

// Vec3Centre returns a vec3 holding the coordinates of the block position with
// 0.5 added on each horizontal axis and the vertical axis.
func (p Pos) Vec3Centre() mgl64.Vec3 {
	return mgl64.Vec3{float64(p[0]) + 0.5, float64(p[1]) + 0.5, float64(p[2]) + 0.5}
}

// Side returns the position on the side of this block position, at a specific
// face.
func (p Pos) Side(face Face) Pos {
	switch face {
	case FaceUp:
		p[1]++
	case FaceDown:
		p[1]--
	case FaceNorth:
		p[2]--
	case FaceSouth:
		p[2]++
	case FaceWest:
		p[0]--
	case FaceEast:
		p[0]++
	}
	return p
}

// OutOfBounds checks if the position passed is out of bounds for the Range
// passed.
func (p Pos) OutOfBounds(r Range) bool {
	return p[1] > r[1] || p[1] < r[0]
}

// Neighbours calls the function passed for each of the block position's
// neighbours. If the Y value is out of bounds, the function will not be called
// for that position.
func (p Pos) Neighbours(f func(neighbour Pos), r Range) {
	for _, face := range Faces() {
		side := p.Side(face)
		if side.OutOfBounds(r) {
			continue
		}
		f(side)
	}
}

// PosFromVec3 returns a block position by a Vec3, rounding the values down
// adequately.
func PosFromVec3(vec3 mgl64.Vec3) Pos {
	return Pos{int(floor(vec3[0])), int(floor(vec3[1])), int(floor(vec3[2]))}
}

// floor returns the largest integer value smaller than the float passed.
func floor(x float64) float64 {
	v := float64(int(x))
	if x < v {
		return v - 1
	}
	return v
}
