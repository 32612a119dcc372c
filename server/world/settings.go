package world

import (
	"sync"

	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// Settings holds the settings of a World. Such settings include the name of
// the world, the current time and the spawn position. Settings are loaded
// from and saved to the world's Provider.
type Settings struct {
	sync.Mutex

	// Name is the display name of the world.
	Name string
	// Spawn is the default spawn position of new players in the world.
	Spawn cube.Pos
	// Time is the current time of the world, advancing by one every tick
	// while TimeCycle is enabled.
	Time int64
	// TimeCycle specifies if the time should advance every tick.
	TimeCycle bool
	// CurrentTick is the tick counter of the world, advancing by one every
	// tick. It is the time base of the scheduled tick queue.
	CurrentTick int64
}

// defaultSettings returns the default Settings of a new world.
func defaultSettings() *Settings {
	return &Settings{
		Name:      "World",
		Spawn:     cube.Pos{0, 65, 0},
		TimeCycle: true,
	}
}
