package block

import (
	"strconv"

	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world"
)

// Chest is a container block. Its contents are held in a block entity that is
// created when the chest is placed and removed together with the block.
type Chest struct {
	transparent
}

// EncodeBlock ...
func (Chest) EncodeBlock() (id, meta uint8) {
	return 54, 0
}

// NewBlockEntity ...
func (Chest) NewBlockEntity(pos cube.Pos) world.BlockEntity {
	return &ChestEntity{pos: pos, items: map[int]ChestItem{}}
}

// ChestItem is a stack of items in a chest slot.
type ChestItem struct {
	ID    int16
	Count uint8
}

// ChestEntity holds the contents of a chest. It is only ever accessed from
// world transactions, so it needs no locking of its own.
type ChestEntity struct {
	pos   cube.Pos
	items map[int]ChestItem
}

// Item returns the item stack in the slot passed.
func (e *ChestEntity) Item(slot int) (ChestItem, bool) {
	it, ok := e.items[slot]
	return it, ok
}

// SetItem sets the item stack in the slot passed. A stack with a count of 0
// clears the slot.
func (e *ChestEntity) SetItem(slot int, it ChestItem) {
	if it.Count == 0 {
		delete(e.items, slot)
		return
	}
	e.items[slot] = it
}

// EncodeBlockEntity ...
func (e *ChestEntity) EncodeBlockEntity() map[string]any {
	items := make(map[string]any, len(e.items))
	for slot, it := range e.items {
		items[strconv.Itoa(slot)] = map[string]any{"id": it.ID, "count": it.Count}
	}
	return map[string]any{"id": "chest", "items": items}
}
