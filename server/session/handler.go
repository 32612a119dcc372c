package session

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/internal/txguard"
	"github.com/tidewater-mc/tidewater/server/world"
)

// handleCommand applies a single inbound command as a world transaction.
// Commands that target an unloaded chunk fail with an error reply and leave
// the world untouched; the client is expected to retry once the chunk was
// sent to it. The dispatch runs behind txguard so that a handler touching a
// transaction past its window fails the command instead of crashing the
// simulation goroutine.
func (s *Session) handleCommand(cmd command) {
	<-s.w.Exec(func(tx *world.Tx) {
		if !txguard.Run(tx, func() {
			s.dispatchCommand(tx, cmd)
		}) {
			s.sendError(cmd.ID, "command could not be applied")
		}
	})
}

func (s *Session) dispatchCommand(tx *world.Tx, cmd command) {
	switch cmd.Type {
	case "move":
		s.handleMove(tx, cmd)
	case "set_block":
		s.handleSetBlock(tx, cmd)
	case "break_block":
		s.handleBreakBlock(tx, cmd)
	case "query_block":
		s.handleQueryBlock(tx, cmd)
	case "schedule_tick":
		s.handleScheduleTick(tx, cmd)
	case "cancel_ticks":
		s.handleCancelTicks(tx, cmd)
	case "set_radius":
		s.handleSetRadius(tx, cmd)
	default:
		s.sendError(cmd.ID, "unknown command type "+cmd.Type)
	}
}

func (s *Session) handleMove(tx *world.Tx, cmd command) {
	pos := mgl64.Vec3{cmd.To[0], cmd.To[1], cmd.To[2]}
	if err := tx.MoveEntity(s.player, pos, mgl64.Vec3{}); err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	s.loader.Move(tx, pos)
	s.send(ackMessage{Type: "ack", CommandID: cmd.ID})
}

func (s *Session) handleSetBlock(tx *world.Tx, cmd command) {
	b, ok := world.BlockByRuntimeID(uint16(cmd.Block.ID)<<4 | uint16(cmd.Block.Meta&0x0f))
	if !ok {
		s.sendError(cmd.ID, "unknown block")
		return
	}
	if err := tx.SetBlock(blockPos(cmd.Pos), b); err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	s.send(ackMessage{Type: "ack", CommandID: cmd.ID})
}

func (s *Session) handleBreakBlock(tx *world.Tx, cmd command) {
	b, err := tx.Block(blockPos(cmd.Pos))
	if err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	if id, _ := b.EncodeBlock(); id == 0 {
		s.sendError(cmd.ID, "no block to break")
		return
	}
	air, _ := world.BlockByRuntimeID(0)
	if err := tx.SetBlock(blockPos(cmd.Pos), air); err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	s.send(ackMessage{Type: "ack", CommandID: cmd.ID})
}

func (s *Session) handleQueryBlock(tx *world.Tx, cmd command) {
	pos := blockPos(cmd.Pos)
	b, err := tx.Block(pos)
	if err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	light, err := tx.Light(pos)
	if err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	id, meta := b.EncodeBlock()
	s.send(blockResultMessage{
		Type:      "block_result",
		CommandID: cmd.ID,
		Pos:       cmd.Pos,
		Block:     blockInfo{ID: id, Meta: meta},
		Light:     light,
	})
}

func (s *Session) handleScheduleTick(tx *world.Tx, cmd command) {
	pos := blockPos(cmd.Pos)
	b, err := tx.Block(pos)
	if err != nil {
		s.sendError(cmd.ID, err.Error())
		return
	}
	tx.ScheduleBlockUpdate(pos, b, cmd.Delay)
	s.send(ackMessage{Type: "ack", CommandID: cmd.ID})
}

func (s *Session) handleCancelTicks(tx *world.Tx, cmd command) {
	n := tx.CancelBlockUpdates(blockPos(cmd.Pos))
	s.send(ackMessage{Type: "ack", CommandID: cmd.ID, Count: n})
}

func (s *Session) handleSetRadius(tx *world.Tx, cmd command) {
	if cmd.Radius < 1 {
		s.sendError(cmd.ID, "radius out of range")
		return
	}
	// Requests above the server's limit are capped, not rejected.
	radius := min(cmd.Radius, s.conf.MaxViewRadius)
	s.loader.ChangeRadius(tx, radius)
	s.send(ackMessage{Type: "ack", CommandID: cmd.ID})
}

func blockPos(p [3]int) cube.Pos {
	return cube.Pos{p[0], p[1], p[2]}
}
