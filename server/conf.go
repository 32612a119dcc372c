package server

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tidewater-mc/tidewater/server/block"
	"github.com/tidewater-mc/tidewater/server/session"
	"github.com/tidewater-mc/tidewater/server/world"
	"github.com/tidewater-mc/tidewater/server/world/chunkdb"
	"github.com/tidewater-mc/tidewater/server/world/generator"
)

// Config contains options for starting a server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// Name is the name of the server, shown to clients in status responses.
	Name string
	// Address is the address the websocket listener binds to.
	Address string
	// QueryAddress is the UDP address the query responder binds to. If empty,
	// no query responder is started.
	QueryAddress string
	// MaxPlayers is the maximum amount of players allowed to join the server
	// at once. If 0, no limit is enforced.
	MaxPlayers int
	// MaxChunkRadius is the maximum view distance that each player may have,
	// measured in chunks. A higher radius generally leads to more memory
	// usage.
	MaxChunkRadius int
	// WorldProvider is the world.Provider used for storing and loading world
	// data. If nil, world data is not persisted and chunks are always newly
	// generated when loaded.
	WorldProvider world.Provider
	// ReadOnlyWorld specifies if the world should be read only. If set to
	// true, the WorldProvider won't be saved to at all.
	ReadOnlyWorld bool
	// Generator is the world.Generator used to generate chunks the provider
	// has no data for. If nil, a perlin noise terrain generator seeded with
	// Seed is used.
	Generator world.Generator
	// Seed is the seed used by the default terrain generator when Generator
	// is not supplied.
	Seed int64
	// RandomTickSpeed specifies the rate at which blocks are randomly ticked.
	// Setting this value to -1 or lower stops random ticking altogether. If
	// 0, the speed defaults to 3 blocks per chunk per tick.
	RandomTickSpeed int
	// GeneratorWorkers controls the number of asynchronous workers dedicated
	// to loading and generating chunks. If 0 or lower, the worker count is
	// derived from the host's available CPUs.
	GeneratorWorkers int
	// GeneratorQueueSize limits how many chunk load jobs may wait for a
	// worker. If 0 or lower, a queue size proportional to the worker count is
	// chosen automatically.
	GeneratorQueueSize int
}

// New creates a Server using fields of conf. The Server's world is created
// and ticking once New returns; connections are accepted after calling
// Server.Listen().
func (conf Config) New() *Server {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Name == "" {
		conf.Name = "Tidewater Server"
	}
	if conf.Address == "" {
		conf.Address = ":8180"
	}
	if conf.MaxChunkRadius == 0 {
		conf.MaxChunkRadius = 12
	}
	if conf.WorldProvider == nil {
		conf.WorldProvider = world.NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = generator.NewTerrain(conf.Seed,
			block.Stone{}, block.Dirt{}, block.Grass{}, block.Sand{}, block.Water{}, block.Bedrock{})
	}

	srv := &Server{conf: conf}
	srv.w = (world.Config{
		Log:                conf.Log,
		Provider:           conf.WorldProvider,
		Generator:          conf.Generator,
		ReadOnly:           conf.ReadOnlyWorld,
		RandomTickSpeed:    conf.RandomTickSpeed,
		GeneratorWorkers:   conf.GeneratorWorkers,
		GeneratorQueueSize: conf.GeneratorQueueSize,
	}).New()
	srv.sessions = map[uuid.UUID]*session.Session{}
	registerQueryServer(srv)
	return srv
}

// UserConfig is the user configuration for a server. It holds settings that
// affect different aspects of the server, such as its name and maximum
// players. UserConfig may be serialised as TOML and can be converted to a
// Config by calling UserConfig.Config().
type UserConfig struct {
	// Network holds settings related to network aspects of the server.
	Network struct {
		// Address is the address on which the server should listen. Clients
		// may connect to this address in order to join.
		Address string
		// QueryAddress is the UDP address the query responder binds to. Leave
		// empty to disable the query responder.
		QueryAddress string
	}
	Server struct {
		// Name is the name of the server as it shows up in status responses.
		Name string
	}
	World struct {
		// SaveData controls whether the world's data will be saved and
		// loaded. If true, the server will use the default chunkdb provider
		// and if false, no data is persisted.
		SaveData bool
		// Folder is the folder that the data of the world resides in.
		Folder string
		// ReadOnly opens the world without saving any changes back to disk.
		ReadOnly bool
		// Seed controls the procedural generation of the terrain.
		Seed int64
		// RandomTickSpeed is the number of random block ticks per chunk per
		// world tick. Set to -1 to disable random ticking.
		RandomTickSpeed int
		// GeneratorWorkers is the number of background workers dedicated to
		// loading and generating chunks. Set to 0 to automatically select a
		// default based on the host's CPU count.
		GeneratorWorkers int
		// GeneratorQueueSize determines how many chunk load jobs can wait
		// for a worker. Set to 0 to use an automatically chosen size.
		GeneratorQueueSize int
	}
	Players struct {
		// MaxCount is the maximum amount of players allowed to join the
		// server at the same time. If set to 0, no limit is enforced.
		MaxCount int
		// MaximumChunkRadius is the maximum chunk radius that players may
		// request. If they try to set it above this number, it will be
		// capped.
		MaximumChunkRadius int
	}
}

// Config converts a UserConfig to a Config, so that it may be used for
// creating a Server. An error is returned if creating the world provider
// failed.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:                log,
		Name:               uc.Server.Name,
		Address:            uc.Network.Address,
		QueryAddress:       uc.Network.QueryAddress,
		MaxPlayers:         uc.Players.MaxCount,
		MaxChunkRadius:     uc.Players.MaximumChunkRadius,
		ReadOnlyWorld:      uc.World.ReadOnly,
		Seed:               uc.World.Seed,
		RandomTickSpeed:    uc.World.RandomTickSpeed,
		GeneratorWorkers:   uc.World.GeneratorWorkers,
		GeneratorQueueSize: uc.World.GeneratorQueueSize,
	}
	if uc.World.SaveData {
		folder := strings.TrimSpace(uc.World.Folder)
		if folder == "" {
			folder = "world"
		}
		db, err := chunkdb.Config{Log: log, ReadOnly: uc.World.ReadOnly}.Open(folder)
		if err != nil {
			return conf, fmt.Errorf("create world provider: %w", err)
		}
		conf.WorldProvider = db
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Network.Address = ":8180"
	c.Network.QueryAddress = ":8181"
	c.Server.Name = "Tidewater Server"
	c.World.SaveData = true
	c.World.Folder = "world"
	c.World.Seed = 0
	c.Players.MaximumChunkRadius = 32
	return c
}
