// Package chunkdb implements a world.Provider backed by a goleveldb key value
// database. Chunk payloads are zlib compressed and carry a checksum so that
// on-disk corruption is detected at load time instead of surfacing as silently
// broken terrain.
package chunkdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/klauspost/compress/zlib"
	"github.com/pelletier/go-toml"
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// Config holds settings that affect the way a DB reads and writes data.
type Config struct {
	// Log is the logger the DB writes to. Defaults to slog.Default().
	Log *slog.Logger
	// Compression is the compression level used for chunk payloads. Defaults
	// to zlib.DefaultCompression.
	Compression int
	// BlockSize is the block size of the underlying leveldb database. Defaults
	// to 16KiB.
	BlockSize int
	// ReadOnly opens the DB in read-only mode. Stores silently do nothing.
	ReadOnly bool
}

// Open creates a new DB in the directory passed. If the directory does not
// yet exist, it is created.
func (conf Config) Open(dir string) (*DB, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Compression == 0 {
		conf.Compression = zlib.DefaultCompression
	}
	if conf.BlockSize == 0 {
		conf.BlockSize = 16 * opt.KiB
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, fmt.Errorf("open db: create directory: %w", err)
	}
	ldb, err := leveldb.OpenFile(filepath.Join(dir, "db"), &opt.Options{
		BlockSize: conf.BlockSize,
		ReadOnly:  conf.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: leveldb: %w", err)
	}
	return &DB{conf: conf, dir: dir, ldb: ldb}, nil
}

// Open creates a new DB in the directory passed using the default Config.
func Open(dir string) (*DB, error) {
	var conf Config
	return conf.Open(dir)
}

// DB implements world.Provider on top of a leveldb database.
type DB struct {
	conf Config
	dir  string
	ldb  *leveldb.DB
}

// keyChunk is the type byte of keys holding chunk payloads.
const keyChunk = 0x2f

// settingsKey is the key holding the toml encoded world settings.
var settingsKey = []byte("settings")

// chunkKey returns the database key of the chunk at the position passed.
func chunkKey(pos world.ChunkPos) []byte {
	k := make([]byte, 9)
	binary.LittleEndian.PutUint32(k, uint32(pos[0]))
	binary.LittleEndian.PutUint32(k[4:], uint32(pos[1]))
	k[8] = keyChunk
	return k
}

// LoadChunk loads the chunk at the position passed. The payload checksum is
// verified before decoding; a mismatch is reported as world.ErrCorruptChunk
// so the caller can regenerate the chunk.
func (db *DB) LoadChunk(pos world.ChunkPos) (*chunk.Chunk, bool, error) {
	data, err := db.ldb.Get(chunkKey(pos), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("load chunk %v: %w", pos, err)
	}
	if len(data) < 8 {
		return nil, true, fmt.Errorf("load chunk %v: payload too short (%v bytes): %w", pos, len(data), world.ErrCorruptChunk)
	}
	sum, payload := binary.LittleEndian.Uint64(data), data[8:]
	if xxhash.Sum64(payload) != sum {
		return nil, true, fmt.Errorf("load chunk %v: checksum mismatch: %w", pos, world.ErrCorruptChunk)
	}
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, true, fmt.Errorf("load chunk %v: open compressed payload: %w", pos, world.ErrCorruptChunk)
	}
	raw, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return nil, true, fmt.Errorf("load chunk %v: decompress payload: %w", pos, world.ErrCorruptChunk)
	}
	c, err := chunk.DecodeChunk(raw)
	if err != nil {
		return nil, true, fmt.Errorf("load chunk %v: %v: %w", pos, err, world.ErrCorruptChunk)
	}
	return c, true, nil
}

// StoreChunk stores the chunk at the position passed, prefixing the compressed
// payload with its checksum.
func (db *DB) StoreChunk(pos world.ChunkPos, c *chunk.Chunk) error {
	if db.conf.ReadOnly {
		return nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	w, err := zlib.NewWriterLevel(buf, db.conf.Compression)
	if err != nil {
		return fmt.Errorf("store chunk %v: %w", pos, err)
	}
	if _, err := w.Write(c.Encode()); err != nil {
		return fmt.Errorf("store chunk %v: compress payload: %w", pos, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("store chunk %v: compress payload: %w", pos, err)
	}
	payload := buf.Bytes()
	data := make([]byte, 8, 8+len(payload))
	binary.LittleEndian.PutUint64(data, xxhash.Sum64(payload))
	data = append(data, payload...)
	if err := db.ldb.Put(chunkKey(pos), data, nil); err != nil {
		return fmt.Errorf("store chunk %v: %w", pos, err)
	}
	return nil
}

// settingsData is the on-disk representation of world.Settings.
type settingsData struct {
	Name        string `toml:"name"`
	SpawnX      int    `toml:"spawn_x"`
	SpawnY      int    `toml:"spawn_y"`
	SpawnZ      int    `toml:"spawn_z"`
	Time        int64  `toml:"time"`
	TimeCycle   bool   `toml:"time_cycle"`
	CurrentTick int64  `toml:"current_tick"`
}

// LoadSettings loads the stored world settings into s. Fields are left at
// their defaults if no settings were stored yet.
func (db *DB) LoadSettings(s *world.Settings) {
	data, err := db.ldb.Get(settingsKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return
	} else if err != nil {
		db.conf.Log.Error("load settings: " + err.Error())
		return
	}
	var d settingsData
	if err := toml.Unmarshal(data, &d); err != nil {
		db.conf.Log.Error("load settings: decode: " + err.Error())
		return
	}
	s.Name = d.Name
	s.Spawn = cube.Pos{d.SpawnX, d.SpawnY, d.SpawnZ}
	s.Time = d.Time
	s.TimeCycle = d.TimeCycle
	s.CurrentTick = d.CurrentTick
}

// SaveSettings stores the world settings passed.
func (db *DB) SaveSettings(s *world.Settings) {
	if db.conf.ReadOnly {
		return
	}
	d := settingsData{
		Name:        s.Name,
		SpawnX:      s.Spawn[0],
		SpawnY:      s.Spawn[1],
		SpawnZ:      s.Spawn[2],
		Time:        s.Time,
		TimeCycle:   s.TimeCycle,
		CurrentTick: s.CurrentTick,
	}
	data, err := toml.Marshal(d)
	if err != nil {
		db.conf.Log.Error("save settings: encode: " + err.Error())
		return
	}
	if err := db.ldb.Put(settingsKey, data, nil); err != nil {
		db.conf.Log.Error("save settings: " + err.Error())
	}
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.ldb.Close()
}
