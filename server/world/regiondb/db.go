// Package regiondb implements a world.Provider backed by a leveldb key-value
// store, holding one encoded column per key next to the world settings.
package regiondb

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/axolotl-mc/axolotl/server/world"
	"github.com/axolotl-mc/axolotl/server/world/chunk"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// keySettings is the key the world settings are stored under. Column keys
// carry a 'c' prefix followed by the chunk X and Z.
var keySettings = []byte("settings")

// Config holds settings for a DB.
type Config struct {
	// Log is the logger of the database. Defaults to slog.Default().
	Log *slog.Logger
	// BlockSize is the leveldb block size. Defaults to 16KiB.
	BlockSize int
}

// Open creates or opens the database at dir.
func (conf Config) Open(dir string) (*DB, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.BlockSize == 0 {
		conf.BlockSize = 16 * opt.KiB
	}
	ldb, err := leveldb.OpenFile(dir, &opt.Options{
		Compression: opt.FlateCompression,
		BlockSize:   conf.BlockSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return &DB{conf: conf, ldb: ldb}, nil
}

// Open creates or opens a database at dir with default settings.
func Open(dir string) (*DB, error) {
	return Config{}.Open(dir)
}

// DB implements world.Provider on top of a leveldb database.
type DB struct {
	conf Config
	ldb  *leveldb.DB
}

// dbSettings is the nbt shape of the stored world settings.
type dbSettings struct {
	Name string `nbt:"name"`
	Seed int64  `nbt:"seed"`
	UUID string `nbt:"uuid"`
}

// Settings loads the stored world settings into s. Fields absent from the
// save keep the values s already holds; a save without settings leaves s
// untouched apart from a freshly generated UUID.
func (db *DB) Settings(s *world.Settings) error {
	data, err := db.ldb.Get(keySettings, nil)
	if err == leveldb.ErrNotFound {
		s.Lock()
		defer s.Unlock()
		if s.UUID == (uuid.UUID{}) {
			s.UUID = uuid.New()
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	var stored dbSettings
	if err := nbt.UnmarshalEncoding(data, &stored, nbt.LittleEndian); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	s.Lock()
	defer s.Unlock()
	if stored.Name != "" {
		s.Name = stored.Name
	}
	s.Seed = stored.Seed
	if id, err := uuid.Parse(stored.UUID); err == nil {
		s.UUID = id
	} else if s.UUID == (uuid.UUID{}) {
		s.UUID = uuid.New()
	}
	return nil
}

// SaveSettings persists the world settings. The caller holds the settings
// lock.
func (db *DB) SaveSettings(s *world.Settings) error {
	data, err := nbt.MarshalEncoding(dbSettings{
		Name: s.Name,
		Seed: s.Seed,
		UUID: s.UUID.String(),
	}, nbt.LittleEndian)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := db.ldb.Put(keySettings, data, nil); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadColumn reads the column at pos. world.ErrColumnNotFound is returned if
// the database holds no data for it.
func (db *DB) LoadColumn(pos world.ChunkPos, r chunk.Range) (*chunk.Chunk, error) {
	data, err := db.ldb.Get(columnKey(pos), nil)
	if err == leveldb.ErrNotFound {
		return nil, world.ErrColumnNotFound
	} else if err != nil {
		return nil, fmt.Errorf("load column %v: %w", pos, err)
	}
	c, err := chunk.DiskDecode(data)
	if err != nil {
		return nil, fmt.Errorf("decode column %v: %w", pos, err)
	}
	if c.Range() != r {
		return nil, fmt.Errorf("load column %v: stored range %v does not match world range %v", pos, c.Range(), r)
	}
	return c, nil
}

// StoreColumn writes a column snapshot at pos.
func (db *DB) StoreColumn(pos world.ChunkPos, c *chunk.Chunk) error {
	data, err := chunk.DiskEncode(c)
	if err != nil {
		return fmt.Errorf("encode column %v: %w", pos, err)
	}
	if err := db.ldb.Put(columnKey(pos), data, nil); err != nil {
		return fmt.Errorf("store column %v: %w", pos, err)
	}
	return nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.ldb.Close()
}

func columnKey(pos world.ChunkPos) []byte {
	k := make([]byte, 9)
	k[0] = 'c'
	binary.LittleEndian.PutUint32(k[1:], uint32(pos.X()))
	binary.LittleEndian.PutUint32(k[5:], uint32(pos.Z()))
	return k
}
