// Package cache stores synthesized audio in two levels: an in-memory LRU
// (L1) and a compressed, persistent disk store (L2).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache is closed")
)

// Level identifies a cache tier.
type Level int

const (
	// LevelMemory is the in-memory cache.
	LevelMemory Level = iota
	// LevelDisk is the persistent disk cache.
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one cache level.
type Stats struct {
	Capacity  int64 // Maximum size in bytes
	Size      int64 // Current size in bytes
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// String formats the stats for display.
func (s Stats) String() string {
	return fmt.Sprintf("%d items, %s of %s, %.0f%% hits, %d evicted",
		s.Items,
		humanize.IBytes(uint64(max(s.Size, 0))),
		humanize.IBytes(uint64(max(s.Capacity, 0))),
		s.HitRate()*100,
		s.Evictions,
	)
}

// Entry describes a cached item.
type Entry struct {
	Key        string
	Size       int64 // Uncompressed size in bytes
	Created    time.Time
	LastAccess time.Time
	Hits       int64
	Level      Level
}

// Config configures a Manager.
type Config struct {
	Dir              string        // Disk cache directory
	MemoryCapacity   int64         // L1 capacity in bytes
	DiskCapacity     int64         // L2 capacity in bytes (compressed)
	CompressionLevel int           // zstd level, 0 disables compression
	TTL              time.Duration // Disk entries older than this are removed
	CleanupInterval  time.Duration // 0 disables background cleanup
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		MemoryCapacity:   64 * 1024 * 1024,
		DiskCapacity:     512 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Key derives a cache key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
