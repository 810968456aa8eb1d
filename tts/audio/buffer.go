package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/txtparrot/parrot/tts"
)

// ErrBufferClosed is returned when adding to a closed buffer.
var ErrBufferClosed = errors.New("buffer is closed")

// BufferItem wraps audio data with metadata for buffering.
type BufferItem struct {
	Key      string
	Audio    *tts.Audio
	Created  time.Time // When the item was created
	Accessed time.Time // Last access time
}

// BufferStats tracks buffer performance metrics.
type BufferStats struct {
	TotalAdded   uint64
	TotalHits    uint64
	TotalMisses  uint64
	TotalDropped uint64
	CurrentSize  int
	PeakSize     int
}

// String implements fmt.Stringer.
func (s BufferStats) String() string {
	return fmt.Sprintf("Buffer{size=%d peak=%d added=%d hits=%d misses=%d dropped=%d}",
		s.CurrentSize, s.PeakSize, s.TotalAdded, s.TotalHits, s.TotalMisses, s.TotalDropped)
}

// BufferConfig holds buffer configuration.
type BufferConfig struct {
	Capacity   int           // Maximum number of items
	MaxItemAge time.Duration // Maximum age before eviction, 0 for none
}

// DefaultBufferConfig returns sensible defaults.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		Capacity:   8,
		MaxItemAge: 5 * time.Minute,
	}
}

// Buffer holds synthesized audio for upcoming utterances. When full, the
// least recently accessed item is dropped.
type Buffer struct {
	mu     sync.Mutex
	items  map[string]*BufferItem
	config BufferConfig
	stats  BufferStats
	closed bool
}

// NewBuffer creates a new audio buffer with the given configuration.
func NewBuffer(config BufferConfig) *Buffer {
	if config.Capacity <= 0 {
		config.Capacity = DefaultBufferConfig().Capacity
	}
	return &Buffer{
		items:  make(map[string]*BufferItem, config.Capacity),
		config: config,
	}
}

// Add stores audio under key.
func (b *Buffer) Add(key string, audio *tts.Audio) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBufferClosed
	}

	now := time.Now()
	if item, ok := b.items[key]; ok {
		item.Audio = audio
		item.Accessed = now
		return nil
	}

	if len(b.items) >= b.config.Capacity {
		b.dropOldest()
	}
	b.items[key] = &BufferItem{Key: key, Audio: audio, Created: now, Accessed: now}
	b.stats.TotalAdded++
	b.stats.CurrentSize = len(b.items)
	b.stats.PeakSize = max(b.stats.PeakSize, len(b.items))
	return nil
}

// Get returns the audio stored under key.
func (b *Buffer) Get(key string) (*tts.Audio, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items[key]
	if !ok || b.expired(item) {
		if ok {
			delete(b.items, key)
			b.stats.CurrentSize = len(b.items)
		}
		b.stats.TotalMisses++
		return nil, false
	}
	item.Accessed = time.Now()
	b.stats.TotalHits++
	return item.Audio, true
}

// Has reports whether key is buffered, without counting a hit.
func (b *Buffer) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.items[key]
	return ok && !b.expired(item)
}

// Size returns the number of buffered items.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Capacity returns the maximum number of items.
func (b *Buffer) Capacity() int {
	return b.config.Capacity
}

// Clear drops every item.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = make(map[string]*BufferItem, b.config.Capacity)
	b.stats.CurrentSize = 0
}

// EvictOldItems removes items older than maxAge and returns how many.
func (b *Buffer) EvictOldItems(maxAge time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	n := 0
	for key, item := range b.items {
		if item.Created.Before(cutoff) {
			delete(b.items, key)
			n++
		}
	}
	b.stats.TotalDropped += uint64(n)
	b.stats.CurrentSize = len(b.items)
	return n
}

// GetStats returns a copy of the buffer statistics.
func (b *Buffer) GetStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Close drops every item and rejects further adds.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.items = nil
	b.stats.CurrentSize = 0
	return nil
}

func (b *Buffer) expired(item *BufferItem) bool {
	return b.config.MaxItemAge > 0 && time.Since(item.Created) > b.config.MaxItemAge
}

func (b *Buffer) dropOldest() {
	var oldest *BufferItem
	for _, item := range b.items {
		if oldest == nil || item.Accessed.Before(oldest.Accessed) {
			oldest = item
		}
	}
	if oldest != nil {
		delete(b.items, oldest.Key)
		b.stats.TotalDropped++
	}
}
