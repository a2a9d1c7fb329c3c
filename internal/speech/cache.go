package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/hammamikhairi/aide/internal/logger"
)

// AudioCache is a thread-safe in-memory cache for synthesized audio.
// The key is sha256(voice + ":" + text), so a voice change causes
// misses until the voice is switched back. Spoken lines repeat a lot
// (acks, apologies, alert phrases), which is what this pays for.
type AudioCache struct {
	mu      sync.RWMutex
	entries map[string][]byte // key -> WAV bytes
	voice   string
	log     *logger.Logger
	hits    int64
	misses  int64
}

// NewAudioCache creates a cache scoped to one voice.
func NewAudioCache(voice string, log *logger.Logger) *AudioCache {
	return &AudioCache{
		entries: make(map[string][]byte),
		voice:   voice,
		log:     log,
	}
}

// Get returns cached audio for the text, or nil and false.
func (c *AudioCache) Get(text string) ([]byte, bool) {
	key := c.key(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if ok {
		c.hits++
		return data, true
	}
	c.misses++
	return nil, false
}

// Put stores audio for the text.
func (c *AudioCache) Put(text string, audio []byte) {
	key := c.key(text)
	c.mu.Lock()
	c.entries[key] = audio
	n := len(c.entries)
	c.mu.Unlock()
	c.log.Debug("cache: stored %d bytes (%d entries)", len(audio), n)
}

// Has reports whether audio for the text is cached.
func (c *AudioCache) Has(text string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[c.key(text)]
	return ok
}

// Len returns the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *AudioCache) key(text string) string {
	h := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(h[:])
}
