package speech

import (
	"bytes"
	"testing"

	"github.com/hammamikhairi/aide/internal/logger"
)

func TestCachePutGet(t *testing.T) {
	c := NewAudioCache("voice-a", logger.New(logger.LevelOff, nil))

	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put("hello", []byte{1, 2, 3})
	got, ok := c.Get("hello")
	if !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("unexpected cached audio: %v (ok=%v)", got, ok)
	}
	if !c.Has("hello") || c.Has("goodbye") {
		t.Fatal("Has does not match cache contents")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestCacheIsVoiceScoped(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	a := NewAudioCache("voice-a", log)
	b := NewAudioCache("voice-b", log)

	a.Put("line", []byte("a-audio"))
	b.Put("line", []byte("b-audio"))

	got, _ := a.Get("line")
	if !bytes.Equal(got, []byte("a-audio")) {
		t.Fatalf("voice-a cache returned %q", got)
	}
	got, _ = b.Get("line")
	if !bytes.Equal(got, []byte("b-audio")) {
		t.Fatalf("voice-b cache returned %q", got)
	}
}
